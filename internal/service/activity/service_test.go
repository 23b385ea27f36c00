package activity

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/pixel-tracker/internal/domain"
)

// mockRepo is an in-memory repository for testing. Pixels keep insertion
// order; opens are assigned increasing ids.
type mockRepo struct {
	mu     sync.Mutex
	pixels []domain.Pixel
	opens  []domain.OpenEvent
	err    error
}

func (m *mockRepo) addPixel(id, emailID, recipient, subject string, createdAt time.Time) {
	m.pixels = append(m.pixels, domain.Pixel{
		ID: id, EmailID: emailID, Recipient: recipient, Subject: subject, CreatedAt: createdAt,
	})
}

func (m *mockRepo) addOpen(pixelID string, at time.Time, isBot bool) {
	e := domain.OpenEvent{
		ID:       int64(len(m.opens) + 1),
		PixelID:  pixelID,
		OpenedAt: at,
		IsBot:    isBot,
	}
	if isBot {
		e.BotReason = "user-agent: googlebot"
	}
	m.opens = append(m.opens, e)
}

func (m *mockRepo) sortedOpens(keep func(domain.OpenEvent) bool) []domain.OpenEvent {
	var out []domain.OpenEvent
	for _, e := range m.opens {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.After(out[j].OpenedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *mockRepo) PixelSummaries(_ context.Context, emailIDs []string, includeBots bool) ([]domain.PixelSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[string]bool, len(emailIDs))
	for _, id := range emailIDs {
		want[id] = true
	}
	var out []domain.PixelSummary
	for _, p := range m.pixels {
		if !want[p.EmailID] {
			continue
		}
		ps := domain.PixelSummary{Pixel: p}
		for _, e := range m.opens {
			if e.PixelID != p.ID {
				continue
			}
			if e.IsBot {
				ps.BotOpens++
			}
			if !e.Counts(includeBots) {
				continue
			}
			ps.Opens++
			if ps.FirstOpenedAt == nil || e.OpenedAt.Before(*ps.FirstOpenedAt) {
				t := e.OpenedAt
				ps.FirstOpenedAt = &t
			}
			if ps.LastOpenedAt == nil || e.OpenedAt.After(*ps.LastOpenedAt) {
				t := e.OpenedAt
				ps.LastOpenedAt = &t
			}
		}
		out = append(out, ps)
	}
	return out, nil
}

func (m *mockRepo) ListOpensByPixel(_ context.Context, pixelID string, includeBots bool) ([]domain.OpenEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sortedOpens(func(e domain.OpenEvent) bool {
		return e.PixelID == pixelID && e.Counts(includeBots)
	}), nil
}

func (m *mockRepo) RecentEmailIDs(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	sentAt := map[string]time.Time{}
	for _, p := range m.pixels {
		if p.CreatedAt.After(sentAt[p.EmailID]) {
			sentAt[p.EmailID] = p.CreatedAt
		}
	}
	ids := make([]string, 0, len(sentAt))
	for id := range sentAt {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if !sentAt[ids[i]].Equal(sentAt[ids[j]]) {
			return sentAt[ids[i]].After(sentAt[ids[j]])
		}
		return ids[i] > ids[j]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *mockRepo) ListActivity(_ context.Context, f ActivityFilter) ([]domain.ActivityItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	byID := map[string]domain.Pixel{}
	for _, p := range m.pixels {
		byID[p.ID] = p
	}
	matched := m.sortedOpens(func(e domain.OpenEvent) bool {
		if !e.Counts(f.IncludeBots) {
			return false
		}
		return f.Since == nil || e.OpenedAt.After(*f.Since)
	})
	var items []domain.ActivityItem
	for i, e := range matched {
		if i == f.Limit {
			break
		}
		p := byID[e.PixelID]
		items = append(items, domain.ActivityItem{
			OpenEvent: e, EmailID: p.EmailID, Recipient: p.Recipient, Subject: p.Subject,
		})
	}
	return items, len(matched), nil
}

var base = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

func TestStatus_CountsHumanAndBotSeparately(t *testing.T) {
	repo := &mockRepo{}
	repo.addPixel("p1", "email-1", "a@x.com", "Hi", at(0))
	repo.addPixel("p2", "email-1", "b@x.com", "Hi", at(0))
	repo.addOpen("p1", at(5), false)
	repo.addOpen("p1", at(9), false)
	repo.addOpen("p1", at(7), true)
	repo.addOpen("p2", at(6), true)
	svc := NewService(repo, Limits{})

	st, err := svc.Status(context.Background(), "email-1", false)
	require.NoError(t, err)
	require.Len(t, st.Recipients, 2)

	a := st.Recipients[0]
	assert.Equal(t, "p1", a.PixelID)
	assert.Equal(t, 2, a.OpenCount)
	assert.Equal(t, 1, a.BotOpenCount)
	assert.True(t, a.Opened)
	require.NotNil(t, a.FirstOpenedAt)
	require.NotNil(t, a.LastOpenedAt)
	assert.True(t, a.FirstOpenedAt.Equal(at(5)))
	assert.True(t, a.LastOpenedAt.Equal(at(9)))

	b := st.Recipients[1]
	assert.Equal(t, 0, b.OpenCount)
	assert.Equal(t, 1, b.BotOpenCount)
	assert.False(t, b.Opened)
	assert.Nil(t, b.FirstOpenedAt)
	assert.Nil(t, b.LastOpenedAt)

	st, err = svc.Status(context.Background(), "email-1", true)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Recipients[0].OpenCount)
	assert.True(t, st.Recipients[1].Opened)
	assert.True(t, st.IncludeBots)
}

func TestStatus_UnknownEmailIsEmpty(t *testing.T) {
	svc := NewService(&mockRepo{}, Limits{})

	st, err := svc.Status(context.Background(), "nope", false)
	require.NoError(t, err)
	assert.NotNil(t, st.Recipients)
	assert.Empty(t, st.Recipients)

	_, err = svc.Status(context.Background(), "", false)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestHistory_MostRecentFirst(t *testing.T) {
	repo := &mockRepo{}
	repo.addPixel("p1", "email-1", "a@x.com", "", at(0))
	repo.addOpen("p1", at(1), false)
	repo.addOpen("p1", at(3), true)
	repo.addOpen("p1", at(2), false)
	repo.addOpen("p1", at(2), false)
	svc := NewService(repo, Limits{})

	h, err := svc.History(context.Background(), "p1", false)
	require.NoError(t, err)
	require.Equal(t, 3, h.Count)
	assert.Equal(t, []int64{4, 3, 1}, ids(h.Opens))

	h, err = svc.History(context.Background(), "p1", true)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4, 3, 1}, ids(h.Opens))

	h, err = svc.History(context.Background(), "unknown", false)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Count)
	assert.NotNil(t, h.Opens)
}

func TestDashboard_ThreeRecipientRollup(t *testing.T) {
	repo := &mockRepo{}
	repo.addPixel("old", "email-0", "z@x.com", "Older", at(-60))
	repo.addPixel("pa", "email-1", "a@x.com", "Launch", at(0))
	repo.addPixel("pb", "email-1", "b@x.com", "Launch", at(0))
	repo.addPixel("pc", "email-1", "c@x.com", "Launch", at(1))
	repo.addOpen("pa", at(10), false)
	repo.addOpen("pa", at(12), false)
	repo.addOpen("pb", at(11), true)
	svc := NewService(repo, Limits{})

	rollups, err := svc.Dashboard(context.Background(), 0, false)
	require.NoError(t, err)
	require.Len(t, rollups, 2)
	assert.Equal(t, "email-0", rollups[1].EmailID)

	r := rollups[0]
	assert.Equal(t, "email-1", r.EmailID)
	assert.Equal(t, "Launch", r.Subject)
	assert.True(t, r.SentAt.Equal(at(1)))
	assert.Equal(t, 3, r.TotalRecipients)
	assert.Equal(t, 1, r.RecipientsOpened)
	assert.Equal(t, 2, r.TotalOpens)
	assert.Equal(t, 1, r.BotOpens)
	require.NotNil(t, r.LastOpenedAt)
	assert.True(t, r.LastOpenedAt.Equal(at(12)))
	assert.Len(t, r.Recipients, 3)

	rollups, err = svc.Dashboard(context.Background(), 0, true)
	require.NoError(t, err)
	assert.Equal(t, 2, rollups[0].RecipientsOpened)
	assert.Equal(t, 3, rollups[0].TotalOpens)

	rollups, err = svc.Dashboard(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, rollups, 1)
	assert.Equal(t, "email-1", rollups[0].EmailID)
}

func TestDashboard_Empty(t *testing.T) {
	rollups, err := NewService(&mockRepo{}, Limits{}).Dashboard(context.Background(), 10, false)
	require.NoError(t, err)
	assert.NotNil(t, rollups)
	assert.Empty(t, rollups)
}

func TestFeed_SinceSemantics(t *testing.T) {
	repo := &mockRepo{}
	repo.addPixel("p1", "email-1", "a@x.com", "S", at(0))
	t0, t1, t2 := at(1), at(2), at(3)
	repo.addOpen("p1", t0, false)
	repo.addOpen("p1", t1, false)
	repo.addOpen("p1", t2, false)
	svc := NewService(repo, Limits{})
	ctx := context.Background()

	feed, err := svc.Feed(ctx, FeedQuery{Since: &t0})
	require.NoError(t, err)
	assert.Equal(t, 2, feed.NewCount)
	assert.Equal(t, []int64{3, 2}, itemIDs(feed.Opens))
	require.NotNil(t, feed.LatestOpenedAt)
	assert.True(t, feed.LatestOpenedAt.Equal(t2))
	assert.Equal(t, "email-1", feed.Opens[0].EmailID)
	assert.Equal(t, "a@x.com", feed.Opens[0].Recipient)

	feed, err = svc.Feed(ctx, FeedQuery{Since: &t0, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, feed.NewCount)
	assert.Equal(t, []int64{3}, itemIDs(feed.Opens))

	feed, err = svc.Feed(ctx, FeedQuery{Since: &t2})
	require.NoError(t, err)
	assert.Equal(t, 0, feed.NewCount)
	assert.Empty(t, feed.Opens)
	require.NotNil(t, feed.LatestOpenedAt)
	assert.True(t, feed.LatestOpenedAt.Equal(t2))

	feed, err = svc.Feed(ctx, FeedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, feed.NewCount)
	assert.Nil(t, feed.Since)
}

func TestFeed_ExcludesBotsByDefault(t *testing.T) {
	repo := &mockRepo{}
	repo.addPixel("p1", "email-1", "a@x.com", "", at(0))
	repo.addOpen("p1", at(1), true)
	repo.addOpen("p1", at(2), false)
	svc := NewService(repo, Limits{})

	feed, err := svc.Feed(context.Background(), FeedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, feed.NewCount)

	feed, err = svc.Feed(context.Background(), FeedQuery{IncludeBots: true})
	require.NoError(t, err)
	assert.Equal(t, 2, feed.NewCount)
}

func TestLimit(t *testing.T) {
	svc := NewService(&mockRepo{}, Limits{})
	assert.Equal(t, DefaultLimit, svc.Limit(0))
	assert.Equal(t, DefaultLimit, svc.Limit(-3))
	assert.Equal(t, 7, svc.Limit(7))
	assert.Equal(t, MaxLimit, svc.Limit(10_000))

	svc = NewService(&mockRepo{}, Limits{Default: 20, Max: 10})
	assert.Equal(t, 10, svc.Limit(0))
}

func TestStorageErrorsPropagate(t *testing.T) {
	repo := &mockRepo{err: errors.Join(domain.ErrStorage, errors.New("boom"))}
	svc := NewService(repo, Limits{})
	ctx := context.Background()

	_, err := svc.Status(ctx, "e", false)
	assert.ErrorIs(t, err, domain.ErrStorage)
	_, err = svc.History(ctx, "p", false)
	assert.ErrorIs(t, err, domain.ErrStorage)
	_, err = svc.Dashboard(ctx, 0, false)
	assert.ErrorIs(t, err, domain.ErrStorage)
	_, err = svc.Feed(ctx, FeedQuery{})
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func ids(opens []domain.OpenEvent) []int64 {
	out := make([]int64, len(opens))
	for i, e := range opens {
		out[i] = e.ID
	}
	return out
}

func itemIDs(items []domain.ActivityItem) []int64 {
	out := make([]int64, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}
