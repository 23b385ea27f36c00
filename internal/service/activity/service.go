package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/pixel-tracker/internal/domain"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Limits bounds the page size of list views.
type Limits struct {
	Default int
	Max     int
}

// FeedQuery is the input for the activity feed.
type FeedQuery struct {
	Limit       int
	Since       *time.Time
	IncludeBots bool
}

// Service computes reporting views. It is safe for concurrent use.
type Service struct {
	repo   Repository
	limits Limits
}

// NewService creates an aggregator. Zero limits fall back to the package
// defaults.
func NewService(repo Repository, limits Limits) *Service {
	if limits.Default <= 0 {
		limits.Default = DefaultLimit
	}
	if limits.Max <= 0 {
		limits.Max = MaxLimit
	}
	if limits.Default > limits.Max {
		limits.Default = limits.Max
	}
	return &Service{repo: repo, limits: limits}
}

// Limit clamps a requested page size: non-positive means default.
func (s *Service) Limit(requested int) int {
	switch {
	case requested <= 0:
		return s.limits.Default
	case requested > s.limits.Max:
		return s.limits.Max
	default:
		return requested
	}
}

// Status reports per-recipient open state for one email id. An unknown email
// id yields an empty recipient list.
func (s *Service) Status(ctx context.Context, emailID string, includeBots bool) (*domain.EmailStatus, error) {
	if strings.TrimSpace(emailID) == "" {
		return nil, fmt.Errorf("%w: emailId is required", domain.ErrInvalidArgument)
	}

	pixels, err := s.repo.PixelSummaries(ctx, []string{emailID}, includeBots)
	if err != nil {
		return nil, err
	}

	out := &domain.EmailStatus{
		EmailID:     emailID,
		IncludeBots: includeBots,
		Recipients:  make([]domain.RecipientStatus, 0, len(pixels)),
	}
	for _, ps := range pixels {
		out.Recipients = append(out.Recipients, recipientStatus(ps))
	}
	return out, nil
}

// History lists one pixel's opens, most recent first. An unknown pixel id
// yields an empty list.
func (s *Service) History(ctx context.Context, pixelID string, includeBots bool) (*domain.PixelHistory, error) {
	if strings.TrimSpace(pixelID) == "" {
		return nil, fmt.Errorf("%w: pixelId is required", domain.ErrInvalidArgument)
	}

	opens, err := s.repo.ListOpensByPixel(ctx, pixelID, includeBots)
	if err != nil {
		return nil, err
	}
	if opens == nil {
		opens = []domain.OpenEvent{}
	}
	return &domain.PixelHistory{
		PixelID:     pixelID,
		IncludeBots: includeBots,
		Count:       len(opens),
		Opens:       opens,
	}, nil
}

// Dashboard returns one rollup per email id, most recently sent first.
func (s *Service) Dashboard(ctx context.Context, limit int, includeBots bool) ([]domain.EmailRollup, error) {
	ids, err := s.repo.RecentEmailIDs(ctx, s.Limit(limit))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.EmailRollup{}, nil
	}

	pixels, err := s.repo.PixelSummaries(ctx, ids, includeBots)
	if err != nil {
		return nil, err
	}

	byEmail := make(map[string]*domain.EmailRollup, len(ids))
	for _, ps := range pixels {
		r, ok := byEmail[ps.Pixel.EmailID]
		if !ok {
			r = &domain.EmailRollup{EmailID: ps.Pixel.EmailID}
			byEmail[ps.Pixel.EmailID] = r
		}
		addRecipient(r, recipientStatus(ps))
	}

	out := make([]domain.EmailRollup, 0, len(ids))
	for _, id := range ids {
		if r, ok := byEmail[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Feed returns the most recent opens across all emails. With Since set, only
// strictly newer events are listed and NewCount counts all of them even when
// the page is truncated. Without Since, NewCount is the total number of
// matching events.
func (s *Service) Feed(ctx context.Context, q FeedQuery) (*domain.ActivityFeed, error) {
	var since *time.Time
	if q.Since != nil {
		t := q.Since.UTC()
		since = &t
	}

	items, total, err := s.repo.ListActivity(ctx, ActivityFilter{
		Since:       since,
		IncludeBots: q.IncludeBots,
		Limit:       s.Limit(q.Limit),
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ActivityItem{}
	}

	feed := &domain.ActivityFeed{
		Opens:          items,
		NewCount:       total,
		Since:          since,
		LatestOpenedAt: since,
	}
	if len(items) > 0 {
		latest := items[0].OpenedAt
		feed.LatestOpenedAt = &latest
	}
	return feed, nil
}

func recipientStatus(ps domain.PixelSummary) domain.RecipientStatus {
	return domain.RecipientStatus{
		PixelID:       ps.Pixel.ID,
		Recipient:     ps.Pixel.Recipient,
		Subject:       ps.Pixel.Subject,
		CreatedAt:     ps.Pixel.CreatedAt,
		OpenCount:     ps.Opens,
		BotOpenCount:  ps.BotOpens,
		Opened:        ps.Opens > 0,
		FirstOpenedAt: ps.FirstOpenedAt,
		LastOpenedAt:  ps.LastOpenedAt,
	}
}

func addRecipient(r *domain.EmailRollup, rs domain.RecipientStatus) {
	r.Recipients = append(r.Recipients, rs)
	r.TotalRecipients++
	r.TotalOpens += rs.OpenCount
	r.BotOpens += rs.BotOpenCount
	if rs.Opened {
		r.RecipientsOpened++
	}
	if rs.LastOpenedAt != nil && (r.LastOpenedAt == nil || rs.LastOpenedAt.After(*r.LastOpenedAt)) {
		t := *rs.LastOpenedAt
		r.LastOpenedAt = &t
	}
	if !rs.CreatedAt.Before(r.SentAt) {
		r.SentAt = rs.CreatedAt
		if rs.Subject != "" {
			r.Subject = rs.Subject
		}
	}
	if r.Subject == "" {
		r.Subject = rs.Subject
	}
}
