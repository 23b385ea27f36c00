package sqlstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/ignite/pixel-tracker/internal/domain"
)

var openColumns = []string{
	"e.id", "e.pixel_id", "e.opened_at",
	"COALESCE(e.ip_address, '')", "COALESCE(e.user_agent, '')",
	"e.is_bot", "COALESCE(e.bot_reason, '')",
}

// InsertOpen appends an open event and sets e.ID from the generated key.
// An id that references no pixel yields domain.ErrNotFound.
func (s *Store) InsertOpen(ctx context.Context, e *domain.OpenEvent) error {
	e.OpenedAt = utc(e.OpenedAt)
	query, args, err := s.sb.Insert("open_events").
		Columns("pixel_id", "opened_at", "ip_address", "user_agent", "is_bot", "bot_reason").
		Values(e.PixelID, e.OpenedAt, nullString(e.IPAddress), nullString(e.UserAgent), e.IsBot, nullString(e.BotReason)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert open: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&e.ID); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("insert open: pixel %s: %w", e.PixelID, domain.ErrNotFound)
		}
		return storageErr("insert open", err)
	}
	return nil
}

// ListOpensByPixel returns a pixel's opens, most recent first.
func (s *Store) ListOpensByPixel(ctx context.Context, pixelID string, includeBots bool) ([]domain.OpenEvent, error) {
	where := sq.And{sq.Eq{"e.pixel_id": pixelID}}
	if !includeBots {
		where = append(where, sq.Eq{"e.is_bot": false})
	}

	query, args, err := s.sb.Select(openColumns...).
		From("open_events e").
		Where(where).
		OrderBy("e.opened_at DESC", "e.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list opens: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list opens", err)
	}
	defer rows.Close()

	out := []domain.OpenEvent{}
	for rows.Next() {
		var e domain.OpenEvent
		if err := rows.Scan(&e.ID, &e.PixelID, &e.OpenedAt, &e.IPAddress, &e.UserAgent, &e.IsBot, &e.BotReason); err != nil {
			return nil, storageErr("scan open", err)
		}
		e.OpenedAt = e.OpenedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list opens", err)
	}
	return out, nil
}

// PixelSummaries aggregates the opens of every pixel of the given emails in
// one grouped statement, so a status view never mixes two points in time and
// costs one row per pixel regardless of how often it was fetched. Pixels come
// back in creation order.
func (s *Store) PixelSummaries(ctx context.Context, emailIDs []string, includeBots bool) ([]domain.PixelSummary, error) {
	if len(emailIDs) == 0 {
		return []domain.PixelSummary{}, nil
	}

	counted := "NOT e.is_bot"
	if includeBots {
		counted = "e.id IS NOT NULL"
	}
	query, args, err := s.sb.Select(
		"p.id", "p.email_id", "p.recipient", "COALESCE(p.subject, '')", "p.created_at",
		"SUM(CASE WHEN "+counted+" THEN 1 ELSE 0 END)",
		"SUM(CASE WHEN e.is_bot THEN 1 ELSE 0 END)",
		"MIN(CASE WHEN "+counted+" THEN e.opened_at END)",
		"MAX(CASE WHEN "+counted+" THEN e.opened_at END)",
	).
		From("pixels p").
		LeftJoin("open_events e ON e.pixel_id = p.id").
		Where(sq.Eq{"p.email_id": emailIDs}).
		GroupBy("p.id", "p.email_id", "p.recipient", "p.subject", "p.created_at").
		OrderBy("p.created_at ASC", "p.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pixel summaries: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("pixel summaries", err)
	}
	defer rows.Close()

	out := []domain.PixelSummary{}
	for rows.Next() {
		var (
			ps          domain.PixelSummary
			first, last nullTime
		)
		if err := rows.Scan(
			&ps.Pixel.ID, &ps.Pixel.EmailID, &ps.Pixel.Recipient, &ps.Pixel.Subject, &ps.Pixel.CreatedAt,
			&ps.Opens, &ps.BotOpens, &first, &last,
		); err != nil {
			return nil, storageErr("scan pixel summaries", err)
		}
		ps.Pixel.CreatedAt = ps.Pixel.CreatedAt.UTC()
		ps.FirstOpenedAt = first.ptr()
		ps.LastOpenedAt = last.ptr()
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("pixel summaries", err)
	}
	return out, nil
}
