package sqlstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/ignite/pixel-tracker/internal/domain"
	"github.com/ignite/pixel-tracker/internal/service/activity"
)

// RecentEmailIDs returns distinct email ids ordered by their latest pixel
// creation time, newest first, ties broken by email id descending.
func (s *Store) RecentEmailIDs(ctx context.Context, limit int) ([]string, error) {
	query, args, err := s.sb.Select("email_id").
		From("pixels").
		GroupBy("email_id").
		OrderBy("MAX(created_at) DESC", "email_id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent emails: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("recent emails", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan recent emails", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("recent emails", err)
	}
	return ids, nil
}

// ListActivity reads one page of the feed and the total match count inside a
// single read-only transaction so the two always agree.
func (s *Store) ListActivity(ctx context.Context, f activity.ActivityFilter) ([]domain.ActivityItem, int, error) {
	where := sq.And{}
	if f.Since != nil {
		where = append(where, sq.Gt{"e.opened_at": utc(*f.Since)})
	}
	if !f.IncludeBots {
		where = append(where, sq.Eq{"e.is_bot": false})
	}

	cols := append(append([]string{}, openColumns...), "p.email_id", "p.recipient", "COALESCE(p.subject, '')")
	listQ := s.sb.Select(cols...).
		From("open_events e").
		Join("pixels p ON p.id = e.pixel_id").
		OrderBy("e.opened_at DESC", "e.id DESC")
	countQ := s.sb.Select("COUNT(*)").From("open_events e")
	if len(where) > 0 {
		listQ = listQ.Where(where)
		countQ = countQ.Where(where)
	}
	if f.Limit > 0 {
		listQ = listQ.Limit(uint64(f.Limit))
	}

	listSQL, listArgs, err := listQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build activity list: %w", err)
	}
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build activity count: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, s.readTxOptions())
	if err != nil {
		return nil, 0, storageErr("activity begin", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, storageErr("activity list", err)
	}
	items := []domain.ActivityItem{}
	for rows.Next() {
		var it domain.ActivityItem
		if err := rows.Scan(
			&it.ID, &it.PixelID, &it.OpenedAt, &it.IPAddress, &it.UserAgent, &it.IsBot, &it.BotReason,
			&it.EmailID, &it.Recipient, &it.Subject,
		); err != nil {
			rows.Close()
			return nil, 0, storageErr("scan activity", err)
		}
		it.OpenedAt = it.OpenedAt.UTC()
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, storageErr("activity list", err)
	}
	rows.Close()

	var total int
	if err := tx.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, storageErr("activity count", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, storageErr("activity commit", err)
	}
	return items, total, nil
}
