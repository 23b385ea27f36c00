package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/ignite/pixel-tracker/internal/domain"
)

// CreatePixel inserts a pixel. Returns domain.ErrConflict if the id exists.
func (s *Store) CreatePixel(ctx context.Context, p *domain.Pixel) error {
	query, args, err := s.sb.Insert("pixels").
		Columns("id", "email_id", "recipient", "subject", "created_at").
		Values(p.ID, p.EmailID, p.Recipient, nullString(p.Subject), utc(p.CreatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create pixel: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create pixel: %w", domain.ErrConflict)
		}
		return storageErr("create pixel", err)
	}
	return nil
}

// GetPixel returns the pixel with the given id or domain.ErrNotFound.
func (s *Store) GetPixel(ctx context.Context, id string) (*domain.Pixel, error) {
	query, args, err := s.sb.Select("id", "email_id", "recipient", "COALESCE(subject, '')", "created_at").
		From("pixels").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get pixel: %w", err)
	}

	p := &domain.Pixel{}
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.EmailID, &p.Recipient, &p.Subject, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pixel %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get pixel", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}
