package activity

import (
	"context"
	"time"

	"github.com/ignite/pixel-tracker/internal/domain"
)

// Repository defines the read contract the aggregator needs.
type Repository interface {
	// PixelSummaries returns every pixel registered under the given email ids
	// in creation order, each with its opens aggregated under the bot filter.
	// Unknown ids are simply absent from the result.
	PixelSummaries(ctx context.Context, emailIDs []string, includeBots bool) ([]domain.PixelSummary, error)

	// ListOpensByPixel returns a pixel's opens ordered by opened_at DESC, id DESC.
	ListOpensByPixel(ctx context.Context, pixelID string, includeBots bool) ([]domain.OpenEvent, error)

	// RecentEmailIDs returns distinct email ids, most recently issued first.
	RecentEmailIDs(ctx context.Context, limit int) ([]string, error)

	// ListActivity returns up to filter.Limit joined events, most recent first,
	// plus the total number of events matching the filter. Both are read from
	// the same snapshot.
	ListActivity(ctx context.Context, filter ActivityFilter) ([]domain.ActivityItem, int, error)
}

// ActivityFilter selects events for the chronological feed.
type ActivityFilter struct {
	Since       *time.Time
	IncludeBots bool
	Limit       int
}
