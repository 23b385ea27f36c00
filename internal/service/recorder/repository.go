package recorder

import (
	"context"

	"github.com/ignite/pixel-tracker/internal/domain"
)

// Repository defines the data access contract for the open write path.
type Repository interface {
	// GetPixel returns the pixel with the given id or domain.ErrNotFound.
	GetPixel(ctx context.Context, id string) (*domain.Pixel, error)

	// InsertOpen appends an open event and sets its ID.
	InsertOpen(ctx context.Context, e *domain.OpenEvent) error
}

// Classifier decides whether a request came from a human.
type Classifier interface {
	Classify(userAgent, sourceIP string) domain.Classification
}

// Notifier is told about each durably recorded open. Implementations must
// not block the caller for long and must not fail the write.
type Notifier interface {
	OpenRecorded(ctx context.Context, p *domain.Pixel, e *domain.OpenEvent)
}
