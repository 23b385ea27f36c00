package pixel

import (
	"context"

	"github.com/ignite/pixel-tracker/internal/domain"
)

// Repository defines the data access contract for pixel registration.
type Repository interface {
	// CreatePixel persists a new pixel. Returns domain.ErrConflict if the id
	// is already taken.
	CreatePixel(ctx context.Context, p *domain.Pixel) error

	// GetPixel returns the pixel with the given id or domain.ErrNotFound.
	GetPixel(ctx context.Context, id string) (*domain.Pixel, error)
}
