package pixel

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/ignite/pixel-tracker/internal/domain"
	"github.com/ignite/pixel-tracker/internal/metrics"
	"github.com/ignite/pixel-tracker/internal/pkg/logger"
)

const (
	// idBytes of entropy encode to a 32-character URL-safe token.
	idBytes     = 24
	maxAttempts = 3
)

// CreateRequest is the input for issuing a pixel.
type CreateRequest struct {
	EmailID   string `json:"emailId" validate:"required,notblank,max=255"`
	Recipient string `json:"recipient" validate:"required,notblank,max=320"`
	Subject   string `json:"subject,omitempty" validate:"max=998"`
}

// Issued is what a mail composer needs to embed a pixel.
type Issued struct {
	PixelID   string `json:"pixelId"`
	PixelURL  string `json:"pixelUrl"`
	PixelHTML string `json:"pixelHtml"`
}

// Service issues and looks up pixels. It is safe for concurrent use.
type Service struct {
	repo    Repository
	baseURL string
	newID   func() (string, error)
	now     func() time.Time
}

// NewService creates a pixel service. baseURL is the public origin that
// serves /pixel/{id}, e.g. "https://t.example.com".
func NewService(repo Repository, baseURL string) *Service {
	return &Service{
		repo:    repo,
		baseURL: strings.TrimRight(baseURL, "/"),
		newID:   NewID,
		now:     time.Now,
	}
}

// Create validates the request, registers a fresh pixel and returns its URL
// and embeddable HTML. Nothing is persisted when validation fails.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Issued, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	p := &domain.Pixel{
		EmailID:   req.EmailID,
		Recipient: req.Recipient,
		Subject:   req.Subject,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("generate pixel id: %w", err)
		}
		p.ID = id

		err = s.repo.CreatePixel(ctx, p)
		if err == nil {
			metrics.PixelsCreated.Inc()
			logger.DebugCtx(ctx, "pixel issued", "pixel_id", p.ID, "email_id", p.EmailID, "recipient", p.Recipient)
			return s.issued(p.ID), nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		logger.WarnCtx(ctx, "pixel id collision, retrying", "attempt", attempt)
	}
	return nil, ErrIDExhausted
}

// Lookup returns a registered pixel or domain.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, pixelID string) (*domain.Pixel, error) {
	if strings.TrimSpace(pixelID) == "" {
		return nil, fmt.Errorf("%w: pixelId is required", domain.ErrInvalidArgument)
	}
	return s.repo.GetPixel(ctx, pixelID)
}

// URL returns the public fetch URL for a pixel id.
func (s *Service) URL(pixelID string) string {
	return s.baseURL + "/pixel/" + pixelID
}

func (s *Service) issued(id string) *Issued {
	u := s.URL(id)
	return &Issued{
		PixelID:   id,
		PixelURL:  u,
		PixelHTML: HTML(u),
	}
}

// HTML renders an invisible 1x1 image tag for the given pixel URL.
func HTML(pixelURL string) string {
	return `<img src="` + html.EscapeString(pixelURL) +
		`" width="1" height="1" alt="" style="border:0;width:1px;height:1px;" />`
}

// NewID returns a 32-character base64url token from 24 bytes of crypto/rand.
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
