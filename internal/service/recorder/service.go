package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/pixel-tracker/internal/domain"
	"github.com/ignite/pixel-tracker/internal/metrics"
	"github.com/ignite/pixel-tracker/internal/pkg/logger"
)

// Service records pixel opens. It is safe for concurrent use.
type Service struct {
	repo       Repository
	classifier Classifier
	notifier   Notifier
	now        func() time.Time
}

// NewService creates a recorder. notifier may be nil.
func NewService(repo Repository, classifier Classifier, notifier Notifier) *Service {
	return &Service{
		repo:       repo,
		classifier: classifier,
		notifier:   notifier,
		now:        time.Now,
	}
}

// RecordOpen appends one open event for pixelID. It returns domain.ErrNotFound
// without writing anything when the pixel does not exist.
func (s *Service) RecordOpen(ctx context.Context, pixelID, userAgent, sourceIP string) (*domain.OpenEvent, error) {
	if pixelID == "" {
		metrics.UnknownPixelFetches.Inc()
		return nil, fmt.Errorf("record open: %w", domain.ErrNotFound)
	}

	p, err := s.repo.GetPixel(ctx, pixelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.UnknownPixelFetches.Inc()
		} else {
			metrics.OpenWriteFailures.Inc()
		}
		return nil, fmt.Errorf("record open: %w", err)
	}

	verdict := s.classifier.Classify(userAgent, sourceIP)
	e := &domain.OpenEvent{
		PixelID:   p.ID,
		OpenedAt:  s.now().UTC().Truncate(time.Microsecond),
		IPAddress: sourceIP,
		UserAgent: userAgent,
		IsBot:     verdict.IsBot,
		BotReason: verdict.Reason,
	}

	if err := s.repo.InsertOpen(ctx, e); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.UnknownPixelFetches.Inc()
		} else {
			metrics.OpenWriteFailures.Inc()
		}
		return nil, fmt.Errorf("record open: %w", err)
	}

	metrics.OpensRecorded.WithLabelValues(classificationLabel(e.IsBot)).Inc()
	logger.DebugCtx(ctx, "open recorded",
		"pixel_id", e.PixelID, "event_id", e.ID, "is_bot", e.IsBot, "bot_reason", e.BotReason)

	if s.notifier != nil {
		s.notifier.OpenRecorded(ctx, p, e)
	}
	return e, nil
}

func classificationLabel(isBot bool) string {
	if isBot {
		return "bot"
	}
	return "human"
}
