package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/pixel-tracker/internal/domain"
	"github.com/ignite/pixel-tracker/internal/pkg/httputil"
	"github.com/ignite/pixel-tracker/internal/service/activity"
	"github.com/ignite/pixel-tracker/internal/service/pixel"
)

// PixelIssuer creates pixels.
type PixelIssuer interface {
	Create(ctx context.Context, req pixel.CreateRequest) (*pixel.Issued, error)
}

// Reporter answers the read-only reporting views.
type Reporter interface {
	Status(ctx context.Context, emailID string, includeBots bool) (*domain.EmailStatus, error)
	History(ctx context.Context, pixelID string, includeBots bool) (*domain.PixelHistory, error)
	Dashboard(ctx context.Context, limit int, includeBots bool) ([]domain.EmailRollup, error)
	Feed(ctx context.Context, q activity.FeedQuery) (*domain.ActivityFeed, error)
}

// DashboardResponse wraps the per-email rollups.
type DashboardResponse struct {
	Emails []domain.EmailRollup `json:"emails"`
}

// Handlers contains the reporting API endpoints.
type Handlers struct {
	pixels   PixelIssuer
	reporter Reporter
}

// NewHandlers creates the API handlers.
func NewHandlers(pixels PixelIssuer, reporter Reporter) *Handlers {
	return &Handlers{pixels: pixels, reporter: reporter}
}

// HealthCheck is a liveness probe. It never touches the store.
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// CreatePixel issues a pixel for one recipient of an email.
//
//	POST /pixels
func (h *Handlers) CreatePixel(w http.ResponseWriter, r *http.Request) {
	var req pixel.CreateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	issued, err := h.pixels.Create(r.Context(), req)
	if err != nil {
		httputil.FromError(w, r, err)
		return
	}
	httputil.Created(w, issued)
}

// GetStatus reports per-recipient opens for an email id.
//
//	GET /status/{emailId}?includeBots=
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.reporter.Status(r.Context(), chi.URLParam(r, "emailId"), includeBots(r))
	if err != nil {
		httputil.FromError(w, r, err)
		return
	}
	httputil.OK(w, st)
}

// GetOpens lists one pixel's opens, most recent first.
//
//	GET /opens/{pixelId}?includeBots=
func (h *Handlers) GetOpens(w http.ResponseWriter, r *http.Request) {
	hist, err := h.reporter.History(r.Context(), chi.URLParam(r, "pixelId"), includeBots(r))
	if err != nil {
		httputil.FromError(w, r, err)
		return
	}
	httputil.OK(w, hist)
}

// GetDashboard returns one rollup per recent email id.
//
//	GET /dashboard?limit=&includeBots=
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		httputil.FromError(w, r, err)
		return
	}
	emails, err := h.reporter.Dashboard(r.Context(), limit, includeBots(r))
	if err != nil {
		httputil.FromError(w, r, err)
		return
	}
	httputil.OK(w, DashboardResponse{Emails: emails})
}

// GetActivity returns the chronological open feed. Clients poll with the
// previous response's latestOpenedAt as since.
//
//	GET /activity?limit=&since=&includeBots=
func (h *Handlers) GetActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		httputil.FromError(w, r, err)
		return
	}
	since, err := parseSince(r)
	if err != nil {
		httputil.FromError(w, r, err)
		return
	}
	feed, err := h.reporter.Feed(r.Context(), activity.FeedQuery{
		Limit:       limit,
		Since:       since,
		IncludeBots: includeBots(r),
	})
	if err != nil {
		httputil.FromError(w, r, err)
		return
	}
	httputil.OK(w, feed)
}
