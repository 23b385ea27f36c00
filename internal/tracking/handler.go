package tracking

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/pixel-tracker/internal/domain"
	"github.com/ignite/pixel-tracker/internal/pkg/logger"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// PixelGIF returns a copy of the image served for every pixel fetch.
func PixelGIF() []byte {
	return append([]byte(nil), pixelGIF...)
}

// Recorder is the open write path used by the pixel route.
type Recorder interface {
	RecordOpen(ctx context.Context, pixelID, userAgent, sourceIP string) (*domain.OpenEvent, error)
}

// Handler serves tracking pixels.
type Handler struct {
	rec          Recorder
	writeTimeout time.Duration
	trusted      []netip.Prefix
}

// NewHandler creates a pixel handler. writeTimeout bounds each open write.
// Forwarding headers are honoured only when the connecting peer falls inside
// one of the trusted prefixes.
func NewHandler(rec Recorder, writeTimeout time.Duration, trusted ...netip.Prefix) *Handler {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &Handler{rec: rec, writeTimeout: writeTimeout, trusted: trusted}
}

// ParseTrustedProxies parses CIDRs or bare addresses into prefixes.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Mount registers the pixel route on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/pixel/{pixelId}", h.HandleOpen)
}

// HandleOpen records the fetch and always answers with the GIF. The write is
// detached from the client connection so a mail client that hangs up early
// still gets its open counted.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	pixelID := strings.TrimSuffix(chi.URLParam(r, "pixelId"), ".gif")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.writeTimeout)
	defer cancel()

	h.record(ctx, pixelID, r.UserAgent(), h.clientIP(r))
	servePixel(w)
}

// record never panics; a failed write must not change the response.
func (h *Handler) record(ctx context.Context, pixelID, userAgent, ip string) {
	defer func() {
		if p := recover(); p != nil {
			logger.ErrorCtx(ctx, "record open panicked", "pixel_id", pixelID, "panic", fmt.Sprint(p))
		}
	}()

	if _, err := h.rec.RecordOpen(ctx, pixelID, userAgent, ip); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.DebugCtx(ctx, "pixel fetch for unknown id", "pixel_id", pixelID)
		} else {
			logger.ErrorCtx(ctx, "record open failed", "pixel_id", pixelID, "error", err)
		}
	}
}

func servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(pixelGIF)
}

// clientIP returns the connecting peer unless it is a trusted proxy. Behind a
// trusted proxy the X-Forwarded-For chain is walked right to left and the
// first hop that is not itself trusted wins, so a client cannot choose its
// recorded address by prepending entries.
func (h *Handler) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !h.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		first := ""
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			first = hop
			if !h.isTrusted(hop) {
				return hop
			}
		}
		if first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	return peer
}

func (h *Handler) isTrusted(ip string) bool {
	if len(h.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range h.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
