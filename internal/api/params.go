package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/pixel-tracker/internal/domain"
)

// includeBots reads the includeBots flag. Anything that is not a boolean
// literal means false.
func includeBots(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("includeBots"))
	return err == nil && v
}

// parseLimit reads the limit parameter. Absent means 0 so the service
// applies its default; a non-integer is rejected.
func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer", domain.ErrInvalidArgument)
	}
	return n, nil
}

// parseSince reads an RFC 3339 since timestamp. Absent means nil.
func parseSince(r *http.Request) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("since"))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: since must be an RFC 3339 timestamp", domain.ErrInvalidArgument)
	}
	return &t, nil
}
