package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/pixel-tracker/internal/domain"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestFromError_MapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: emailId is required", domain.ErrInvalidArgument), http.StatusBadRequest, CodeInvalidArgument},
		{domain.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{fmt.Errorf("pixel x: %w", domain.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{fmt.Errorf("list: %w: %w", domain.ErrStorage, errors.New("database is locked")), http.StatusInternalServerError, CodeStorageFailure},
		{errors.New("surprise"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		FromError(w, httptest.NewRequest(http.MethodGet, "/x", nil), tc.err)

		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		body := decodeError(t, w)
		assert.Equal(t, tc.code, body.Code)
		if tc.status == http.StatusInternalServerError {
			assert.Equal(t, "internal server error", body.Error)
			assert.NotContains(t, w.Body.String(), "database is locked")
		}
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	w := httptest.NewRecorder()
	ok := Decode(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`)), &dst)
	assert.True(t, ok)
	assert.Equal(t, "x", dst.Name)

	w = httptest.NewRecorder()
	ok = Decode(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`)), &dst)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidArgument, decodeError(t, w).Code)

	w = httptest.NewRecorder()
	ok = Decode(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &dst)
	assert.False(t, ok)
	assert.Equal(t, "request body is required", decodeError(t, w).Error)
}

func TestJSON_SetsContentType(t *testing.T) {
	w := httptest.NewRecorder()
	Created(w, map[string]string{"pixelId": "abc"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"pixelId":"abc"}`, w.Body.String())
}
