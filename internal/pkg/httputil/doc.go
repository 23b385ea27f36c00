// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Every handler should use these helpers instead of writing raw
// http.ResponseWriter calls, so the error envelope and its stable codes stay
// the same across endpoints.
package httputil
