// Package api wires the HTTP surface: the public pixel route, liveness and
// metrics, and the API-key protected reporting endpoints.
package api
