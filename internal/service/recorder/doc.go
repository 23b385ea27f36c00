// Package recorder appends open events when a pixel is fetched.
//
// RecordOpen looks the pixel up, classifies the request with the bot
// heuristic, and appends exactly one OpenEvent. Fetches for unknown ids write
// nothing. The caller (the pixel HTTP route) serves the image regardless of
// the outcome, so every error here is operational, never user-visible.
package recorder
