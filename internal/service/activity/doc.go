// Package activity turns raw open events into read-only reporting views:
// status by email, history by pixel, dashboard rollups, and a chronological
// feed that supports incremental polling with a "since" cursor.
//
// Every view excludes bot-classified opens unless the caller asks for them.
// Bot opens are still surfaced as separate counts so automated traffic is
// visible without inflating human open numbers. There is no cache: each call
// reads the store.
package activity
