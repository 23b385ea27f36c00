// Package pixel issues tracking pixels.
//
// A pixel binds an unguessable identifier to one (email id, recipient,
// subject) triple. The service persists that binding through the Repository
// interface and hands the caller the fetch URL and the HTML snippet to embed
// in the message body. No open is recorded at issuance.
//
// The service layer contains pure business logic. It never imports net/http
// or database/sql directly.
package pixel
