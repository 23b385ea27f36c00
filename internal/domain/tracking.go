package domain

import "time"

// Pixel is one tracking instance for one (email, recipient) pair. The ID is
// the public fetch key and is never reassigned.
type Pixel struct {
	ID        string    `json:"pixelId"`
	EmailID   string    `json:"emailId"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// OpenEvent is one recorded fetch of a pixel image. The bot classification
// is fixed when the row is written and never revised.
type OpenEvent struct {
	ID        int64     `json:"id"`
	PixelID   string    `json:"pixelId"`
	OpenedAt  time.Time `json:"openedAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	IsBot     bool      `json:"isBot"`
	BotReason string    `json:"botReason,omitempty"`
}

// Counts reports whether the event contributes to filtered open counts.
func (e OpenEvent) Counts(includeBots bool) bool {
	return includeBots || !e.IsBot
}

// Classification is the bot heuristic's verdict for a single request.
type Classification struct {
	IsBot  bool   `json:"isBot"`
	Reason string `json:"reason,omitempty"`
}

// PixelSummary is a pixel with its opens aggregated. Opens and the open
// timestamps cover only events that count under the requested bot filter;
// BotOpens is always the number of bot opens.
type PixelSummary struct {
	Pixel         Pixel
	Opens         int
	BotOpens      int
	FirstOpenedAt *time.Time
	LastOpenedAt  *time.Time
}
