package domain

import "time"

// RecipientStatus summarises opens for one pixel of an email.
type RecipientStatus struct {
	PixelID       string     `json:"pixelId"`
	Recipient     string     `json:"recipient"`
	Subject       string     `json:"subject,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	OpenCount     int        `json:"openCount"`
	BotOpenCount  int        `json:"botOpenCount"`
	FirstOpenedAt *time.Time `json:"firstOpenedAt"`
	LastOpenedAt  *time.Time `json:"lastOpenedAt"`
	Opened        bool       `json:"opened"`
}

// EmailStatus is the per-recipient status view for one email id.
type EmailStatus struct {
	EmailID     string            `json:"emailId"`
	IncludeBots bool              `json:"includeBots"`
	Recipients  []RecipientStatus `json:"recipients"`
}

// PixelHistory lists the opens of one pixel, most recent first.
type PixelHistory struct {
	PixelID     string      `json:"pixelId"`
	IncludeBots bool        `json:"includeBots"`
	Count       int         `json:"count"`
	Opens       []OpenEvent `json:"opens"`
}

// EmailRollup aggregates every recipient of one email for the dashboard.
type EmailRollup struct {
	EmailID          string            `json:"emailId"`
	Subject          string            `json:"subject,omitempty"`
	SentAt           time.Time         `json:"sentAt"`
	TotalRecipients  int               `json:"totalRecipients"`
	RecipientsOpened int               `json:"recipientsOpened"`
	TotalOpens       int               `json:"totalOpens"`
	BotOpens         int               `json:"botOpens"`
	LastOpenedAt     *time.Time        `json:"lastOpenedAt"`
	Recipients       []RecipientStatus `json:"recipients"`
}

// ActivityItem is an open event joined with its pixel's email metadata.
type ActivityItem struct {
	OpenEvent
	EmailID   string `json:"emailId"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
}

// ActivityFeed is one page of the chronological open feed. NewCount counts
// every matching event newer than Since, independent of the page size.
type ActivityFeed struct {
	Opens          []ActivityItem `json:"opens"`
	NewCount       int            `json:"newCount"`
	Since          *time.Time     `json:"since,omitempty"`
	LatestOpenedAt *time.Time     `json:"latestOpenedAt,omitempty"`
}
