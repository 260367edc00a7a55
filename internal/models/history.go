// internal/models/history.go
package models

import "time"

// NotificationHistory is the audit row written once per broadcast.
type NotificationHistory struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	TargetAudience  Audience  `json:"targetAudience"`
	SpecificEmail   string    `json:"specificEmail,omitempty"`
	Type            Category  `json:"type"`
	Priority        Priority  `json:"priority"`
	ActionURL       string    `json:"actionUrl,omitempty"`
	ActionLabel     string    `json:"actionLabel,omitempty"`
	TotalRecipients int       `json:"totalRecipients"`
	DeliveredCount  int       `json:"deliveredCount"`
	FailedCount     int       `json:"failedCount"`
	PendingCount    int       `json:"pendingCount"`
	SendEmail       bool      `json:"sendEmail"`
	CreatedBy       int64     `json:"createdBy"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NotificationStats aggregates every history row.
type NotificationStats struct {
	TotalSent        int64   `json:"totalSent"`
	Delivered        int64   `json:"delivered"`
	Pending          int64   `json:"pending"`
	Failed           int64   `json:"failed"`
	ChangePercentage float64 `json:"changePercentage"`
}
