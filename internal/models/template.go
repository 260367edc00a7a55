// internal/models/template.go
package models

import "time"

type NotificationTemplate struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        Category  `json:"type"`
	Title       string    `json:"title,omitempty"`
	Message     string    `json:"message,omitempty"`
	ActionURL   string    `json:"actionUrl,omitempty"`
	ActionLabel string    `json:"actionLabel,omitempty"`
	Priority    Priority  `json:"priority,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type TemplateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        Category `json:"type"`
	Title       string   `json:"title"`
	Message     string   `json:"message"`
	ActionURL   string   `json:"actionUrl"`
	ActionLabel string   `json:"actionLabel"`
	Priority    Priority `json:"priority"`
}
