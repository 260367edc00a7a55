// internal/models/broadcast.go
package models

import "strings"

type Audience string

const (
	AudienceAllUsers   Audience = "ALL_USERS"
	AudienceApplicants Audience = "APPLICANTS"
	AudienceProviders  Audience = "PROVIDERS"
	AudiencePremium    Audience = "PREMIUM"
	AudienceSpecific   Audience = "SPECIFIC"
)

func (a Audience) Valid() bool {
	switch a {
	case AudienceAllUsers, AudienceApplicants, AudienceProviders, AudiencePremium, AudienceSpecific:
		return true
	}
	return false
}

// Category is the admin-facing notification type.
type Category string

const (
	CategorySystem       Category = "SYSTEM"
	CategoryAnnouncement Category = "ANNOUNCEMENT"
	CategoryAlert        Category = "ALERT"
	CategoryUpdate       Category = "UPDATE"
)

func (c Category) Valid() bool {
	switch c {
	case CategorySystem, CategoryAnnouncement, CategoryAlert, CategoryUpdate:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// BroadcastRequest is what an admin submits to notify an audience.
//
// The admin UI sends type, message, specificEmail and sendEmail. Workflow
// callers may use category, body, specificContact and sendEmailFlag instead;
// Normalize folds those into the primary fields.
type BroadcastRequest struct {
	TargetAudience Audience `json:"targetAudience"`
	SpecificEmail  string   `json:"specificEmail,omitempty"`
	Type           Category `json:"type"`
	Priority       Priority `json:"priority"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	ActionURL      string   `json:"actionUrl,omitempty"`
	ActionLabel    string   `json:"actionLabel,omitempty"`
	SendEmail      bool     `json:"sendEmail"`

	Category        Category `json:"category,omitempty"`
	Body            string   `json:"body,omitempty"`
	SpecificContact string   `json:"specificContact,omitempty"`
	SendEmailFlag   bool     `json:"sendEmailFlag,omitempty"`
}

// Normalize folds the alternate field names into the primary ones, then
// upper-cases enum fields and trims free text so "all_users" and
// " ALL_USERS" are accepted.
func (r *BroadcastRequest) Normalize() {
	if r.Type == "" {
		r.Type = r.Category
	}
	if r.Message == "" {
		r.Message = r.Body
	}
	if strings.TrimSpace(r.SpecificEmail) == "" {
		r.SpecificEmail = r.SpecificContact
	}
	r.SendEmail = r.SendEmail || r.SendEmailFlag
	r.Category, r.Body, r.SpecificContact, r.SendEmailFlag = "", "", "", false

	r.TargetAudience = Audience(strings.ToUpper(strings.TrimSpace(string(r.TargetAudience))))
	r.Type = Category(strings.ToUpper(strings.TrimSpace(string(r.Type))))
	r.Priority = Priority(strings.ToUpper(strings.TrimSpace(string(r.Priority))))
	r.SpecificEmail = strings.TrimSpace(r.SpecificEmail)
	r.Title = strings.TrimSpace(r.Title)
}

// Issuer identifies the admin on whose behalf a broadcast runs. Token is
// forwarded to the user directory.
type Issuer struct {
	ID    int64
	Token string
}

// BroadcastEvent is the per-recipient message the dispatcher publishes.
type BroadcastEvent struct {
	RecipientID int64   `json:"recipientId"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	Type        string  `json:"type"`
	ReferenceID *string `json:"referenceId"`
	Email       string  `json:"email,omitempty"`
}

// BroadcastEventType is the consumer-facing type of a broadcast of category c.
func BroadcastEventType(c Category) string {
	return "ADMIN_" + string(c)
}
