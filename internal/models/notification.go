// internal/models/notification.go
package models

import "time"

// AdminInboxUserID is the shared recipient of admin-facing notifications
// (new applications, scholarships pending review). Every admin reads it.
const AdminInboxUserID int64 = -1

// Notification is the persisted in-app record of one delivered event.
type Notification struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Type        string    `json:"type"`
	ReferenceID string    `json:"referenceId"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Notification types produced by event classification.
const (
	TypeScholarshipApproved = "SCHOLARSHIP_APPROVED"
	TypeScholarshipRejected = "SCHOLARSHIP_REJECTED"
	TypeNewApplicationAdmin = "NEW_APPLICATION_ADMIN"
	TypeNewScholarshipAdmin = "NEW_SCHOLARSHIP_ADMIN"
	TypeApplicationStatus   = "APPLICATION_STATUS"
	TypeNewMatch            = "NEW_MATCH"
	TypeGeneral             = "GENERAL"
)

// Page is one page of an ordered listing.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func NewPage[T any](content []T, page, size int, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{Content: content, Page: page, Size: size, TotalElements: total, TotalPages: pages}
}
