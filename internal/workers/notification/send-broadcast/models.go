// internal/workers/notification/send-broadcast/models.go
package sendbroadcast

import "edumatch-notifications/internal/models"

// Input is the process variable set of a send-broadcast job. The broadcast
// fields sit at the top level next to the issuer.
type Input struct {
	models.BroadcastRequest
	IssuerID  int64  `json:"issuerId"`
	AuthToken string `json:"authToken,omitempty"`
}

type Output struct {
	HistoryID       int64  `json:"historyId"`
	TotalRecipients int    `json:"totalRecipients"`
	DeliveredCount  int    `json:"deliveredCount"`
	FailedCount     int    `json:"failedCount"`
	Status          string `json:"status"`
	SentAt          string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusDelivered = "delivered"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)
