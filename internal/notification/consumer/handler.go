// Package consumer materializes bus events into persisted notifications and
// delivers them to the recipient's device.
package consumer

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/common/logger"
	"edumatch-notifications/internal/common/messaging"
	"edumatch-notifications/internal/common/metrics"
	"edumatch-notifications/internal/common/observability"
	"edumatch-notifications/internal/models"
	"edumatch-notifications/internal/notification/email"
	"edumatch-notifications/internal/notification/push"
)

const (
	outcomeMaterialized = "materialized"
	outcomeMalformed    = "malformed"
	outcomePersistError = "persist_failed"
	outcomeRejected     = "rejected"
)

// Column widths of the notifications table.
const (
	maxTitleLen     = 255
	maxTypeLen      = 64
	maxReferenceLen = 255
)

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

type Pusher interface {
	Send(ctx context.Context, m push.PushMessage) push.Outcome
}

type Mailer interface {
	Send(ctx context.Context, c email.Copy) error
}

// Result is what processing one event produced.
type Result struct {
	Notification *models.Notification
	Push         push.Outcome
	Rule         string
}

type Handler struct {
	store        NotificationStore
	pusher       Pusher
	mailer       Mailer
	emailTimeout time.Duration
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(store NotificationStore, pusher Pusher, log logger.Logger) *Handler {
	return &Handler{
		store:        store,
		pusher:       pusher,
		emailTimeout: 5 * time.Second,
		logger:       log.WithFields(map[string]interface{}{"component": "consumer"}),
	}
}

// WithMailer enables the email copy for events that carry an address.
func (h *Handler) WithMailer(m Mailer, timeout time.Duration) *Handler {
	h.mailer = m
	if timeout > 0 {
		h.emailTimeout = timeout
	}
	return h
}

func (h *Handler) WithObservability(obs *observability.Observability) *Handler {
	h.obs = obs
	return h
}

// Handle is the messaging.Handler of the notification queue. Malformed
// events are acked and dropped, rows the database refuses are rejected and
// any other failed insert is requeued.
func (h *Handler) Handle(ctx context.Context, msg messaging.Message) messaging.Decision {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "consumer.handle",
		attribute.String("messaging.routing_key", msg.RoutingKey),
		attribute.String("messaging.message_id", msg.MessageID),
	)
	defer span.End()

	res, err := h.Process(ctx, msg.Body)

	outcome := outcomeMaterialized
	decision := messaging.Ack
	eventType := "unknown"
	if res != nil {
		eventType = res.Notification.Type
	}

	switch {
	case err == nil:
	case errors.AsStandard(err).Code == errors.ErrCodeMalformedEvent:
		outcome = outcomeMalformed
		h.logger.Warn("dropping malformed event", map[string]interface{}{
			"routingKey": msg.RoutingKey,
			"messageId":  msg.MessageID,
			"error":      err,
		})
	case errors.AsStandard(err).Code == errors.ErrCodeDatabaseDataRejected:
		outcome = outcomeRejected
		decision = messaging.Reject
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("database rejected notification, discarding", map[string]interface{}{
			"routingKey": msg.RoutingKey,
			"messageId":  msg.MessageID,
			"error":      err,
		})
	default:
		outcome = outcomePersistError
		decision = messaging.Requeue
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("failed to persist notification, requeueing", map[string]interface{}{
			"routingKey":  msg.RoutingKey,
			"messageId":   msg.MessageID,
			"redelivered": msg.Redelivered,
			"error":       err,
		})
	}

	metrics.EventsConsumed.WithLabelValues(eventType, outcome).Inc()
	metrics.EventHandleDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	h.obs.RecordEventProcessed(ctx, outcome, time.Since(start))
	return decision
}

// Process decodes, classifies and persists one event, then pushes it and
// sends the email copy. Only decode and persistence failures are returned.
func (h *Handler) Process(ctx context.Context, body []byte) (*Result, error) {
	var event models.NotificationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, errors.NewMalformedEventError("undecodable body: " + err.Error())
	}

	recipientID, ok := event.Recipient()
	if !ok {
		return nil, errors.NewMalformedEventError("no recipient id in event")
	}

	c, ruleName := classify(&event)
	n := &models.Notification{
		UserID:      recipientID,
		Title:       truncate(c.Title, maxTitleLen),
		Body:        c.Body,
		Type:        truncate(c.Type, maxTypeLen),
		ReferenceID: truncate(c.ReferenceID, maxReferenceLen),
	}
	if err := h.store.Create(ctx, n); err != nil {
		return nil, err
	}

	h.logger.Info("notification stored", map[string]interface{}{
		"notificationId": n.ID,
		"recipientId":    n.UserID,
		"type":           n.Type,
		"rule":           ruleName,
	})

	outcome := h.pusher.Send(ctx, push.PushMessage{
		RecipientID: n.UserID,
		Title:       n.Title,
		Body:        n.Body,
		Type:        n.Type,
		ReferenceID: n.ReferenceID,
	})

	if event.Email.Valid && h.mailer != nil {
		h.sendEmail(ctx, n, event.Email.Value)
	}

	return &Result{Notification: n, Push: outcome, Rule: ruleName}, nil
}

func (h *Handler) sendEmail(ctx context.Context, n *models.Notification, to string) {
	ctx, cancel := context.WithTimeout(ctx, h.emailTimeout)
	defer cancel()

	err := h.mailer.Send(ctx, email.Copy{To: to, Title: n.Title, Body: n.Body, Type: n.Type})
	if err != nil {
		h.logger.Warn("email copy failed", map[string]interface{}{
			"notificationId": n.ID,
			"recipientId":    n.UserID,
			"error":          err,
		})
	}
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
