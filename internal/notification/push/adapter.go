// Package push delivers notifications to the single device registered per user.
package push

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/common/logger"
	"edumatch-notifications/internal/common/metrics"
	"edumatch-notifications/internal/common/observability"
	"edumatch-notifications/internal/models"
)

const (
	DefaultTitle = "EduMatch Notification"
	DefaultBody  = "You have a new notification"
)

type Outcome string

const (
	OutcomeSent           Outcome = "sent"
	OutcomeSkippedNoToken Outcome = "skipped-no-token"
	OutcomeFailed         Outcome = "failed"
)

// PushMessage is what the consumer hands over after persisting a notification.
type PushMessage struct {
	RecipientID int64
	Title       string
	Body        string
	Type        string
	ReferenceID string
}

// Message is the provider-neutral payload.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers to one provider. IsPermanent reports errors after which the
// token will never work again.
type Sender interface {
	Provider() string
	Send(ctx context.Context, token string, msg Message) error
	IsPermanent(err error) bool
}

// endpointRemover is implemented by providers that keep server-side state
// per token.
type endpointRemover interface {
	RemoveEndpoint(ctx context.Context, token string) error
}

// Tokens resolves and invalidates device tokens.
type Tokens interface {
	Lookup(ctx context.Context, userID int64) (string, error)
	Invalidate(ctx context.Context, userID int64, token string) error
}

type Adapter struct {
	tokens  Tokens
	sender  Sender
	timeout time.Duration
	logger  logger.Logger
}

func NewAdapter(tokens Tokens, sender Sender, timeout time.Duration, log logger.Logger) *Adapter {
	return &Adapter{
		tokens:  tokens,
		sender:  sender,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "push", "provider": sender.Provider()}),
	}
}

// Send never returns an error: every failure is logged and reported as an Outcome.
func (a *Adapter) Send(ctx context.Context, m PushMessage) Outcome {
	ctx, span := observability.StartSpan(ctx, "push.send",
		attribute.Int64("recipient.id", m.RecipientID),
		attribute.String("push.provider", a.sender.Provider()),
	)
	defer span.End()

	outcome := a.send(ctx, m)
	span.SetAttributes(attribute.String("push.outcome", string(outcome)))
	if outcome == OutcomeFailed {
		span.SetStatus(codes.Error, "push failed")
	}
	metrics.PushOutcomes.WithLabelValues(a.sender.Provider(), string(outcome)).Inc()
	return outcome
}

func (a *Adapter) send(ctx context.Context, m PushMessage) Outcome {
	fields := map[string]interface{}{"recipientId": m.RecipientID}

	lookupCtx, cancelLookup := context.WithTimeout(ctx, a.timeout)
	token, err := a.tokens.Lookup(lookupCtx, m.RecipientID)
	cancelLookup()
	if err != nil {
		fields["error"] = err
		a.logger.Error("device token lookup failed", fields)
		return OutcomeFailed
	}
	if token == "" {
		a.logger.Debug("no device token registered", fields)
		return OutcomeSkippedNoToken
	}

	sendCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err = a.sender.Send(sendCtx, token, BuildMessage(m))
	if err == nil {
		a.logger.Debug("push sent", fields)
		return OutcomeSent
	}

	fields["error"] = errors.NewPushDeliveryFailedError(strconv.FormatInt(m.RecipientID, 10), err)
	if !a.sender.IsPermanent(err) {
		a.logger.Warn("push delivery failed", fields)
		return OutcomeFailed
	}

	a.logger.Warn("push token rejected by provider, invalidating", fields)
	a.invalidate(ctx, m.RecipientID, token)
	return OutcomeFailed
}

func (a *Adapter) invalidate(ctx context.Context, userID int64, token string) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.tokens.Invalidate(ctx, userID, token); err != nil {
		a.logger.Error("failed to invalidate device token", map[string]interface{}{
			"recipientId": userID,
			"error":       err,
		})
		return
	}
	metrics.TokensInvalidated.WithLabelValues(a.sender.Provider()).Inc()

	if r, ok := a.sender.(endpointRemover); ok {
		if err := r.RemoveEndpoint(ctx, token); err != nil {
			a.logger.Warn("failed to remove provider endpoint", map[string]interface{}{
				"recipientId": userID,
				"error":       err,
			})
		}
	}
}

// BuildMessage applies the title/body defaults and the data keys every
// client reads.
func BuildMessage(m PushMessage) Message {
	title := m.Title
	if title == "" {
		title = DefaultTitle
	}
	body := m.Body
	if body == "" {
		body = DefaultBody
	}
	typ := m.Type
	if typ == "" {
		typ = models.TypeGeneral
	}

	return Message{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":        typ,
			"referenceId": m.ReferenceID,
			"userId":      strconv.FormatInt(m.RecipientID, 10),
		},
	}
}

// Disabled is used when no provider is configured; every recipient is skipped.
type Disabled struct{}

func (Disabled) Send(context.Context, PushMessage) Outcome { return OutcomeSkippedNoToken }
