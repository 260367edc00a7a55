// Package dispatcher fans an admin broadcast out to one bus event per recipient.
package dispatcher

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/common/logger"
	"edumatch-notifications/internal/common/messaging"
	"edumatch-notifications/internal/common/metrics"
	"edumatch-notifications/internal/common/observability"
	"edumatch-notifications/internal/common/validation"
	"edumatch-notifications/internal/models"
	"edumatch-notifications/internal/notification/recipients"
)

// RoutingKey carries every broadcast-derived event.
const RoutingKey = "notification.application.status"

var requestSchema = validation.MustCompile(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["targetAudience", "type", "priority", "title"],
	"properties": {
		"targetAudience": {"enum": ["ALL_USERS", "APPLICANTS", "PROVIDERS", "PREMIUM", "SPECIFIC"]},
		"type":           {"enum": ["SYSTEM", "ANNOUNCEMENT", "ALERT", "UPDATE"]},
		"priority":       {"enum": ["LOW", "NORMAL", "HIGH", "URGENT"]},
		"title":          {"type": "string", "minLength": 1, "maxLength": 255},
		"message":        {"type": "string"},
		"specificEmail":  {"type": "string"},
		"actionUrl":      {"type": "string", "maxLength": 2048},
		"actionLabel":    {"type": "string", "maxLength": 100}
	},
	"if": {"properties": {"targetAudience": {"const": "SPECIFIC"}}},
	"then": {
		"required": ["specificEmail"],
		"properties": {"specificEmail": {"minLength": 1}}
	}
}`)

type Resolver interface {
	Resolve(ctx context.Context, sel recipients.Selector) ([]models.Recipient, error)
}

type HistoryStore interface {
	Insert(ctx context.Context, h *models.NotificationHistory) error
}

// HistoryIndexer mirrors finished broadcasts for search. Indexing errors are
// logged only.
type HistoryIndexer interface {
	Index(ctx context.Context, h *models.NotificationHistory) error
}

type Options struct {
	Workers        int
	PublishTimeout time.Duration
}

type Dispatcher struct {
	resolver  Resolver
	publisher messaging.Publisher
	history   HistoryStore
	index     HistoryIndexer
	obs       *observability.Observability
	opts      Options
	logger    logger.Logger
}

func New(resolver Resolver, publisher messaging.Publisher, history HistoryStore, opts Options, log logger.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	return &Dispatcher{
		resolver:  resolver,
		publisher: publisher,
		history:   history,
		opts:      opts,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

func (d *Dispatcher) WithIndex(idx HistoryIndexer) *Dispatcher {
	d.index = idx
	return d
}

func (d *Dispatcher) WithObservability(obs *observability.Observability) *Dispatcher {
	d.obs = obs
	return d
}

// SendBroadcast resolves the audience, publishes one event per recipient and
// records the tallies in a single history row. Per-recipient publish
// failures are counted, never returned.
func (d *Dispatcher) SendBroadcast(ctx context.Context, req models.BroadcastRequest, issuer models.Issuer) (*models.NotificationHistory, error) {
	ctx, span := observability.StartSpan(ctx, "dispatcher.send_broadcast",
		attribute.String("broadcast.audience", string(req.TargetAudience)),
		attribute.Int64("broadcast.issuer", issuer.ID),
	)
	defer span.End()

	history, err := d.sendBroadcast(ctx, req, issuer)
	audience := string(req.TargetAudience)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.BroadcastsTotal.WithLabelValues(audience, string(errors.AsStandard(err).Code)).Inc()
		return nil, err
	}

	metrics.BroadcastsTotal.WithLabelValues(audience, "completed").Inc()
	span.SetAttributes(
		attribute.Int("broadcast.total", history.TotalRecipients),
		attribute.Int("broadcast.delivered", history.DeliveredCount),
		attribute.Int("broadcast.failed", history.FailedCount),
	)
	return history, nil
}

func (d *Dispatcher) sendBroadcast(ctx context.Context, req models.BroadcastRequest, issuer models.Issuer) (*models.NotificationHistory, error) {
	req.Normalize()
	if err := Validate(req); err != nil {
		return nil, err
	}

	recips, err := d.resolver.Resolve(ctx, recipients.Selector{
		Audience:  req.TargetAudience,
		Contact:   req.SpecificEmail,
		AuthToken: issuer.Token,
	})
	if err != nil {
		return nil, err
	}
	if len(recips) == 0 {
		d.logger.Warn("broadcast resolved no recipients", map[string]interface{}{
			"targetAudience": req.TargetAudience,
			"issuerId":       issuer.ID,
		})
		return nil, errors.NewNoRecipientsError(string(req.TargetAudience))
	}

	metrics.BroadcastRecipients.WithLabelValues(string(req.TargetAudience)).Observe(float64(len(recips)))
	d.obs.RecordFanout(ctx, string(req.TargetAudience), len(recips))

	// once fan-out starts the broadcast runs to completion and is recorded
	runCtx := context.WithoutCancel(ctx)
	delivered, failed := d.fanOut(runCtx, req, recips)

	history := &models.NotificationHistory{
		Title:           req.Title,
		Message:         req.Message,
		TargetAudience:  req.TargetAudience,
		SpecificEmail:   req.SpecificEmail,
		Type:            req.Type,
		Priority:        req.Priority,
		ActionURL:       req.ActionURL,
		ActionLabel:     req.ActionLabel,
		TotalRecipients: len(recips),
		DeliveredCount:  delivered,
		FailedCount:     failed,
		PendingCount:    0,
		SendEmail:       req.SendEmail,
		CreatedBy:       issuer.ID,
	}
	if err := d.history.Insert(runCtx, history); err != nil {
		return nil, err
	}

	d.logger.Info("broadcast sent", map[string]interface{}{
		"historyId":      history.ID,
		"targetAudience": history.TargetAudience,
		"total":          history.TotalRecipients,
		"delivered":      history.DeliveredCount,
		"failed":         history.FailedCount,
	})

	if d.index != nil {
		if err := d.index.Index(runCtx, history); err != nil {
			d.logger.Warn("failed to index broadcast history", map[string]interface{}{
				"historyId": history.ID,
				"error":     err,
			})
		}
	}

	return history, nil
}

// fanOut publishes in resolver order through at most opts.Workers concurrent
// publishes.
func (d *Dispatcher) fanOut(ctx context.Context, req models.BroadcastRequest, recips []models.Recipient) (int, int) {
	var delivered, failed atomic.Int64
	eventType := models.BroadcastEventType(req.Type)

	var g errgroup.Group
	g.SetLimit(d.opts.Workers)

	for _, r := range recips {
		g.Go(func() error {
			event := models.BroadcastEvent{
				RecipientID: r.ID,
				Title:       req.Title,
				Body:        req.Message,
				Type:        eventType,
				ReferenceID: nil,
			}
			if req.SendEmail {
				event.Email = r.Email
			}

			if err := d.publish(ctx, event); err != nil {
				failed.Add(1)
				metrics.RecipientPublishes.WithLabelValues("failed").Inc()
				d.logger.Warn("failed to publish recipient event", map[string]interface{}{
					"error": errors.NewRecipientPublishFailedError(strconv.FormatInt(r.ID, 10), err),
				})
				return nil
			}
			delivered.Add(1)
			metrics.RecipientPublishes.WithLabelValues("published").Inc()
			return nil
		})
	}
	_ = g.Wait()

	return int(delivered.Load()), int(failed.Load())
}

func (d *Dispatcher) publish(ctx context.Context, event models.BroadcastEvent) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.PublishTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = errors.NewRecipientPublishFailedError(strconv.FormatInt(event.RecipientID, 10), panicError{r})
		}
	}()
	return d.publisher.Publish(ctx, RoutingKey, event)
}

// Validate checks a normalized request.
func Validate(req models.BroadcastRequest) error {
	violations, err := requestSchema.Validate(req)
	if err != nil {
		return errors.NewInvalidRequestError(err.Error())
	}
	if len(violations) > 0 {
		return errors.NewInvalidRequestError(validation.Join(violations))
	}
	return nil
}

// panicError wraps a value recovered from a publisher panic.
type panicError struct {
	value interface{}
}

func (p panicError) Error() string {
	return fmt.Sprintf("publish panicked: %v", p.value)
}
