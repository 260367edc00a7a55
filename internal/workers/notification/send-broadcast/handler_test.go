// internal/workers/notification/send-broadcast/handler_test.go
package sendbroadcast

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumatch-notifications/internal/common/config"
	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/common/logger"
	"edumatch-notifications/internal/models"
)

type MockBroadcaster struct {
	req               models.BroadcastRequest
	issuer            models.Issuer
	SendBroadcastFunc func(ctx context.Context, req models.BroadcastRequest, issuer models.Issuer) (*models.NotificationHistory, error)
}

func (m *MockBroadcaster) SendBroadcast(ctx context.Context, req models.BroadcastRequest, issuer models.Issuer) (*models.NotificationHistory, error) {
	m.req, m.issuer = req, issuer
	return m.SendBroadcastFunc(ctx, req, issuer)
}

func historyWith(total, delivered, failed int) func(context.Context, models.BroadcastRequest, models.Issuer) (*models.NotificationHistory, error) {
	return func(context.Context, models.BroadcastRequest, models.Issuer) (*models.NotificationHistory, error) {
		return &models.NotificationHistory{
			ID:              31,
			TotalRecipients: total,
			DeliveredCount:  delivered,
			FailedCount:     failed,
			CreatedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		}, nil
	}
}

func TestParseInput(t *testing.T) {
	input, err := parseInput(`{
		"issuerId": 4,
		"authToken": "tok",
		"targetAudience": "APPLICANTS",
		"type": "ANNOUNCEMENT",
		"priority": "NORMAL",
		"title": "Deadline extended",
		"message": "Applications close Friday",
		"sendEmail": true
	}`)
	require.NoError(t, err)
	assert.Equal(t, int64(4), input.IssuerID)
	assert.Equal(t, "tok", input.AuthToken)
	assert.Equal(t, models.AudienceApplicants, input.TargetAudience)
	assert.Equal(t, "Deadline extended", input.Title)
	assert.True(t, input.SendEmail)

	_, err = parseInput(`{"title": "x"}`)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidRequest))

	_, err = parseInput(`not json`)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidRequest))
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name       string
		send       func(context.Context, models.BroadcastRequest, models.Issuer) (*models.NotificationHistory, error)
		wantStatus string
	}{
		{name: "everyone reached", send: historyWith(3, 3, 0), wantStatus: StatusDelivered},
		{name: "some publishes failed", send: historyWith(3, 2, 1), wantStatus: StatusPartial},
		{name: "no publish succeeded", send: historyWith(2, 0, 2), wantStatus: StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &MockBroadcaster{SendBroadcastFunc: tt.send}
			h := NewHandler(LoadConfig(nil), b, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{
				BroadcastRequest: models.BroadcastRequest{TargetAudience: models.AudienceAllUsers, Title: "Hi"},
				IssuerID:         4,
				AuthToken:        "tok",
			})

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, int64(31), out.HistoryID)
			assert.Equal(t, "2026-03-01T09:00:00Z", out.SentAt)
			assert.Equal(t, models.Issuer{ID: 4, Token: "tok"}, b.issuer)
			assert.Equal(t, "Hi", b.req.Title)
		})
	}
}

func TestHandler_Execute_PropagatesBusinessErrors(t *testing.T) {
	b := &MockBroadcaster{SendBroadcastFunc: func(context.Context, models.BroadcastRequest, models.Issuer) (*models.NotificationHistory, error) {
		return nil, errors.NewNoRecipientsError("PROVIDERS")
	}}
	h := NewHandler(LoadConfig(nil), b, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{IssuerID: 1})

	require.Error(t, err)
	bpmn := errors.ConvertToBPMNError(errors.AsStandard(err))
	assert.Equal(t, "NO_RECIPIENTS", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)
}

func TestHandler_Execute_TechnicalError(t *testing.T) {
	b := &MockBroadcaster{SendBroadcastFunc: func(context.Context, models.BroadcastRequest, models.Issuer) (*models.NotificationHistory, error) {
		return nil, errors.NewDatabaseInsertFailedError(fmt.Errorf("connection reset"))
	}}
	h := NewHandler(LoadConfig(nil), b, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), &Input{IssuerID: 1})

	bpmn := errors.ConvertToBPMNError(errors.AsStandard(err))
	assert.True(t, bpmn.Retryable)
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 2*time.Minute, LoadConfig(nil).Timeout)

	cfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, Timeout: 45000},
	}}
	assert.Equal(t, 45*time.Second, LoadConfig(cfg).Timeout)
}
