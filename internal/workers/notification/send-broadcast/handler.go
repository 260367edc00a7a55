// internal/workers/notification/send-broadcast/handler.go
package sendbroadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/common/logger"
	"edumatch-notifications/internal/models"
)

const (
	TaskType = "send-broadcast"
)

type Broadcaster interface {
	SendBroadcast(ctx context.Context, req models.BroadcastRequest, issuer models.Issuer) (*models.NotificationHistory, error)
}

// Handler runs an admin broadcast as a process step. Validation and empty
// audiences are thrown as BPMN errors so the process can branch on them.
type Handler struct {
	config       *Config
	broadcaster  Broadcaster
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, broadcaster Broadcaster, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		broadcaster:  broadcaster,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job.Variables)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func parseInput(variables string) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidRequestError("parse input: " + err.Error())
	}
	if input.IssuerID == 0 {
		return nil, errors.NewInvalidRequestError("issuerId is required")
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	hist, err := h.broadcaster.SendBroadcast(ctx, input.BroadcastRequest, models.Issuer{
		ID:    input.IssuerID,
		Token: input.AuthToken,
	})
	if err != nil {
		return nil, err
	}

	status := StatusDelivered
	switch {
	case hist.DeliveredCount == 0:
		status = StatusFailed
	case hist.FailedCount > 0:
		status = StatusPartial
	}

	return &Output{
		HistoryID:       hist.ID,
		TotalRecipients: hist.TotalRecipients,
		DeliveredCount:  hist.DeliveredCount,
		FailedCount:     hist.FailedCount,
		Status:          status,
		SentAt:          hist.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	h.logger.Info("broadcast completed", map[string]interface{}{
		"jobKey":    job.Key,
		"historyId": output.HistoryID,
		"delivered": output.DeliveredCount,
		"failed":    output.FailedCount,
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
