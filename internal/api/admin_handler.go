package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/models"
)

type Broadcaster interface {
	SendBroadcast(ctx context.Context, req models.BroadcastRequest, issuer models.Issuer) (*models.NotificationHistory, error)
}

type HistoryReader interface {
	List(ctx context.Context, page, size int) (models.Page[models.NotificationHistory], error)
	Stats(ctx context.Context, now time.Time) (*models.NotificationStats, error)
}

type HistorySearcher interface {
	Search(ctx context.Context, q string, page, size int) (models.Page[models.NotificationHistory], error)
}

type TemplateStore interface {
	List(ctx context.Context) ([]models.NotificationTemplate, error)
	Get(ctx context.Context, id int64) (*models.NotificationTemplate, error)
	Create(ctx context.Context, req models.TemplateRequest) (*models.NotificationTemplate, error)
	Update(ctx context.Context, id int64, req models.TemplateRequest) (*models.NotificationTemplate, error)
	Delete(ctx context.Context, id int64) error
}

// AdminHandler serves /api/admin/notifications.
type AdminHandler struct {
	broadcaster Broadcaster
	history     HistoryReader
	search      HistorySearcher
	templates   TemplateStore
	now         func() time.Time
}

func NewAdminHandler(b Broadcaster, history HistoryReader, templates TemplateStore, search HistorySearcher) *AdminHandler {
	return &AdminHandler{broadcaster: b, history: history, search: search, templates: templates, now: time.Now}
}

func (h *AdminHandler) Send(c *gin.Context) {
	var req models.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.NewInvalidRequestError("malformed request body: "+err.Error()))
		return
	}

	hist, err := h.broadcaster.SendBroadcast(c.Request.Context(), req, models.Issuer{ID: userID(c), Token: bearer(c)})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := h.history.Stats(c.Request.Context(), h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AdminHandler) History(c *gin.Context) {
	page, size := pageParams(c, 10)
	res, err := h.history.List(c.Request.Context(), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) SearchHistory(c *gin.Context) {
	if h.search == nil {
		writeError(c, errors.NewNotFoundError("history search", "disabled"))
		return
	}
	page, size := pageParams(c, 10)
	res, err := h.search.Search(c.Request.Context(), strings.TrimSpace(c.Query("q")), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) ListTemplates(c *gin.Context) {
	list, err := h.templates.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) GetTemplate(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	tpl, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *AdminHandler) CreateTemplate(c *gin.Context) {
	req, ok := bindTemplate(c)
	if !ok {
		return
	}
	tpl, err := h.templates.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *AdminHandler) UpdateTemplate(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	req, ok := bindTemplate(c)
	if !ok {
		return
	}
	tpl, err := h.templates.Update(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *AdminHandler) DeleteTemplate(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.templates.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindTemplate(c *gin.Context) (models.TemplateRequest, bool) {
	var req models.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.NewInvalidRequestError("malformed request body: "+err.Error()))
		return req, false
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Type = models.Category(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	req.Priority = models.Priority(strings.ToUpper(strings.TrimSpace(string(req.Priority))))
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}

	switch {
	case req.Name == "":
		writeError(c, errors.NewInvalidRequestError("name is required"))
		return req, false
	case !req.Type.Valid():
		writeError(c, errors.NewInvalidRequestError("type must be one of SYSTEM, ANNOUNCEMENT, ALERT, UPDATE"))
		return req, false
	case !req.Priority.Valid():
		writeError(c, errors.NewInvalidRequestError("priority must be one of LOW, NORMAL, HIGH, URGENT"))
		return req, false
	}
	return req, true
}
