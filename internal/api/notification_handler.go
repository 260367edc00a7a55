package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"edumatch-notifications/internal/models"
)

type Inbox interface {
	ListForUsers(ctx context.Context, userIDs []int64, page, size int) (models.Page[models.Notification], error)
	MarkRead(ctx context.Context, id int64, userIDs []int64) error
	CountUnread(ctx context.Context, userIDs []int64) (int64, error)
}

// NotificationHandler serves the caller's own notifications.
type NotificationHandler struct {
	inbox Inbox
}

func NewNotificationHandler(inbox Inbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

func (h *NotificationHandler) List(c *gin.Context) {
	page, size := pageParams(c, 20)
	res, err := h.inbox.ListForUsers(c.Request.Context(), inboxOwners(c), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.inbox.MarkRead(c.Request.Context(), id, inboxOwners(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.inbox.CountUnread(c.Request.Context(), inboxOwners(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
