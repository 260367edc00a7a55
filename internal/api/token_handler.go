package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/notification/push"
)

type TokenRegistry interface {
	Register(ctx context.Context, userID int64, token string) error
	Unregister(ctx context.Context, userID int64) error
}

type Pusher interface {
	Send(ctx context.Context, m push.PushMessage) push.Outcome
}

// TokenHandler manages the caller's device registration.
type TokenHandler struct {
	tokens TokenRegistry
	pusher Pusher
}

func NewTokenHandler(tokens TokenRegistry, pusher Pusher) *TokenHandler {
	return &TokenHandler{tokens: tokens, pusher: pusher}
}

type registerRequest struct {
	FCMToken string `json:"fcmToken"`
	Token    string `json:"token"`
}

func (h *TokenHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.NewInvalidRequestError("malformed request body: "+err.Error()))
		return
	}

	token := strings.TrimSpace(req.FCMToken)
	if token == "" {
		token = strings.TrimSpace(req.Token)
	}
	if token == "" {
		writeError(c, errors.NewInvalidRequestError("fcmToken is required"))
		return
	}

	if err := h.tokens.Register(c.Request.Context(), userID(c), token); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token registered"})
}

func (h *TokenHandler) Unregister(c *gin.Context) {
	if err := h.tokens.Unregister(c.Request.Context(), userID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type testPushRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// TestPush sends a push to the caller's own device without persisting anything.
func (h *TokenHandler) TestPush(c *gin.Context) {
	var req testPushRequest
	_ = c.ShouldBindJSON(&req)

	outcome := h.pusher.Send(c.Request.Context(), push.PushMessage{
		RecipientID: userID(c),
		Title:       req.Title,
		Body:        req.Body,
		Type:        "TEST",
	})
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}
