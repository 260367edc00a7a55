// Package api is the HTTP surface of the notification service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edumatch-notifications/internal/common/logger"
)

// Checker reports whether a dependency is usable.
type Checker func(ctx context.Context) error

type Deps struct {
	Auth          AuthConfig
	Admin         *AdminHandler
	Notifications *NotificationHandler
	Tokens        *TokenHandler
	Ready         map[string]Checker
	Logger        logger.Logger
	Release       bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(d.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Format(time.RFC3339)})
	})
	r.GET("/ready", readyHandler(d.Ready))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/api", AuthRequired(d.Auth))

	admin := authed.Group("/admin/notifications", AdminRequired())
	admin.POST("/send", d.Admin.Send)
	admin.GET("/stats", d.Admin.Stats)
	admin.GET("/history", d.Admin.History)
	admin.GET("/history/search", d.Admin.SearchHistory)
	admin.GET("/templates", d.Admin.ListTemplates)
	admin.POST("/templates", d.Admin.CreateTemplate)
	admin.GET("/templates/:id", d.Admin.GetTemplate)
	admin.PUT("/templates/:id", d.Admin.UpdateTemplate)
	admin.DELETE("/templates/:id", d.Admin.DeleteTemplate)

	authed.GET("/notifications", d.Notifications.List)
	authed.GET("/notifications/unread-count", d.Notifications.UnreadCount)
	authed.PATCH("/notifications/:id/read", d.Notifications.MarkRead)

	authed.POST("/fcm/register", d.Tokens.Register)
	authed.DELETE("/fcm/register", d.Tokens.Unregister)
	authed.POST("/fcm/test", d.Tokens.TestPush)

	return r
}

func readyHandler(checks map[string]Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "checks": results, "time": time.Now().Format(time.RFC3339)})
	}
}
