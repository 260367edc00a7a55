package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"edumatch-notifications/internal/common/errors"
	"edumatch-notifications/internal/common/logger"
	"edumatch-notifications/internal/models"
)

const (
	ctxUserID  = "user_id"
	ctxIsAdmin = "is_admin"
	ctxToken   = "token"
)

// Claims is the access token issued by the auth service. Roles is a
// comma-separated list; when userId is absent the subject must be numeric.
type Claims struct {
	UserID models.FlexInt64 `json:"userId"`
	Roles  string           `json:"roles"`
	jwt.RegisteredClaims
}

// AuthConfig verifies access tokens.
type AuthConfig struct {
	Secret    string
	Issuer    string
	AdminRole string
}

func (c AuthConfig) parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if c.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(c.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (c *Claims) userID() (int64, bool) {
	if c.UserID.Valid {
		return c.UserID.Value, true
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	return id, err == nil
}

func (c *Claims) hasRole(role string) bool {
	for _, r := range strings.Split(c.Roles, ",") {
		if strings.TrimSpace(r) == role {
			return true
		}
	}
	return false
}

// AuthRequired validates the bearer token and stores the caller's identity.
func AuthRequired(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, errors.NewUnauthorizedError("missing authorization header"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, errors.NewUnauthorizedError("invalid authorization format"))
			return
		}

		claims, err := cfg.parse(parts[1])
		if err != nil {
			abortWithError(c, errors.NewUnauthorizedError("invalid or expired token"))
			return
		}
		userID, ok := claims.userID()
		if !ok {
			abortWithError(c, errors.NewUnauthorizedError("token carries no user id"))
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxIsAdmin, claims.hasRole(cfg.AdminRole))
		c.Set(ctxToken, parts[1])
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isAdmin(c) {
			abortWithError(c, errors.NewForbiddenError("admin access required"))
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request failed", fields)
			return
		}
		log.Debug("request", fields)
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}

func bearer(c *gin.Context) string {
	return c.GetString(ctxToken)
}

// inboxOwners lists the user ids whose notifications the caller reads.
// Admins also read the shared admin inbox.
func inboxOwners(c *gin.Context) []int64 {
	if isAdmin(c) {
		return []int64{userID(c), models.AdminInboxUserID}
	}
	return []int64{userID(c)}
}
