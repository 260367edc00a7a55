package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"edumatch-notifications/internal/common/errors"
)

const maxPageSize = 100

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeError(c *gin.Context, err error) {
	std := errors.AsStandard(err)
	status := errors.HTTPStatus(std.Code)
	details := std.Details
	if status >= 500 && std.Code != errors.ErrCodeNoRecipients {
		details = ""
	}
	c.JSON(status, errorResponse{Error: string(std.Code), Message: std.Message, Details: details})
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}

// pageParams reads page (0-based) and size, clamping invalid values.
func pageParams(c *gin.Context, defaultSize int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		page = 0
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultSize)))
	if err != nil || size <= 0 {
		size = defaultSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errors.NewInvalidRequestError("id must be numeric")
	}
	return id, nil
}
