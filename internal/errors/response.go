package errors

import (
	"net/http"

	"yatube/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorStatusMap = map[ErrorCode]int{
	ErrInternal: http.StatusInternalServerError,
	ErrDatabase: http.StatusInternalServerError,
	ErrCache:    http.StatusInternalServerError,
	ErrTimeout:  http.StatusRequestTimeout,
	ErrStorage:  http.StatusInternalServerError,

	ErrUnauthorized:       http.StatusUnauthorized,
	ErrForbidden:          http.StatusForbidden,
	ErrInvalidToken:       http.StatusUnauthorized,
	ErrTokenExpired:       http.StatusUnauthorized,
	ErrInvalidCredentials: http.StatusUnauthorized,

	ErrBadRequest:       http.StatusBadRequest,
	ErrValidation:       http.StatusBadRequest,
	ErrResourceNotFound: http.StatusNotFound,
	ErrResourceExists:   http.StatusConflict,
	ErrResourceConflict: http.StatusConflict,

	ErrUserNotFound:  http.StatusNotFound,
	ErrUserExists:    http.StatusConflict,
	ErrWeakPassword:  http.StatusBadRequest,
	ErrPostNotFound:  http.StatusNotFound,
	ErrGroupNotFound: http.StatusNotFound,
}

// StatusOf maps an error code to its HTTP status.
func StatusOf(code ErrorCode) int {
	if status, ok := errorStatusMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func errorTemplate(status int) string {
	switch status {
	case http.StatusNotFound:
		return "core/404.html"
	case http.StatusForbidden, http.StatusUnauthorized:
		return "core/403.html"
	default:
		return "core/500.html"
	}
}

// HandleError renders the error page matching err and aborts the chain.
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := StatusOf(CodeOf(err))
	if status >= http.StatusInternalServerError {
		util.Logger.Error("request failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method))
	}

	util.RenderHTML(c, status, errorTemplate(status), gin.H{
		"path": c.Request.URL.Path,
	})
	c.Abort()
}

// NotFound renders the 404 page.
func NotFound(c *gin.Context) {
	HandleError(c, New(ErrResourceNotFound, "page not found"))
}
