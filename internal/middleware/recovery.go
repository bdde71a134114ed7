package middleware

import (
	"fmt"
	"runtime/debug"

	"yatube/internal/errors"
	"yatube/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a panic into the 500 page.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				util.Logger.Error("panic recovered",
					zap.Any("error", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("stack", string(debug.Stack())))

				errors.HandleError(c, errors.Wrap(errors.ErrInternal, "internal server error", fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
