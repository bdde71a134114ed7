package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"yatube/internal/service"
	"yatube/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// TokenCookie carries the session JWT.
	TokenCookie = "token"
	// LoginPath is where anonymous users are sent.
	LoginPath = "/auth/login/"
)

// CurrentUser resolves the session cookie to a user on the context. A
// missing or bad cookie leaves the request anonymous.
func CurrentUser(userService service.UserServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(TokenCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}

		userID, err := util.ValidateToken(token)
		if err != nil {
			util.Logger.Debug("invalid session token", zap.Error(err))
			c.Next()
			return
		}

		user, err := userService.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			util.Logger.Warn("session user not found", zap.Int("user_id", userID), zap.Error(err))
			c.Next()
			return
		}

		util.SetCurrentUser(c, user)
		c.Next()
	}
}

// LoginRequired sends anonymous requests to the login page.
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if util.CurrentUser(c) == nil {
			RedirectToLogin(c)
			return
		}
		c.Next()
	}
}

// LoginURL is the login page that returns to next after signing in.
func LoginURL(next string) string {
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// RedirectToLogin aborts the chain with a redirect back to this request.
func RedirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
	c.Abort()
}

// SafeNext returns next when it is a local path and fallback otherwise.
func SafeNext(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
