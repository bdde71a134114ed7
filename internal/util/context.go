package util

import (
	"yatube/internal/model"

	"github.com/gin-gonic/gin"
)

const (
	// ContextUserKey holds the signed-in *model.User on a gin context.
	ContextUserKey = "user"
	// ContextRequestIDKey holds the request id.
	ContextRequestIDKey = "request_id"
)

// CurrentUser returns the signed-in user or nil for anonymous requests.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

func SetCurrentUser(c *gin.Context, u *model.User) {
	c.Set(ContextUserKey, u)
}

// RenderHTML renders a named page template with the viewer added to data.
func RenderHTML(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data[ContextUserKey]; !ok {
		data[ContextUserKey] = CurrentUser(c)
	}
	c.HTML(status, name, data)
}
