package middleware

import (
	"strconv"

	"yatube/internal/errors"
	"yatube/internal/model"
	"yatube/internal/service"
	"yatube/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextPostKey holds the post loaded by AuthorRequired.
const ContextPostKey = "post"

// AuthorRequired loads the post named by the post_id parameter and lets
// only its author through. Anyone else is sent to the login page.
func AuthorRequired(posts *service.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("post_id"))
		if err != nil {
			errors.NotFound(c)
			return
		}

		user := util.CurrentUser(c)
		post, err := posts.GetEditablePost(c.Request.Context(), user, id)
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrForbidden):
			util.Logger.Warn("non-author tried to change a post",
				zap.Int("post_id", id),
				zap.String("path", c.Request.URL.Path))
			RedirectToLogin(c)
			return
		default:
			errors.HandleError(c, err)
			return
		}

		c.Set(ContextPostKey, post)
		c.Next()
	}
}

// EditablePost returns the post stored by AuthorRequired.
func EditablePost(c *gin.Context) *model.Post {
	v, ok := c.Get(ContextPostKey)
	if !ok {
		return nil
	}
	post, _ := v.(*model.Post)
	return post
}
