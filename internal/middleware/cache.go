package middleware

import (
	"bytes"
	"net/http"
	"time"

	"yatube/internal/cache"
	"yatube/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IndexPageCachePrefix prefixes the cache keys of the home listing.
const IndexPageCachePrefix = "index_page"

type bodyCapture struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// PageCacheKey identifies one rendering of a page for one viewer. Query
// parameters other than page do not change the page and are left out.
func PageCacheKey(prefix string, c *gin.Context) string {
	viewer := ""
	if u := util.CurrentUser(c); u != nil {
		viewer = u.Username
	}
	return prefix + ":" + c.Request.URL.Path + ":" + c.Query("page") + ":" + viewer
}

// CachePage serves a stored copy of the page while it is fresh. Data
// changes do not invalidate it. Cache failures are logged and the page
// is rendered as usual. A ttl of zero turns caching off.
func CachePage(store cache.Cache, ttl time.Duration, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ttl <= 0 || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := PageCacheKey(prefix, c)

		payload, found, err := store.Get(ctx, key)
		if err != nil {
			util.Logger.Warn("page cache read failed", zap.Error(err), zap.String("key", key))
		} else if found {
			c.Data(http.StatusOK, "text/html; charset=utf-8", payload)
			c.Abort()
			return
		}

		w := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()
		c.Writer = w.ResponseWriter

		if w.Status() != http.StatusOK || len(c.Errors) > 0 {
			return
		}
		if err := store.Set(ctx, key, w.body.Bytes(), ttl); err != nil {
			util.Logger.Warn("page cache write failed", zap.Error(err), zap.String("key", key))
		}
	}
}
