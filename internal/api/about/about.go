// Package about serves the static author and technology pages.
package about

import (
	"net/http"

	"yatube/internal/util"

	"github.com/gin-gonic/gin"
)

func Author(c *gin.Context) {
	util.RenderHTML(c, http.StatusOK, "about/author.html", nil)
}

func Tech(c *gin.Context) {
	util.RenderHTML(c, http.StatusOK, "about/tech.html", nil)
}
