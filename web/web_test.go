package web

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yatube/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryPageRenders(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	expected := []string{
		"posts/index.html", "posts/group_list.html", "posts/profile.html",
		"posts/post_detail.html", "posts/create_post.html", "posts/follow.html",
		"about/author.html", "about/tech.html",
		"users/signup.html", "users/login.html", "users/logged_out.html",
		"core/404.html", "core/403.html", "core/500.html",
	}
	assert.ElementsMatch(t, expected, r.Pages())

	author := &model.User{ID: 1, Username: "auth"}
	post := &model.Post{ID: 7, Text: "hello world", AuthorID: 1, Author: author,
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Image: "posts/a.gif"}
	page := &model.Page{Posts: []*model.Post{post}, Number: 1, PerPage: 10, Total: 1}

	data := gin.H{
		"user":     author,
		"page_obj": page,
		"group":    &model.Group{Title: "Cats", Slug: "cats"},
		"author":   author,
		"post":     post,
		"path":     "/nowhere/",
	}
	for _, name := range expected {
		w := httptest.NewRecorder()
		require.NoError(t, r.Instance(name, data).Render(w), name)
		assert.True(t, strings.HasPrefix(w.Body.String(), "<!DOCTYPE html>"), name)
	}
}

func TestIndexShowsPost(t *testing.T) {
	r, err := NewRenderer(Funcs("https://cdn.example/media/"))
	require.NoError(t, err)

	post := &model.Post{ID: 3, Text: "visible text", Author: &model.User{Username: "auth"}, Image: "posts/x.gif"}
	w := httptest.NewRecorder()
	err = r.Instance("posts/index.html", gin.H{
		"page_obj": &model.Page{Posts: []*model.Post{post}, Number: 1, PerPage: 10, Total: 1},
	}).Render(w)
	require.NoError(t, err)

	body := w.Body.String()
	assert.Contains(t, body, "visible text")
	assert.Contains(t, body, `href="/posts/3/"`)
	assert.Contains(t, body, "https://cdn.example/media/posts/x.gif")
	assert.Contains(t, body, `href="/auth/login/"`)
}

func TestMissingPage(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)
	assert.Error(t, r.Instance("posts/nope.html", nil).Render(httptest.NewRecorder()))
}

func TestHelpers(t *testing.T) {
	media := MediaFunc("/media")
	assert.Equal(t, "/media/posts/a.gif", media("posts/a.gif"))
	assert.Equal(t, "https://bucket.s3.amazonaws.com/a.gif", media("https://bucket.s3.amazonaws.com/a.gif"))

	assert.Equal(t, "one two …", truncateWords("one two three", 2))
	assert.Equal(t, "short", truncateChars("short", 10))
	assert.Equal(t, "abc…", truncateChars("abcdefgh", 4))
	assert.Equal(t, []int{1, 2, 3}, pageRange(&model.Page{PerPage: 10, Total: 25}))
}
