package api

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"yatube/config"
	"yatube/internal/api/form"
	"yatube/internal/cache"
	"yatube/internal/middleware"
	"yatube/internal/model"
	"yatube/internal/repository/interfaces"
	"yatube/internal/repository/memory"
	"yatube/internal/service"
	"yatube/internal/storage"
	"yatube/internal/util"
	"yatube/web"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.AppConfig.JWTSecret = "test-secret"
}

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

// recordingRenderer renders the real templates and remembers the last
// page name and context.
type recordingRenderer struct {
	pages *web.Renderer
	name  string
	data  gin.H
}

func (r *recordingRenderer) Instance(name string, data any) render.Render {
	r.name = name
	r.data, _ = data.(gin.H)
	return r.pages.Instance(name, data)
}

type env struct {
	router *gin.Engine
	store  *memory.Store
	cache  *cache.MemoryCache
	pages  *recordingRenderer
	media  string

	author *model.User
	reader *model.User
	group  *model.Group
	other  *model.Group
}

type envOption func(*Options)

func withCacheTTL(ttl time.Duration) envOption {
	return func(o *Options) { o.CacheTTL = ttl }
}

func withCache(c cache.Cache) envOption {
	return func(o *Options) { o.Cache = c }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	author := &model.User{Username: "auth", FirstName: "Leo", LastName: "Tolstoy"}
	reader := &model.User{Username: "reader"}
	require.NoError(t, store.Users().Create(ctx, author))
	require.NoError(t, store.Users().Create(ctx, reader))

	group := &model.Group{Title: "Test group", Slug: "test-slug", Description: "Description"}
	other := &model.Group{Title: "Other group", Slug: "other-slug", Description: "Elsewhere"}
	require.NoError(t, store.Groups().Create(ctx, group))
	require.NoError(t, store.Groups().Create(ctx, other))

	media := t.TempDir()
	uploader, err := storage.NewLocalStorage(media)
	require.NoError(t, err)

	pages, err := web.NewRenderer(web.Funcs("/media/"))
	require.NoError(t, err)
	recorder := &recordingRenderer{pages: pages}

	memCache := cache.NewMemoryCache(time.Minute)
	posts := service.NewPostService(store.Posts(), store.Groups(), store.Users(), 10)
	options := Options{
		Users:     service.NewUserService(store.Users()),
		Posts:     posts,
		Comments:  service.NewCommentService(store.Comments(), store.Posts()),
		Follows:   service.NewFollowService(store.Follows(), store.Users(), nil),
		Uploader:  uploader,
		Cache:     memCache,
		MediaURL:  "/media/",
		MediaRoot: media,
		Renderer:  recorder,
	}
	for _, opt := range opts {
		opt(&options)
	}

	router, err := NewRouter(options)
	require.NoError(t, err)

	return &env{
		router: router,
		store:  store,
		cache:  memCache,
		pages:  recorder,
		media:  media,
		author: author,
		reader: reader,
		group:  group,
		other:  other,
	}
}

func (e *env) do(t *testing.T, method, path string, body io.Reader, contentType string, as *model.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if as != nil {
		token, err := util.GenerateToken(as.ID)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) get(t *testing.T, path string, as *model.User) *httptest.ResponseRecorder {
	return e.do(t, http.MethodGet, path, nil, "", as)
}

func (e *env) postForm(t *testing.T, path string, values url.Values, as *model.User) *httptest.ResponseRecorder {
	return e.do(t, http.MethodPost, path, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", as)
}

// postMultipart submits fields plus an optional image upload.
func (e *env) postMultipart(t *testing.T, path string, fields map[string]string, fileName string, content []byte, as *model.User) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("image", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return e.do(t, http.MethodPost, path, &body, w.FormDataContentType(), as)
}

func (e *env) createPost(t *testing.T, text string, author *model.User, group *model.Group) *model.Post {
	t.Helper()
	post := &model.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		post.GroupID = &group.ID
	}
	require.NoError(t, e.store.Posts().Create(context.Background(), post))
	return post
}

func (e *env) countPosts(t *testing.T) int {
	t.Helper()
	n, err := e.store.Posts().Count(context.Background(), interfaces.PostFilter{})
	require.NoError(t, err)
	return n
}

func (e *env) page(t *testing.T) *model.Page {
	t.Helper()
	p, ok := e.pages.data["page_obj"].(*model.Page)
	require.True(t, ok, "page_obj missing from %s", e.pages.name)
	return p
}

func detailPath(id int) string {
	return "/posts/" + strconv.Itoa(id) + "/"
}

func TestPublicPages(t *testing.T) {
	e := newEnv(t)
	post := e.createPost(t, "Test text", e.author, e.group)

	cases := map[string]string{
		"/":                 "posts/index.html",
		"/group/test-slug/": "posts/group_list.html",
		"/profile/auth/":    "posts/profile.html",
		detailPath(post.ID): "posts/post_detail.html",
		"/about/author/":    "about/author.html",
		"/about/tech/":      "about/tech.html",
		"/auth/signup/":     "users/signup.html",
		"/auth/login/":      "users/login.html",
		"/auth/logout/":     "users/logged_out.html",
	}
	for path, template := range cases {
		w := e.get(t, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, template, e.pages.name, path)
	}
}

func TestAuthorizedPages(t *testing.T) {
	e := newEnv(t)
	post := e.createPost(t, "Test text", e.author, nil)

	cases := map[string]string{
		"/create/":                    "posts/create_post.html",
		detailPath(post.ID) + "edit/": "posts/create_post.html",
		"/follow/":                    "posts/follow.html",
	}
	for path, template := range cases {
		w := e.get(t, path, e.author)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, template, e.pages.name, path)
	}
}

func TestMissingPages(t *testing.T) {
	e := newEnv(t)

	for _, path := range []string{"/unexisting_page/", "/group/nope/", "/profile/ghost/", "/posts/999/", "/posts/abc/"} {
		w := e.get(t, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "core/404.html", e.pages.name, path)
	}
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	e := newEnv(t)
	post := e.createPost(t, "Test text", e.author, nil)

	for _, path := range []string{"/create/", detailPath(post.ID) + "edit/", "/follow/", "/posts/profile/auth/follow/"} {
		w := e.get(t, path, nil)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/auth/login/?next="+url.QueryEscape(path), w.Header().Get("Location"), path)
	}

	w := e.postMultipart(t, "/create/", map[string]string{"text": "sneaky"}, "", nil, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, 1, e.countPosts(t))
}

func TestPostFormFields(t *testing.T) {
	e := newEnv(t)

	e.get(t, "/create/", e.author)
	f, ok := e.pages.data["form"].(*form.Form)
	require.True(t, ok)

	kinds := map[string]form.Kind{"text": form.KindChar, "group": form.KindChoice, "image": form.KindImage}
	for name, kind := range kinds {
		field := f.Field(name)
		require.NotNil(t, field, name)
		assert.Equal(t, kind, field.Kind, name)
	}
	assert.Len(t, f.Field("group").Choices, 2)
	assert.Equal(t, false, e.pages.data["is_edit"])
}

func TestCreatePost(t *testing.T) {
	e := newEnv(t)
	before := e.countPosts(t)

	w := e.postMultipart(t, "/create/", map[string]string{
		"text":  "Fresh post",
		"group": strconv.Itoa(e.group.ID),
	}, "small.gif", smallGIF, e.author)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, before+1, e.countPosts(t))

	latest, err := e.store.Posts().List(context.Background(), interfaces.PostFilter{}, 1, 0)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	created := latest[0]
	assert.Equal(t, detailPath(created.ID), w.Header().Get("Location"))
	assert.Equal(t, "Fresh post", created.Text)
	assert.Equal(t, e.author.ID, created.AuthorID)
	assert.True(t, created.InGroup(e.group.ID))
	assert.True(t, strings.HasPrefix(created.Image, "posts/"))

	saved, err := os.ReadFile(filepath.Join(e.media, filepath.FromSlash(created.Image)))
	require.NoError(t, err)
	assert.Equal(t, smallGIF, saved)

	media := e.get(t, "/media/"+created.Image, nil)
	assert.Equal(t, http.StatusOK, media.Code)

	e.get(t, detailPath(created.ID), nil)
	assert.Equal(t, created.Image, e.pages.data["post"].(*model.Post).Image)
	e.get(t, "/", nil)
	assert.Equal(t, created.Image, e.page(t).Posts[0].Image)
}

func TestCreatePostRejectsInvalidInput(t *testing.T) {
	e := newEnv(t)

	w := e.postMultipart(t, "/create/", map[string]string{"text": "   "}, "", nil, e.author)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "posts/create_post.html", e.pages.name)
	assert.NotEmpty(t, e.pages.data["form"].(*form.Form).Field("text").Error)

	w = e.postMultipart(t, "/create/", map[string]string{"text": "text", "group": "999"}, "", nil, e.author)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, e.pages.data["form"].(*form.Form).Field("group").Error)

	w = e.postMultipart(t, "/create/", map[string]string{"text": "text"}, "notes.gif", []byte("plain text, not a picture"), e.author)
	assert.Equal(t, http.StatusOK, w.Code)
	f := e.pages.data["form"].(*form.Form)
	assert.NotEmpty(t, f.Field("image").Error)
	assert.Equal(t, "text", f.Field("text").Value)

	assert.Zero(t, e.countPosts(t))
	entries, err := os.ReadDir(e.media)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEditPost(t *testing.T) {
	e := newEnv(t)
	post := e.createPost(t, "original", e.author, nil)
	post.Image = "posts/kept.gif"
	require.NoError(t, e.store.Posts().Update(context.Background(), post))

	e.get(t, detailPath(post.ID)+"edit/", e.author)
	assert.Equal(t, true, e.pages.data["is_edit"])
	assert.Equal(t, "original", e.pages.data["form"].(*form.Form).Field("text").Value)

	w := e.postMultipart(t, detailPath(post.ID)+"edit/", map[string]string{
		"text":  "edited",
		"group": strconv.Itoa(e.other.ID),
	}, "", nil, e.author)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailPath(post.ID), w.Header().Get("Location"))
	assert.Equal(t, 1, e.countPosts(t))

	stored, err := e.store.Posts().FindByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", stored.Text)
	assert.True(t, stored.InGroup(e.other.ID))
	assert.Equal(t, "posts/kept.gif", stored.Image)
}

func TestNonAuthorCannotChangePost(t *testing.T) {
	e := newEnv(t)
	post := e.createPost(t, "original", e.author, nil)
	edit := detailPath(post.ID) + "edit/"

	w := e.get(t, edit, e.reader)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next="+url.QueryEscape(edit), w.Header().Get("Location"))

	w = e.postMultipart(t, edit, map[string]string{"text": "hijacked"}, "", nil, e.reader)
	assert.Equal(t, http.StatusFound, w.Code)

	w = e.postForm(t, detailPath(post.ID)+"delete/", url.Values{}, e.reader)
	assert.Equal(t, http.StatusFound, w.Code)

	stored, err := e.store.Posts().FindByID(context.Background(), post.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "original", stored.Text)
}

func TestDeletePost(t *testing.T) {
	e := newEnv(t)
	post := e.createPost(t, "short lived", e.author, nil)

	w := e.postForm(t, detailPath(post.ID)+"delete/", url.Values{}, e.author)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/auth/", w.Header().Get("Location"))
	assert.Zero(t, e.countPosts(t))

	w = e.get(t, detailPath(post.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListingContexts(t *testing.T) {
	e := newEnv(t)
	post := e.createPost(t, "Test text", e.author, e.group)

	e.get(t, "/", nil)
	first := e.page(t).Posts[0]
	assert.Equal(t, post.ID, first.ID)
	assert.Equal(t, "Test text", first.Text)
	assert.Equal(t, "auth", first.Author.Username)
	assert.Equal(t, e.group.Slug, first.Group.Slug)

	e.get(t, "/group/test-slug/", nil)
	assert.Equal(t, e.group.ID, e.pages.data["group"].(*model.Group).ID)
	assert.True(t, e.page(t).Contains(post.ID))

	e.get(t, "/group/other-slug/", nil)
	assert.False(t, e.page(t).Contains(post.ID))

	e.get(t, "/profile/auth/", nil)
	assert.Equal(t, e.author.ID, e.pages.data["author"].(*model.User).ID)
	assert.True(t, e.page(t).Contains(post.ID))
	assert.Equal(t, false, e.pages.data["following"])

	e.get(t, detailPath(post.ID), nil)
	assert.Equal(t, post.ID, e.pages.data["post"].(*model.Post).ID)
	assert.Equal(t, 1, e.pages.data["posts_count"])
}

func TestPagination(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 13; i++ {
		e.createPost(t, "post "+strconv.Itoa(i), e.author, e.group)
	}

	for _, path := range []string{"/", "/group/test-slug/", "/profile/auth/"} {
		e.get(t, path, nil)
		assert.Len(t, e.page(t).Posts, 10, path)

		e.get(t, path+"?page=2", nil)
		assert.Len(t, e.page(t).Posts, 3, path)
	}

	e.get(t, "/?page=99", nil)
	assert.Equal(t, 2, e.page(t).Number)
	e.get(t, "/?page=abc", nil)
	assert.Equal(t, 1, e.page(t).Number)
}

func TestComments(t *testing.T) {
	e := newEnv(t)
	post := e.createPost(t, "discuss", e.author, nil)
	path := detailPath(post.ID) + "comment/"

	w := e.postForm(t, path, url.Values{"text": {"anonymous"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/auth/login/"))

	w = e.postForm(t, path, url.Values{"text": {"  "}}, e.reader)
	assert.Equal(t, http.StatusFound, w.Code)

	w = e.postForm(t, path, url.Values{"text": {"Nice post"}}, e.reader)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, detailPath(post.ID), w.Header().Get("Location"))

	e.get(t, detailPath(post.ID), nil)
	comments := e.pages.data["comments"].([]*model.Comment)
	require.Len(t, comments, 1)
	assert.Equal(t, "Nice post", comments[0].Text)
	assert.Equal(t, "reader", comments[0].Author.Username)
}

func TestFollowFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	post := e.createPost(t, "for followers", e.author, nil)

	w := e.get(t, "/posts/profile/auth/follow/", e.reader)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/auth/", w.Header().Get("Location"))
	e.get(t, "/posts/profile/auth/follow/", e.reader)

	followers, err := e.store.Follows().CountFollowers(ctx, e.author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, followers)

	e.get(t, "/profile/auth/", e.reader)
	assert.Equal(t, true, e.pages.data["following"])

	e.get(t, "/follow/", e.reader)
	assert.True(t, e.page(t).Contains(post.ID))
	e.get(t, "/follow/", e.author)
	assert.False(t, e.page(t).Contains(post.ID))

	e.get(t, "/posts/profile/auth/unfollow/", e.reader)
	ok, err := e.store.Follows().Exists(ctx, e.reader.ID, e.author.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	e.get(t, "/follow/", e.reader)
	assert.False(t, e.page(t).Contains(post.ID))
}

func TestSelfFollowIgnored(t *testing.T) {
	e := newEnv(t)

	w := e.get(t, "/posts/profile/auth/follow/", e.author)
	assert.Equal(t, http.StatusFound, w.Code)

	following, err := e.store.Follows().CountFollowing(context.Background(), e.author.ID)
	require.NoError(t, err)
	assert.Zero(t, following)

	w = e.get(t, "/posts/profile/ghost/follow/", e.author)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIndexCache(t *testing.T) {
	e := newEnv(t, withCacheTTL(time.Minute))
	post := e.createPost(t, "cached text", e.author, nil)

	first := e.get(t, "/", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "cached text")

	require.NoError(t, e.store.Posts().Delete(context.Background(), post.ID))

	second := e.get(t, "/", nil)
	assert.Equal(t, first.Body.String(), second.Body.String())

	require.NoError(t, e.cache.Clear(context.Background()))
	third := e.get(t, "/", nil)
	assert.NotEqual(t, first.Body.String(), third.Body.String())
	assert.NotContains(t, third.Body.String(), "cached text")
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, stderrors.New("cache unavailable")
}
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return stderrors.New("cache unavailable")
}
func (failingCache) Delete(context.Context, string) error { return stderrors.New("cache unavailable") }
func (failingCache) Clear(context.Context) error          { return stderrors.New("cache unavailable") }

func TestIndexServedWhenCacheFails(t *testing.T) {
	e := newEnv(t, withCache(failingCache{}), withCacheTTL(time.Minute))
	e.createPost(t, "still visible", e.author, nil)

	w := e.get(t, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "still visible")
}

func TestSignupLoginCreate(t *testing.T) {
	e := newEnv(t)

	w := e.postForm(t, "/auth/signup/", url.Values{
		"username":  {"newbie"},
		"email":     {"newbie@example.com"},
		"password1": {"long-enough-password"},
		"password2": {"long-enough-password"},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	user, err := e.store.Users().FindByUsername(context.Background(), "newbie")
	require.NoError(t, err)
	require.NotNil(t, user)

	w = e.postForm(t, "/auth/login/", url.Values{
		"username": {"newbie"},
		"password": {"long-enough-password"},
		"next":     {"/create/"},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/create/", w.Header().Get("Location"))

	var session *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.TokenCookie {
			session = ck
		}
	}
	require.NotNil(t, session)

	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.AddCookie(session)
	page := httptest.NewRecorder()
	e.router.ServeHTTP(page, req)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Equal(t, "newbie", e.pages.data["user"].(*model.User).Username)
}

func TestStaticAssets(t *testing.T) {
	e := newEnv(t)
	w := e.get(t, "/static/css/yatube.css", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
