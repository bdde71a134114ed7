// Package api wires the HTTP handlers, middleware and templates into a
// gin engine.
package api

import (
	"fmt"
	"time"

	"yatube/internal/api/about"
	"yatube/internal/api/posts"
	"yatube/internal/api/user"
	"yatube/internal/cache"
	"yatube/internal/errors"
	"yatube/internal/middleware"
	"yatube/internal/service"
	"yatube/internal/storage"
	"yatube/internal/util"
	"yatube/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gin-gonic/gin/render"
	"github.com/go-playground/validator/v10"
)

// Options carries everything the router needs.
type Options struct {
	Users    service.UserServiceInterface
	Posts    *service.PostService
	Comments *service.CommentService
	Follows  *service.FollowService
	Uploader storage.Uploader

	// Cache holds rendered index pages for CacheTTL. A nil Cache or a zero
	// TTL serves the index uncached.
	Cache    cache.Cache
	CacheTTL time.Duration

	// MediaURL prefixes stored image paths in templates. MediaRoot, when
	// set, is served under /media/.
	MediaURL  string
	MediaRoot string

	CORSAllowedOrigins []string
	SecureCookies      bool

	Monitor *middleware.ErrorMonitor
	// Renderer overrides the embedded templates.
	Renderer render.HTMLRender
}

// NewRouter builds the engine with every page route registered.
func NewRouter(opts Options) (*gin.Engine, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := util.RegisterValidators(v); err != nil {
			return nil, fmt.Errorf("register validators: %w", err)
		}
	}

	renderer := opts.Renderer
	if renderer == nil {
		pages, err := web.NewRenderer(web.Funcs(opts.MediaURL))
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		renderer = pages
	}
	monitor := opts.Monitor
	if monitor == nil {
		monitor = middleware.NewErrorMonitor()
	}

	r := gin.New()
	r.HTMLRender = renderer
	r.MaxMultipartMemory = 8 << 20

	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorMonitorMiddleware(monitor))

	if len(opts.CORSAllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = opts.CORSAllowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
		r.Use(cors.New(corsConfig))
	}

	r.StaticFS("/static", web.Static())
	if opts.MediaRoot != "" {
		r.Static("/media", opts.MediaRoot)
	}

	r.Use(middleware.CurrentUser(opts.Users))

	postHandler := posts.NewPostHandler(opts.Posts, opts.Comments, opts.Follows, opts.Uploader)
	authHandler := user.NewAuthHandler(opts.Users, opts.SecureCookies)
	loginRequired := middleware.LoginRequired()
	authorRequired := middleware.AuthorRequired(opts.Posts)

	index := []gin.HandlerFunc{postHandler.Index}
	if opts.Cache != nil {
		index = append([]gin.HandlerFunc{
			middleware.CachePage(opts.Cache, opts.CacheTTL, middleware.IndexPageCachePrefix),
		}, index...)
	}
	r.GET("/", index...)

	r.GET("/group/:slug/", postHandler.GroupPosts)
	r.GET("/profile/:username/", postHandler.Profile)
	r.GET("/follow/", loginRequired, postHandler.FollowIndex)

	r.GET("/create/", loginRequired, postHandler.PostCreate)
	r.POST("/create/", loginRequired, postHandler.PostCreateSubmit)

	postRoutes := r.Group("/posts")
	{
		postRoutes.GET("/:post_id/", postHandler.PostDetail)
		postRoutes.GET("/:post_id/edit/", loginRequired, authorRequired, postHandler.PostEdit)
		postRoutes.POST("/:post_id/edit/", loginRequired, authorRequired, postHandler.PostEditSubmit)
		postRoutes.POST("/:post_id/delete/", loginRequired, authorRequired, postHandler.PostDelete)
		postRoutes.POST("/:post_id/comment/", loginRequired, postHandler.AddComment)

		postRoutes.GET("/profile/:username/follow/", loginRequired, postHandler.ProfileFollow)
		postRoutes.GET("/profile/:username/unfollow/", loginRequired, postHandler.ProfileUnfollow)
	}

	aboutRoutes := r.Group("/about")
	{
		aboutRoutes.GET("/author/", about.Author)
		aboutRoutes.GET("/tech/", about.Tech)
	}

	authRoutes := r.Group("/auth")
	{
		authRoutes.GET("/signup/", authHandler.SignupPage)
		authRoutes.POST("/signup/", authHandler.Signup)
		authRoutes.GET("/login/", authHandler.LoginPage)
		authRoutes.POST("/login/", authHandler.Login)
		authRoutes.GET("/logout/", authHandler.Logout)
		authRoutes.POST("/logout/", authHandler.Logout)
	}

	r.NoRoute(errors.NotFound)

	return r, nil
}
