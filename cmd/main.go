package main

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yatube/config"
	"yatube/internal/api"
	"yatube/internal/cache"
	"yatube/internal/common"
	"yatube/internal/middleware"
	"yatube/internal/repository/interfaces"
	"yatube/internal/repository/memory"
	"yatube/internal/repository/mysql"
	"yatube/internal/repository/postgres"
	"yatube/internal/service"
	"yatube/internal/storage"
	"yatube/internal/util"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// repositories is the set of stores the services are built on.
type repositories struct {
	users    interfaces.UserRepository
	groups   interfaces.GroupRepository
	posts    interfaces.PostRepository
	comments interfaces.CommentRepository
	follows  interfaces.FollowRepository
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			util.Logger.Error("fatal panic", zap.Any("error", r))
		}
	}()

	config.Init()

	util.InitLogger(config.AppConfig.LogLevel)
	defer util.Logger.Sync()

	util.Logger.Info("starting yatube")

	ctx := context.Background()
	repos, closeDB := openRepositories(ctx, config.AppConfig)
	defer closeDB()

	uploader, closeStorage := openStorage(ctx, config.AppConfig)
	defer closeStorage()

	userService := service.NewUserService(repos.users)
	postService := service.NewPostService(repos.posts, repos.groups, repos.users, config.AppConfig.PostsPerPage)
	commentService := service.NewCommentService(repos.comments, repos.posts)

	var notifier service.FollowNotifier
	emailService := service.NewEmailService(config.AppConfig)
	if emailService.Enabled() {
		notifier = emailService
	} else {
		util.Logger.Info("SMTP_HOST not set, follower emails disabled")
	}
	followService := service.NewFollowService(repos.follows, repos.users, notifier)

	pageCache := cache.NewMemoryCache(time.Minute)
	errorMonitor := middleware.NewErrorMonitor()

	mediaRoot := ""
	if local, ok := uploader.(*storage.LocalStorage); ok {
		mediaRoot = local.BasePath()
	}

	r, err := api.NewRouter(api.Options{
		Users:              userService,
		Posts:              postService,
		Comments:           commentService,
		Follows:            followService,
		Uploader:           uploader,
		Cache:              pageCache,
		CacheTTL:           config.AppConfig.CacheTTL,
		MediaURL:           config.AppConfig.MediaURL,
		MediaRoot:          mediaRoot,
		CORSAllowedOrigins: config.AppConfig.CORSAllowedOrigins,
		SecureCookies:      !config.AppConfig.Debug,
		Monitor:            errorMonitor,
	})
	if err != nil {
		util.Logger.Fatal("failed to build router", zap.Error(err))
	}

	if config.AppConfig.Debug {
		for _, route := range r.Routes() {
			util.Logger.Debug("route",
				zap.String("method", route.Method),
				zap.String("path", route.Path),
				zap.String("handler", route.Handler))
		}
	}

	srv := &http.Server{
		Addr:              config.AppConfig.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		util.Logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// SIGHUP drops every cached page; SIGINT and SIGTERM stop the server.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range signals {
		if sig != syscall.SIGHUP {
			break
		}
		if err := pageCache.Clear(ctx); err != nil {
			util.Logger.Warn("cache clear failed", zap.Error(err))
			continue
		}
		util.Logger.Info("page cache cleared")
	}
	util.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		util.Logger.Error("forced shutdown", zap.Error(err))
	}

	util.Logger.Info("server stopped", zap.Any("error_counts", errorMonitor.GetErrorCounts()))
}

// openRepositories connects to the configured database, applies the
// schema and returns the stores with a matching close func.
func openRepositories(ctx context.Context, cfg config.Config) (repositories, func()) {
	switch cfg.DBDriver {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN())
		if err != nil {
			util.Logger.Fatal("failed to open database", zap.Error(err))
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := common.WithRetry(ctx, 5, time.Second, db.PingContext); err != nil {
			util.Logger.Fatal("database unreachable", zap.Error(err))
		}
		if err := mysql.Migrate(ctx, db); err != nil {
			util.Logger.Fatal("schema migration failed", zap.Error(err))
		}
		util.Logger.Info("connected to mysql", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

		return repositories{
			users:    mysql.NewUserRepository(db),
			groups:   mysql.NewGroupRepository(db),
			posts:    mysql.NewPostRepository(db),
			comments: mysql.NewCommentRepository(db),
			follows:  mysql.NewFollowRepository(db),
		}, func() { closeQuietly("database", db) }

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN())
		if err != nil {
			util.Logger.Fatal("failed to open database", zap.Error(err))
		}
		if err := common.WithRetry(ctx, 5, time.Second, pool.Ping); err != nil {
			util.Logger.Fatal("database unreachable", zap.Error(err))
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			util.Logger.Fatal("schema migration failed", zap.Error(err))
		}
		util.Logger.Info("connected to postgres", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

		return repositories{
			users:    postgres.NewUserRepository(pool),
			groups:   postgres.NewGroupRepository(pool),
			posts:    postgres.NewPostRepository(pool),
			comments: postgres.NewCommentRepository(pool),
			follows:  postgres.NewFollowRepository(pool),
		}, pool.Close

	default:
		util.Logger.Warn("using the in-memory store, data is lost on exit")
		store := memory.NewStore()
		return repositories{
			users:    store.Users(),
			groups:   store.Groups(),
			posts:    store.Posts(),
			comments: store.Comments(),
			follows:  store.Follows(),
		}, func() {}
	}
}

// openStorage builds the uploader for STORAGE_DRIVER.
func openStorage(ctx context.Context, cfg config.Config) (storage.Uploader, func()) {
	switch cfg.StorageDriver {
	case "s3":
		client, err := storage.NewS3Client(cfg.S3Region, cfg.S3Bucket)
		if err != nil {
			util.Logger.Fatal("failed to init S3", zap.Error(err))
		}
		return client, func() {}
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCSProjectID, cfg.GCSBucketName, cfg.GCSCredentialsFile)
		if err != nil {
			util.Logger.Fatal("failed to init GCS", zap.Error(err))
		}
		return client, func() { closeQuietly("gcs", client) }
	default:
		local, err := storage.NewLocalStorage(cfg.LocalStoragePath)
		if err != nil {
			util.Logger.Fatal("failed to init local storage", zap.Error(err))
		}
		util.Logger.Info("media directory ready", zap.String("path", cfg.LocalStoragePath))
		return local, func() {}
	}
}

func closeQuietly(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		util.Logger.Warn("close failed", zap.String("resource", name), zap.Error(err))
	}
}
