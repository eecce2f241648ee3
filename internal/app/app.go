package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/foliohq/core/internal/config"
	"github.com/foliohq/core/internal/database"
	"github.com/foliohq/core/internal/middleware"
	"github.com/foliohq/core/internal/modules/stats/analyze"
	pkgcron "github.com/foliohq/core/internal/pkg/cron"
	"github.com/foliohq/core/internal/pkg/jwt"
	"github.com/foliohq/core/internal/pkg/ratelimit"
	pkgredis "github.com/foliohq/core/internal/pkg/redis"
	"github.com/foliohq/core/internal/pkg/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
	redis  *pkgredis.Client

	// bg is the lifetime context for manually triggered jobs; it ends at
	// Shutdown together with the scheduler loops.
	bg context.Context
}

// New initializes the application: config → DB → Redis → routes → cron.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	jwt.SetSecret(cfg.JWTSecret)
	response.ExposeErrorDetails(cfg.IsDev())

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	// Redis is optional: without it rate limiting falls back to the
	// in-memory store and fan-out runs without the dispatch ledger.
	var rc *pkgredis.Client
	if cfg.RedisURL != "" {
		rc, err = pkgredis.Connect(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory rate limiting", zap.Error(err))
			rc = nil
		}
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))
	router.Use(analyze.Middleware(db))

	var memStore *ratelimit.MemoryStore
	var limiter *ratelimit.Limiter
	if rc != nil {
		limiter = ratelimit.New(ratelimit.NewRedisStore(rc.Raw()))
	} else {
		memStore = ratelimit.NewMemoryStore()
		limiter = ratelimit.New(memStore)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sched := pkgcron.New()
	registerCronJobs(sched, db, memStore, logger)
	go sched.Start(ctx)

	app := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		logger: logger,
		cancel: cancel,
		sched:  sched,
		redis:  rc,
		bg:     ctx,
	}
	app.registerRoutes(rc, limiter)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background goroutines and closes the Redis pool.
func (a *App) Shutdown() {
	a.cancel()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsCfg.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	} else {
		corsCfg.AllowOriginFunc = func(origin string) bool { return true }
	}
	return corsCfg
}
