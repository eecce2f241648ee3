package app

import (
	"errors"
	"time"

	"github.com/foliohq/core/internal/middleware"
	"github.com/foliohq/core/internal/modules/auth"
	"github.com/foliohq/core/internal/modules/contact"
	"github.com/foliohq/core/internal/modules/content/journal"
	"github.com/foliohq/core/internal/modules/content/page"
	"github.com/foliohq/core/internal/modules/content/post"
	"github.com/foliohq/core/internal/modules/content/project"
	"github.com/foliohq/core/internal/modules/content/resource"
	"github.com/foliohq/core/internal/modules/content/testimonial"
	"github.com/foliohq/core/internal/modules/newsletter"
	"github.com/foliohq/core/internal/modules/stats/analyze"
	"github.com/foliohq/core/internal/pkg/mail"
	"github.com/foliohq/core/internal/pkg/pagination"
	"github.com/foliohq/core/internal/pkg/ratelimit"
	pkgredis "github.com/foliohq/core/internal/pkg/redis"
	"github.com/foliohq/core/internal/pkg/response"
	"github.com/foliohq/core/internal/pkg/taskqueue"
	"github.com/foliohq/core/internal/pkg/token"
	"github.com/gin-gonic/gin"
)

// Public form endpoints get 5 requests per IP per minute.
const (
	formRateMax    = 5
	formRateWindow = time.Minute
)

func (a *App) registerRoutes(rc *pkgredis.Client, limiter *ratelimit.Limiter) {
	authMW := middleware.Auth()
	optionalAuthMW := middleware.OptionalAuth()
	rateLimitMW := middleware.RateLimit(limiter, formRateMax, formRateWindow)

	tokens := token.NewService(a.tokenSecret())
	sender := mail.New(a.cfg.Mail)

	newsletterSvc := newsletter.NewService(a.db, tokens, a.logger)
	fanout := newsletter.NewFanout(newsletterSvc, sender, a.cfg.SiteName, a.cfg.SiteURL, a.logger)
	var ledger *taskqueue.Service
	if rc != nil {
		ledger = taskqueue.NewService(rc)
		fanout = fanout.WithTaskLedger(ledger)
	}
	newsletterH := newsletter.NewHandler(newsletterSvc, fanout, a.logger)

	contactH := contact.NewHandler(contact.NewService(a.db), a.logger)
	postH := post.NewHandler(post.NewService(a.db), fanout, a.logger)
	projectH := project.NewHandler(project.NewService(a.db), fanout, a.logger)
	journalH := journal.NewHandler(journal.NewService(a.db))
	resourceH := resource.NewHandler(resource.NewService(a.db))
	testimonialH := testimonial.NewHandler(testimonial.NewService(a.db))
	pageH := page.NewHandler(page.NewService(a.db))
	authH := auth.NewHandler(auth.NewService(a.db, a.logger))
	analyzeH := analyze.NewHandler(a.db)

	api := a.router.Group("/api/v1", optionalAuthMW)
	api.GET("/ping", func(c *gin.Context) {
		response.OK(c, gin.H{"message": "pong"})
	})

	newsletterH.RegisterRoutes(api, rateLimitMW, authMW)
	contactH.RegisterRoutes(api, rateLimitMW, authMW)
	postH.RegisterRoutes(api, authMW)
	projectH.RegisterRoutes(api, authMW)
	journalH.RegisterRoutes(api, authMW)
	resourceH.RegisterRoutes(api, authMW)
	testimonialH.RegisterRoutes(api, authMW)
	pageH.RegisterRoutes(api, authMW)
	authH.RegisterRoutes(api, authMW)
	analyzeH.RegisterRoutes(api, authMW)

	// dispatch ledger is only available when Redis is configured
	dispatches := api.Group("/dispatches", authMW)
	dispatches.GET("", func(c *gin.Context) {
		if ledger == nil {
			response.OK(c, gin.H{"tasks": []any{}, "total": 0})
			return
		}
		q := pagination.FromContext(c)
		tasks, total, err := ledger.List(c.Request.Context(), q.Page, q.Size)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, gin.H{"tasks": tasks, "total": total})
	})
	dispatches.GET("/:id", func(c *gin.Context) {
		if ledger == nil {
			response.NotFound(c)
			return
		}
		task, err := ledger.GetByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, taskqueue.ErrNotFound) {
			response.NotFound(c)
			return
		}
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, task)
	})

	jobs := api.Group("/jobs", authMW)
	jobs.GET("", func(c *gin.Context) {
		response.OK(c, a.sched.Snapshot())
	})
	jobs.POST("/:name/run", func(c *gin.Context) {
		if err := a.sched.Trigger(a.bg, c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.OK(c, gin.H{"message": "job triggered"})
	})

	// browser-facing pages linked from emails
	newsletterH.RegisterPages(a.router.Group(""))

	a.router.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	a.router.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})
}

// tokenSecret picks the subscriber-token secret, falling back to the JWT
// secret in development so a bare config still boots.
func (a *App) tokenSecret() string {
	if a.cfg.TokenSecret != "" {
		return a.cfg.TokenSecret
	}
	return a.cfg.JWTSecret
}
