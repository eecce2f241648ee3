package post

import (
	"errors"

	"github.com/foliohq/core/internal/middleware"
	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/modules/newsletter"
	"github.com/foliohq/core/internal/pkg/pagination"
	"github.com/foliohq/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier receives publish notifications. Satisfied by *newsletter.Fanout.
type Notifier interface {
	Dispatch(content newsletter.Content)
}

type Handler struct {
	svc      *Service
	notifier Notifier
	log      *zap.Logger
}

func NewHandler(svc *Service, notifier Notifier, log *zap.Logger) *Handler {
	return &Handler{svc: svc, notifier: notifier, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/posts")
	g.GET("", h.list)
	g.GET("/:identifier", h.get)

	g.POST("", authMW, h.create)
	g.GET("/admin/all", authMW, h.listAll)
	g.PATCH("/:identifier", authMW, h.update)
	g.DELETE("/:identifier", authMW, h.remove)
}

// list GET /posts — published only
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	posts, meta, err := h.svc.List(q, c.Query("tag"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, posts, meta)
}

// listAll GET /posts/admin/all — drafts included
func (h *Handler) listAll(c *gin.Context) {
	q := pagination.FromContext(c)
	posts, meta, err := h.svc.ListAll(q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, posts, meta)
}

// get GET /posts/:identifier — id or slug; drafts are hidden from the public
func (h *Handler) get(c *gin.Context) {
	post, err := h.svc.Resolve(c.Param("identifier"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	if !post.IsPublished && !middleware.IsAuthenticated(c) {
		response.NotFound(c)
		return
	}
	if post.IsPublished {
		h.svc.IncrementRead(post.ID)
	}
	response.OK(c, post)
}

// create POST /posts (admin)
func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	post, published, err := h.svc.Create(&dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if published {
		h.notifyPublished(post)
	}
	response.Created(c, post)
}

// update PATCH /posts/:identifier (admin)
func (h *Handler) update(c *gin.Context) {
	target, err := h.svc.Resolve(c.Param("identifier"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}

	var dto UpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	post, publishedEdge, err := h.svc.Update(target.ID, &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if publishedEdge {
		h.notifyPublished(post)
	}
	response.OK(c, post)
}

// remove DELETE /posts/:identifier (admin)
func (h *Handler) remove(c *gin.Context) {
	target, err := h.svc.Resolve(c.Param("identifier"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	if err := h.svc.Delete(target.ID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// notifyPublished fans out to blog subscribers. Only the unpublished to
// published transition reaches here, so republishing an edited post cannot
// re-notify.
func (h *Handler) notifyPublished(post *models.PostModel) {
	if h.notifier == nil {
		return
	}
	h.log.Info("post published, dispatching newsletter",
		zap.String("slug", post.Slug),
	)
	h.notifier.Dispatch(newsletter.Content{
		Topic:    models.TopicBlogPosts,
		Title:    post.Title,
		Excerpt:  post.Summary,
		CoverURL: post.CoverURL,
		Tags:     post.Tags,
		Path:     "/blog/" + post.Slug,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSlugExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrMissingTitle),
		errors.Is(err, ErrMissingSlug),
		errors.Is(err, ErrInvalidSlug):
		response.BadRequest(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	default:
		response.InternalError(c, err)
	}
}
