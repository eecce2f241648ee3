package project

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
	g := rg.Group("/projects")
	g.GET("", h.list)
	g.GET("/:identifier", h.get)

	g.POST("", authMW, h.create)
	g.GET("/admin/all", authMW, h.listAll)
	g.PATCH("/:identifier", authMW, h.update)
	g.DELETE("/:identifier", authMW, h.remove)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	projects, meta, err := h.svc.List(q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, projects, meta)
}

func (h *Handler) listAll(c *gin.Context) {
	q := pagination.FromContext(c)
	projects, meta, err := h.svc.ListAll(q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, projects, meta)
}

func (h *Handler) get(c *gin.Context) {
	project, err := h.svc.Resolve(c.Param("identifier"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	if !project.IsPublished && !middleware.IsAuthenticated(c) {
		response.NotFound(c)
		return
	}
	response.OK(c, project)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	project, published, err := h.svc.Create(&dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if published {
		h.notifyPublished(project)
	}
	response.Created(c, project)
}

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

	project, publishedEdge, err := h.svc.Update(target.ID, &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if publishedEdge {
		h.notifyPublished(project)
	}
	response.OK(c, project)
}

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

func (h *Handler) notifyPublished(project *models.ProjectModel) {
	if h.notifier == nil {
		return
	}
	h.log.Info("project published, dispatching newsletter",
		zap.String("slug", project.Slug),
	)
	h.notifier.Dispatch(newsletter.Content{
		Topic:    models.TopicProjects,
		Title:    project.Name,
		Excerpt:  project.Description,
		CoverURL: project.CoverURL,
		Tags:     project.TechStack,
		Path:     "/projects/" + project.Slug,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSlugExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrMissingName),
		errors.Is(err, ErrMissingSlug),
		errors.Is(err, ErrInvalidSlug):
		response.BadRequest(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	default:
		response.InternalError(c, err)
	}
}
