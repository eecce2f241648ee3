package contact

import (
	"errors"

	"github.com/foliohq/core/internal/pkg/pagination"
	"github.com/foliohq/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const receivedHint = "thanks for reaching out, I'll get back to you soon"

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the public intake route and the admin inbox.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, rateLimitMW, authMW gin.HandlerFunc) {
	rg.POST("/contact", rateLimitMW, h.submit)

	admin := rg.Group("/contact", authMW)
	admin.GET("", h.list)
	admin.GET("/unread-count", h.unreadCount)
	admin.GET("/:id", h.get)
	admin.DELETE("/:id", h.remove)
}

// submit POST /contact
func (h *Handler) submit(c *gin.Context) {
	var dto SubmitDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	// Honeypot tripped: accept and discard, same response as a real send.
	if dto.Website != "" {
		response.Created(c, gin.H{"message": receivedHint})
		return
	}

	msg, err := h.svc.Submit(&dto, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingName),
			errors.Is(err, ErrInvalidEmail),
			errors.Is(err, ErrMissingMessage),
			errors.Is(err, ErrMessageTooLong):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}

	h.log.Info("contact message received",
		zap.String("id", msg.ID),
		zap.String("email", msg.Email),
	)
	response.Created(c, gin.H{"message": receivedHint})
}

// list GET /contact (admin)
func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	unreadOnly := c.Query("unread") == "true"

	msgs, meta, err := h.svc.List(q, unreadOnly)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, msgs, meta)
}

// get GET /contact/:id (admin) — marks the message read
func (h *Handler) get(c *gin.Context) {
	msg, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, msg)
}

// remove DELETE /contact/:id (admin)
func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// unreadCount GET /contact/unread-count (admin)
func (h *Handler) unreadCount(c *gin.Context) {
	count, err := h.svc.UnreadCount()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"count": count})
}
