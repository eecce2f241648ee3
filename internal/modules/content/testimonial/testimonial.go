package testimonial

import (
	"errors"
	"strings"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrMissingAuthor = errors.New("author is required")
	ErrMissingQuote  = errors.New("quote is required")
)

type CreateDTO struct {
	Author  string `json:"author"`
	Role    string `json:"role"`
	Company string `json:"company"`
	Quote   string `json:"quote"`
	Avatar  string `json:"avatar"`
	Visible *bool  `json:"visible"`
	Order   int    `json:"order"`
}

type UpdateDTO struct {
	Author  *string `json:"author"`
	Role    *string `json:"role"`
	Company *string `json:"company"`
	Quote   *string `json:"quote"`
	Avatar  *string `json:"avatar"`
	Visible *bool   `json:"visible"`
	Order   *int    `json:"order"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns visible testimonials in display order.
func (s *Service) List() ([]models.TestimonialModel, error) {
	var testimonials []models.TestimonialModel
	err := s.db.Where("visible = ?", true).
		Order("order_num ASC, created_at ASC").
		Find(&testimonials).Error
	return testimonials, err
}

// ListAll includes hidden testimonials (admin).
func (s *Service) ListAll() ([]models.TestimonialModel, error) {
	var testimonials []models.TestimonialModel
	err := s.db.Order("order_num ASC, created_at ASC").Find(&testimonials).Error
	return testimonials, err
}

func (s *Service) Create(dto *CreateDTO) (*models.TestimonialModel, error) {
	author := strings.TrimSpace(dto.Author)
	quote := strings.TrimSpace(dto.Quote)
	if author == "" {
		return nil, ErrMissingAuthor
	}
	if quote == "" {
		return nil, ErrMissingQuote
	}

	testimonial := models.TestimonialModel{
		Author:  author,
		Role:    dto.Role,
		Company: dto.Company,
		Quote:   quote,
		Avatar:  dto.Avatar,
		Visible: true,
		Order:   dto.Order,
	}
	if dto.Visible != nil {
		testimonial.Visible = *dto.Visible
	}
	if err := s.db.Create(&testimonial).Error; err != nil {
		return nil, err
	}
	return &testimonial, nil
}

func (s *Service) Update(id string, dto *UpdateDTO) (*models.TestimonialModel, error) {
	var testimonial models.TestimonialModel
	if err := s.db.Where("id = ?", id).First(&testimonial).Error; err != nil {
		return nil, err
	}

	if dto.Author != nil {
		if strings.TrimSpace(*dto.Author) == "" {
			return nil, ErrMissingAuthor
		}
		testimonial.Author = strings.TrimSpace(*dto.Author)
	}
	if dto.Quote != nil {
		if strings.TrimSpace(*dto.Quote) == "" {
			return nil, ErrMissingQuote
		}
		testimonial.Quote = strings.TrimSpace(*dto.Quote)
	}
	if dto.Role != nil {
		testimonial.Role = *dto.Role
	}
	if dto.Company != nil {
		testimonial.Company = *dto.Company
	}
	if dto.Avatar != nil {
		testimonial.Avatar = *dto.Avatar
	}
	if dto.Visible != nil {
		testimonial.Visible = *dto.Visible
	}
	if dto.Order != nil {
		testimonial.Order = *dto.Order
	}

	if err := s.db.Save(&testimonial).Error; err != nil {
		return nil, err
	}
	return &testimonial, nil
}

func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.TestimonialModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/testimonials")
	g.GET("", h.list)

	g.GET("/admin/all", authMW, h.listAll)
	g.POST("", authMW, h.create)
	g.PATCH("/:id", authMW, h.update)
	g.DELETE("/:id", authMW, h.remove)
}

func (h *Handler) list(c *gin.Context) {
	testimonials, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, testimonials)
}

func (h *Handler) listAll(c *gin.Context) {
	testimonials, err := h.svc.ListAll()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, testimonials)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	testimonial, err := h.svc.Create(&dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, testimonial)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	testimonial, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, testimonial)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMissingAuthor), errors.Is(err, ErrMissingQuote):
		response.BadRequest(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	default:
		response.InternalError(c, err)
	}
}
