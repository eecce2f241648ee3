package resource

import (
	"errors"
	"net/url"
	"strings"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/pagination"
	"github.com/foliohq/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrMissingTitle = errors.New("title is required")
	ErrInvalidURL   = errors.New("a valid absolute url is required")
)

type CreateDTO struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Published   *bool    `json:"published"`
}

type UpdateDTO struct {
	Title       *string   `json:"title"`
	URL         *string   `json:"url"`
	Category    *string   `json:"category"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Published   *bool     `json:"published"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns published resources, optionally filtered by category.
func (s *Service) List(q pagination.Query, category string) ([]models.ResourceModel, response.Pagination, error) {
	query := s.db.Model(&models.ResourceModel{}).Where("published = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var resources []models.ResourceModel
	meta, err := pagination.Paginate(query.Order("created_at DESC"), q, &resources)
	return resources, meta, err
}

// Categories returns the distinct categories in use.
func (s *Service) Categories() ([]string, error) {
	var categories []string
	err := s.db.Model(&models.ResourceModel{}).
		Where("published = ? AND category <> ''", true).
		Distinct().Order("category").Pluck("category", &categories).Error
	return categories, err
}

func (s *Service) Get(id string) (*models.ResourceModel, error) {
	var resource models.ResourceModel
	if err := s.db.Where("id = ?", id).First(&resource).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

func (s *Service) Create(dto *CreateDTO) (*models.ResourceModel, error) {
	title := strings.TrimSpace(dto.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}
	if err := validateURL(dto.URL); err != nil {
		return nil, err
	}

	resource := models.ResourceModel{
		Title:       title,
		URL:         dto.URL,
		Category:    strings.TrimSpace(dto.Category),
		Description: dto.Description,
		Tags:        dto.Tags,
		Published:   true,
	}
	if dto.Published != nil {
		resource.Published = *dto.Published
	}
	if err := s.db.Create(&resource).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

func (s *Service) Update(id string, dto *UpdateDTO) (*models.ResourceModel, error) {
	var resource models.ResourceModel
	if err := s.db.Where("id = ?", id).First(&resource).Error; err != nil {
		return nil, err
	}

	if dto.Title != nil {
		if strings.TrimSpace(*dto.Title) == "" {
			return nil, ErrMissingTitle
		}
		resource.Title = strings.TrimSpace(*dto.Title)
	}
	if dto.URL != nil {
		if err := validateURL(*dto.URL); err != nil {
			return nil, err
		}
		resource.URL = *dto.URL
	}
	if dto.Category != nil {
		resource.Category = strings.TrimSpace(*dto.Category)
	}
	if dto.Description != nil {
		resource.Description = *dto.Description
	}
	if dto.Tags != nil {
		resource.Tags = *dto.Tags
	}
	if dto.Published != nil {
		resource.Published = *dto.Published
	}

	if err := s.db.Save(&resource).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.ResourceModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidURL
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
	g := rg.Group("/resources")
	g.GET("", h.list)
	g.GET("/categories", h.categories)

	g.POST("", authMW, h.create)
	g.PATCH("/:id", authMW, h.update)
	g.DELETE("/:id", authMW, h.remove)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	resources, meta, err := h.svc.List(q, c.Query("category"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, resources, meta)
}

func (h *Handler) categories(c *gin.Context) {
	categories, err := h.svc.Categories()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, categories)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	resource, err := h.svc.Create(&dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, resource)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	resource, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, resource)
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
	case errors.Is(err, ErrMissingTitle), errors.Is(err, ErrInvalidURL):
		response.BadRequest(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	default:
		response.InternalError(c, err)
	}
}
