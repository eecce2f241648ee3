package page

import (
	"errors"
	"regexp"
	"strings"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/markdown"
	"github.com/foliohq/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrSlugExists   = errors.New("a page with this slug already exists")
	ErrMissingTitle = errors.New("title is required")
	ErrMissingSlug  = errors.New("slug is required")
	ErrInvalidSlug  = errors.New("slug may only contain lowercase letters, digits and hyphens")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type CreateDTO struct {
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Subtitle string `json:"subtitle"`
	Text     string `json:"text"`
	Order    int    `json:"order"`
}

type UpdateDTO struct {
	Title    *string `json:"title"`
	Subtitle *string `json:"subtitle"`
	Text     *string `json:"text"`
	Order    *int    `json:"order"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns all pages in display order.
func (s *Service) List() ([]models.PageModel, error) {
	var pages []models.PageModel
	err := s.db.Order("order_num ASC, created_at ASC").Find(&pages).Error
	return pages, err
}

// GetBySlug returns one page. Pages are always addressed by slug; they have
// stable well-known names (about, now, uses).
func (s *Service) GetBySlug(slug string) (*models.PageModel, error) {
	var page models.PageModel
	if err := s.db.Where("slug = ?", slug).First(&page).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *Service) Create(dto *CreateDTO) (*models.PageModel, error) {
	title := strings.TrimSpace(dto.Title)
	slug := strings.TrimSpace(dto.Slug)
	if title == "" {
		return nil, ErrMissingTitle
	}
	if slug == "" {
		return nil, ErrMissingSlug
	}
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	var count int64
	if err := s.db.Model(&models.PageModel{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	html, err := markdown.Render(dto.Text)
	if err != nil {
		return nil, err
	}

	page := models.PageModel{
		ContentBase: models.ContentBase{Title: title, Text: dto.Text, HTML: html},
		Slug:        slug,
		Subtitle:    dto.Subtitle,
		Order:       dto.Order,
	}
	if err := s.db.Create(&page).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *Service) Update(slug string, dto *UpdateDTO) (*models.PageModel, error) {
	var page models.PageModel
	if err := s.db.Where("slug = ?", slug).First(&page).Error; err != nil {
		return nil, err
	}

	if dto.Title != nil {
		if strings.TrimSpace(*dto.Title) == "" {
			return nil, ErrMissingTitle
		}
		page.Title = strings.TrimSpace(*dto.Title)
	}
	if dto.Subtitle != nil {
		page.Subtitle = *dto.Subtitle
	}
	if dto.Text != nil {
		html, err := markdown.Render(*dto.Text)
		if err != nil {
			return nil, err
		}
		page.Text = *dto.Text
		page.HTML = html
	}
	if dto.Order != nil {
		page.Order = *dto.Order
	}

	if err := s.db.Save(&page).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *Service) Delete(slug string) error {
	result := s.db.Where("slug = ?", slug).Delete(&models.PageModel{})
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
	g := rg.Group("/pages")
	g.GET("", h.list)
	g.GET("/:slug", h.get)

	g.POST("", authMW, h.create)
	g.PATCH("/:slug", authMW, h.update)
	g.DELETE("/:slug", authMW, h.remove)
}

func (h *Handler) list(c *gin.Context) {
	pages, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, pages)
}

func (h *Handler) get(c *gin.Context) {
	page, err := h.svc.GetBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	page, err := h.svc.Create(&dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, page)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	page, err := h.svc.Update(c.Param("slug"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, page)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Param("slug")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
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
