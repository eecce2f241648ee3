package journal

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/foliohq/core/internal/middleware"
	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/markdown"
	"github.com/foliohq/core/internal/pkg/pagination"
	"github.com/foliohq/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrSlugExists   = errors.New("a journal entry with this slug already exists")
	ErrMissingTitle = errors.New("title is required")
	ErrInvalidSlug  = errors.New("slug may only contain lowercase letters, digits and hyphens")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type CreateDTO struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Text        string     `json:"text"`
	Mood        string     `json:"mood"`
	EntryDate   *time.Time `json:"entry_date"`
	IsPublished bool       `json:"is_published"`
}

type UpdateDTO struct {
	Title       *string    `json:"title"`
	Text        *string    `json:"text"`
	Mood        *string    `json:"mood"`
	EntryDate   *time.Time `json:"entry_date"`
	IsPublished *bool      `json:"is_published"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns published entries ordered by entry date.
func (s *Service) List(q pagination.Query) ([]models.JournalModel, response.Pagination, error) {
	var entries []models.JournalModel
	meta, err := pagination.Paginate(
		s.db.Model(&models.JournalModel{}).Where("is_published = ?", true).
			Order("entry_date DESC"),
		q, &entries)
	return entries, meta, err
}

func (s *Service) ListAll(q pagination.Query) ([]models.JournalModel, response.Pagination, error) {
	var entries []models.JournalModel
	meta, err := pagination.Paginate(
		s.db.Model(&models.JournalModel{}).Order("entry_date DESC"), q, &entries)
	return entries, meta, err
}

func (s *Service) Resolve(identifier string) (*models.JournalModel, error) {
	var entry models.JournalModel
	err := s.db.Where("id = ?", identifier).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("slug = ?", identifier).First(&entry).Error
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) Create(dto *CreateDTO) (*models.JournalModel, error) {
	title := strings.TrimSpace(dto.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	slug := strings.TrimSpace(dto.Slug)
	entryDate := time.Now()
	if dto.EntryDate != nil {
		entryDate = *dto.EntryDate
	}
	if slug == "" {
		slug = entryDate.Format("2006-01-02")
	}
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	var count int64
	if err := s.db.Model(&models.JournalModel{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	html, err := markdown.Render(dto.Text)
	if err != nil {
		return nil, err
	}

	entry := models.JournalModel{
		ContentBase: models.ContentBase{Title: title, Text: dto.Text, HTML: html},
		Slug:        slug,
		Mood:        dto.Mood,
		EntryDate:   entryDate,
		IsPublished: dto.IsPublished,
	}
	if dto.IsPublished {
		now := time.Now()
		entry.PublishedAt = &now
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) Update(id string, dto *UpdateDTO) (*models.JournalModel, error) {
	var entry models.JournalModel
	if err := s.db.Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}

	if dto.Title != nil {
		if strings.TrimSpace(*dto.Title) == "" {
			return nil, ErrMissingTitle
		}
		entry.Title = strings.TrimSpace(*dto.Title)
	}
	if dto.Text != nil {
		html, err := markdown.Render(*dto.Text)
		if err != nil {
			return nil, err
		}
		entry.Text = *dto.Text
		entry.HTML = html
	}
	if dto.Mood != nil {
		entry.Mood = *dto.Mood
	}
	if dto.EntryDate != nil {
		entry.EntryDate = *dto.EntryDate
	}
	if dto.IsPublished != nil {
		entry.IsPublished = *dto.IsPublished
		if *dto.IsPublished && entry.PublishedAt == nil {
			now := time.Now()
			entry.PublishedAt = &now
		}
	}

	if err := s.db.Save(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.JournalModel{})
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
	g := rg.Group("/journal")
	g.GET("", h.list)
	g.GET("/:identifier", h.get)

	g.POST("", authMW, h.create)
	g.GET("/admin/all", authMW, h.listAll)
	g.PATCH("/:identifier", authMW, h.update)
	g.DELETE("/:identifier", authMW, h.remove)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	entries, meta, err := h.svc.List(q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, entries, meta)
}

func (h *Handler) listAll(c *gin.Context) {
	q := pagination.FromContext(c)
	entries, meta, err := h.svc.ListAll(q)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, entries, meta)
}

func (h *Handler) get(c *gin.Context) {
	entry, err := h.svc.Resolve(c.Param("identifier"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	if !entry.IsPublished && !middleware.IsAuthenticated(c) {
		response.NotFound(c)
		return
	}
	response.OK(c, entry)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	entry, err := h.svc.Create(&dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, entry)
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
	entry, err := h.svc.Update(target.ID, &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, entry)
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

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSlugExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrMissingTitle), errors.Is(err, ErrInvalidSlug):
		response.BadRequest(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	default:
		response.InternalError(c, err)
	}
}
