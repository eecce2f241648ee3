package post

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/markdown"
	"github.com/foliohq/core/internal/pkg/pagination"
	"github.com/foliohq/core/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrSlugExists   = errors.New("a post with this slug already exists")
	ErrMissingTitle = errors.New("title is required")
	ErrMissingSlug  = errors.New("slug is required")
	ErrInvalidSlug  = errors.New("slug may only contain lowercase letters, digits and hyphens")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// CreateDTO is the admin payload for creating a post.
type CreateDTO struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Text        string   `json:"text"`
	Summary     string   `json:"summary"`
	CoverURL    string   `json:"cover_url"`
	Tags        []string `json:"tags"`
	IsPublished bool     `json:"is_published"`
	Pin         bool     `json:"pin"`
}

// UpdateDTO uses pointers so omitted fields stay untouched.
type UpdateDTO struct {
	Title       *string   `json:"title"`
	Slug        *string   `json:"slug"`
	Text        *string   `json:"text"`
	Summary     *string   `json:"summary"`
	CoverURL    *string   `json:"cover_url"`
	Tags        *[]string `json:"tags"`
	IsPublished *bool     `json:"is_published"`
	Pin         *bool     `json:"pin"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns published posts, newest first, pinned first.
func (s *Service) List(q pagination.Query, tag string) ([]models.PostModel, response.Pagination, error) {
	query := s.db.Model(&models.PostModel{}).Where("is_published = ?", true)
	if tag != "" {
		query = query.Where("tags LIKE ?", "%\""+tag+"\"%")
	}

	var posts []models.PostModel
	meta, err := pagination.Paginate(query.Order("pin DESC, published_at DESC"), q, &posts)
	return posts, meta, err
}

// ListAll returns every post including drafts (admin).
func (s *Service) ListAll(q pagination.Query) ([]models.PostModel, response.Pagination, error) {
	var posts []models.PostModel
	meta, err := pagination.Paginate(s.db.Model(&models.PostModel{}).Order("created_at DESC"), q, &posts)
	return posts, meta, err
}

// Resolve looks a post up by id first, then by slug. UUIDs and slugs live
// in disjoint namespaces, so the two-step lookup cannot be ambiguous.
func (s *Service) Resolve(identifier string) (*models.PostModel, error) {
	var post models.PostModel
	err := s.db.Where("id = ?", identifier).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("slug = ?", identifier).First(&post).Error
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Create stores a new post, rendering the markdown body. Returns the post
// and whether its creation constitutes a publish edge.
func (s *Service) Create(dto *CreateDTO) (*models.PostModel, bool, error) {
	slug := strings.TrimSpace(dto.Slug)
	if strings.TrimSpace(dto.Title) == "" {
		return nil, false, ErrMissingTitle
	}
	if err := validateSlug(slug); err != nil {
		return nil, false, err
	}
	if taken, err := s.slugTaken(slug, ""); err != nil {
		return nil, false, err
	} else if taken {
		return nil, false, ErrSlugExists
	}

	html, err := markdown.Render(dto.Text)
	if err != nil {
		return nil, false, err
	}

	post := models.PostModel{
		ContentBase: models.ContentBase{
			Title: strings.TrimSpace(dto.Title),
			Text:  dto.Text,
			HTML:  html,
		},
		Slug:        slug,
		Summary:     dto.Summary,
		CoverURL:    dto.CoverURL,
		Tags:        dto.Tags,
		IsPublished: dto.IsPublished,
		Pin:         dto.Pin,
	}
	if dto.IsPublished {
		now := time.Now()
		post.PublishedAt = &now
	}
	if err := s.db.Create(&post).Error; err != nil {
		return nil, false, err
	}
	return &post, dto.IsPublished, nil
}

// Update applies a partial update. The returned bool reports a publish
// edge: the post was not published before and is now.
func (s *Service) Update(id string, dto *UpdateDTO) (*models.PostModel, bool, error) {
	var post models.PostModel
	if err := s.db.Where("id = ?", id).First(&post).Error; err != nil {
		return nil, false, err
	}
	wasPublished := post.IsPublished

	if dto.Slug != nil && *dto.Slug != post.Slug {
		if err := validateSlug(*dto.Slug); err != nil {
			return nil, false, err
		}
		if taken, err := s.slugTaken(*dto.Slug, post.ID); err != nil {
			return nil, false, err
		} else if taken {
			return nil, false, ErrSlugExists
		}
		post.Slug = *dto.Slug
	}
	if dto.Title != nil {
		if strings.TrimSpace(*dto.Title) == "" {
			return nil, false, ErrMissingTitle
		}
		post.Title = strings.TrimSpace(*dto.Title)
	}
	if dto.Text != nil {
		html, err := markdown.Render(*dto.Text)
		if err != nil {
			return nil, false, err
		}
		post.Text = *dto.Text
		post.HTML = html
	}
	if dto.Summary != nil {
		post.Summary = *dto.Summary
	}
	if dto.CoverURL != nil {
		post.CoverURL = *dto.CoverURL
	}
	if dto.Tags != nil {
		post.Tags = *dto.Tags
	}
	if dto.Pin != nil {
		post.Pin = *dto.Pin
	}
	if dto.IsPublished != nil {
		post.IsPublished = *dto.IsPublished
		if *dto.IsPublished && post.PublishedAt == nil {
			now := time.Now()
			post.PublishedAt = &now
		}
	}

	if err := s.db.Save(&post).Error; err != nil {
		return nil, false, err
	}
	return &post, !wasPublished && post.IsPublished, nil
}

// Delete soft-deletes a post.
func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.PostModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementRead bumps the read counter without touching updated_at.
func (s *Service) IncrementRead(id string) {
	s.db.Model(&models.PostModel{}).Where("id = ?", id).
		UpdateColumn("read_count", gorm.Expr("read_count + 1"))
}

func (s *Service) slugTaken(slug, excludeID string) (bool, error) {
	query := s.db.Model(&models.PostModel{}).Where("slug = ?", slug)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func validateSlug(slug string) error {
	if slug == "" {
		return ErrMissingSlug
	}
	if !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}
