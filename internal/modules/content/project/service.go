package project

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
	ErrSlugExists  = errors.New("a project with this slug already exists")
	ErrMissingName = errors.New("name is required")
	ErrMissingSlug = errors.New("slug is required")
	ErrInvalidSlug = errors.New("slug may only contain lowercase letters, digits and hyphens")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type CreateDTO struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Text        string   `json:"text"`
	CoverURL    string   `json:"cover_url"`
	ProjectURL  string   `json:"project_url"`
	RepoURL     string   `json:"repo_url"`
	TechStack   []string `json:"tech_stack"`
	Featured    bool     `json:"featured"`
	IsPublished bool     `json:"is_published"`
}

type UpdateDTO struct {
	Name        *string   `json:"name"`
	Slug        *string   `json:"slug"`
	Description *string   `json:"description"`
	Text        *string   `json:"text"`
	CoverURL    *string   `json:"cover_url"`
	ProjectURL  *string   `json:"project_url"`
	RepoURL     *string   `json:"repo_url"`
	TechStack   *[]string `json:"tech_stack"`
	Featured    *bool     `json:"featured"`
	IsPublished *bool     `json:"is_published"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns published projects, featured first.
func (s *Service) List(q pagination.Query) ([]models.ProjectModel, response.Pagination, error) {
	var projects []models.ProjectModel
	meta, err := pagination.Paginate(
		s.db.Model(&models.ProjectModel{}).Where("is_published = ?", true).
			Order("featured DESC, published_at DESC"),
		q, &projects)
	return projects, meta, err
}

// ListAll returns every project including drafts (admin).
func (s *Service) ListAll(q pagination.Query) ([]models.ProjectModel, response.Pagination, error) {
	var projects []models.ProjectModel
	meta, err := pagination.Paginate(
		s.db.Model(&models.ProjectModel{}).Order("created_at DESC"), q, &projects)
	return projects, meta, err
}

// Resolve looks a project up by id first, then by slug.
func (s *Service) Resolve(identifier string) (*models.ProjectModel, error) {
	var project models.ProjectModel
	err := s.db.Where("id = ?", identifier).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("slug = ?", identifier).First(&project).Error
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *Service) Create(dto *CreateDTO) (*models.ProjectModel, bool, error) {
	slug := strings.TrimSpace(dto.Slug)
	if strings.TrimSpace(dto.Name) == "" {
		return nil, false, ErrMissingName
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

	project := models.ProjectModel{
		Name:        strings.TrimSpace(dto.Name),
		Slug:        slug,
		Description: dto.Description,
		Text:        dto.Text,
		HTML:        html,
		CoverURL:    dto.CoverURL,
		ProjectURL:  dto.ProjectURL,
		RepoURL:     dto.RepoURL,
		TechStack:   dto.TechStack,
		Featured:    dto.Featured,
		IsPublished: dto.IsPublished,
	}
	if dto.IsPublished {
		now := time.Now()
		project.PublishedAt = &now
	}
	if err := s.db.Create(&project).Error; err != nil {
		return nil, false, err
	}
	return &project, dto.IsPublished, nil
}

// Update applies a partial update; the bool reports a publish edge.
func (s *Service) Update(id string, dto *UpdateDTO) (*models.ProjectModel, bool, error) {
	var project models.ProjectModel
	if err := s.db.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, false, err
	}
	wasPublished := project.IsPublished

	if dto.Slug != nil && *dto.Slug != project.Slug {
		if err := validateSlug(*dto.Slug); err != nil {
			return nil, false, err
		}
		if taken, err := s.slugTaken(*dto.Slug, project.ID); err != nil {
			return nil, false, err
		} else if taken {
			return nil, false, ErrSlugExists
		}
		project.Slug = *dto.Slug
	}
	if dto.Name != nil {
		if strings.TrimSpace(*dto.Name) == "" {
			return nil, false, ErrMissingName
		}
		project.Name = strings.TrimSpace(*dto.Name)
	}
	if dto.Description != nil {
		project.Description = *dto.Description
	}
	if dto.Text != nil {
		html, err := markdown.Render(*dto.Text)
		if err != nil {
			return nil, false, err
		}
		project.Text = *dto.Text
		project.HTML = html
	}
	if dto.CoverURL != nil {
		project.CoverURL = *dto.CoverURL
	}
	if dto.ProjectURL != nil {
		project.ProjectURL = *dto.ProjectURL
	}
	if dto.RepoURL != nil {
		project.RepoURL = *dto.RepoURL
	}
	if dto.TechStack != nil {
		project.TechStack = *dto.TechStack
	}
	if dto.Featured != nil {
		project.Featured = *dto.Featured
	}
	if dto.IsPublished != nil {
		project.IsPublished = *dto.IsPublished
		if *dto.IsPublished && project.PublishedAt == nil {
			now := time.Now()
			project.PublishedAt = &now
		}
	}

	if err := s.db.Save(&project).Error; err != nil {
		return nil, false, err
	}
	return &project, !wasPublished && project.IsPublished, nil
}

func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.ProjectModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Service) slugTaken(slug, excludeID string) (bool, error) {
	query := s.db.Model(&models.ProjectModel{}).Where("slug = ?", slug)
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
