package models

import "time"

// ProjectModel is a portfolio project.
type ProjectModel struct {
	Base
	Name        string      `json:"name"         gorm:"not null"`
	Slug        string      `json:"slug"         gorm:"uniqueIndex;not null"`
	Description string      `json:"description"`
	Text        string      `json:"text"         gorm:"type:longtext"`
	HTML        string      `json:"html"         gorm:"type:longtext"`
	CoverURL    string      `json:"cover_url"`
	ProjectURL  string      `json:"project_url"`
	RepoURL     string      `json:"repo_url"`
	TechStack   StringArray `json:"tech_stack"   gorm:"type:longtext"`
	Featured    bool        `json:"featured"     gorm:"default:false"`
	IsPublished bool        `json:"is_published" gorm:"default:false;index"`
	PublishedAt *time.Time  `json:"published_at"`
}

func (ProjectModel) TableName() string { return "projects" }
