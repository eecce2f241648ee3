package models

import "time"

// PostModel is a blog post.
type PostModel struct {
	ContentBase
	Slug        string      `json:"slug"         gorm:"uniqueIndex;not null"`
	Summary     string      `json:"summary"`
	CoverURL    string      `json:"cover_url"`
	Tags        StringArray `json:"tags"         gorm:"type:longtext"`
	IsPublished bool        `json:"is_published" gorm:"default:false;index"`
	PublishedAt *time.Time  `json:"published_at"`
	ReadCount   int64       `json:"read_count"   gorm:"column:read_count;default:0"`
	Pin         bool        `json:"pin"          gorm:"default:false"`
}

func (PostModel) TableName() string { return "posts" }
