package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is the base model for all entities.
type Base struct {
	ID        string         `json:"id"       gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"        gorm:"index"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// ContentBase adds the fields shared by authored content (posts, journal
// entries, pages): a title, markdown source and the sanitized rendered HTML.
type ContentBase struct {
	Base
	Title string `json:"title" gorm:"not null"`
	Text  string `json:"text"  gorm:"type:longtext"`
	HTML  string `json:"html"  gorm:"type:longtext"`
}
