package models

import "time"

// JournalModel is a dated journal entry.
type JournalModel struct {
	ContentBase
	Slug        string     `json:"slug"         gorm:"uniqueIndex;not null"`
	Mood        string     `json:"mood"`
	EntryDate   time.Time  `json:"entry_date"   gorm:"index"`
	IsPublished bool       `json:"is_published" gorm:"default:false;index"`
	PublishedAt *time.Time `json:"published_at"`
}

func (JournalModel) TableName() string { return "journal_entries" }
