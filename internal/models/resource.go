package models

// ResourceModel is a curated external resource (tool, article, library).
type ResourceModel struct {
	Base
	Title       string      `json:"title"     gorm:"not null"`
	URL         string      `json:"url"       gorm:"not null"`
	Category    string      `json:"category"  gorm:"index"`
	Description string      `json:"description"`
	Tags        StringArray `json:"tags"      gorm:"type:longtext"`
	Published   bool        `json:"published" gorm:"default:true;index"`
}

func (ResourceModel) TableName() string { return "resources" }
