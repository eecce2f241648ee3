package models

// TestimonialModel is a quote displayed on the marketing pages.
type TestimonialModel struct {
	Base
	Author  string `json:"author"  gorm:"not null"`
	Role    string `json:"role"`
	Company string `json:"company"`
	Quote   string `json:"quote"   gorm:"type:text;not null"`
	Avatar  string `json:"avatar"`
	Visible bool   `json:"visible" gorm:"default:true;index"`
	Order   int    `json:"order"   gorm:"column:order_num;default:0"`
}

func (TestimonialModel) TableName() string { return "testimonials" }
