package models

// PageModel is a static page (e.g. About, Now, Uses).
type PageModel struct {
	ContentBase
	Slug     string `json:"slug"     gorm:"uniqueIndex;not null"`
	Subtitle string `json:"subtitle"`
	Order    int    `json:"order"    gorm:"column:order_num;default:0"`
}

func (PageModel) TableName() string { return "pages" }
