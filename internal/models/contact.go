package models

// ContactMessageModel is a message sent through the contact form.
type ContactMessageModel struct {
	Base
	Name    string `json:"name"    gorm:"not null"`
	Email   string `json:"email"   gorm:"not null"`
	Subject string `json:"subject"`
	Message string `json:"message" gorm:"type:text;not null"`
	IP      string `json:"ip"`
	IsRead  bool   `json:"is_read" gorm:"default:false;index"`
}

func (ContactMessageModel) TableName() string { return "contact_messages" }
