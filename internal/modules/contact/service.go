package contact

import (
	"errors"
	"regexp"
	"strings"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/pagination"
	"github.com/foliohq/core/internal/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrInvalidEmail   = errors.New("a valid email address is required")
	ErrMissingName    = errors.New("name is required")
	ErrMissingMessage = errors.New("message is required")
	ErrMessageTooLong = errors.New("message is too long")
)

const maxMessageLen = 10000

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SubmitDTO is the contact form payload. Website is the honeypot field.
type SubmitDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Website string `json:"website"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Submit validates and stores a contact message.
func (s *Service) Submit(dto *SubmitDTO, ip string) (*models.ContactMessageModel, error) {
	name := strings.TrimSpace(dto.Name)
	email := strings.ToLower(strings.TrimSpace(dto.Email))
	message := strings.TrimSpace(dto.Message)

	if name == "" {
		return nil, ErrMissingName
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if message == "" {
		return nil, ErrMissingMessage
	}
	if len(message) > maxMessageLen {
		return nil, ErrMessageTooLong
	}

	msg := models.ContactMessageModel{
		Name:    name,
		Email:   email,
		Subject: strings.TrimSpace(dto.Subject),
		Message: message,
		IP:      ip,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// List returns messages newest first, optionally only unread.
func (s *Service) List(q pagination.Query, unreadOnly bool) ([]models.ContactMessageModel, response.Pagination, error) {
	query := s.db.Model(&models.ContactMessageModel{})
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var msgs []models.ContactMessageModel
	meta, err := pagination.Paginate(query.Order("created_at DESC"), q, &msgs)
	return msgs, meta, err
}

// Get returns one message and marks it read.
func (s *Service) Get(id string) (*models.ContactMessageModel, error) {
	var msg models.ContactMessageModel
	if err := s.db.Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, err
	}
	if !msg.IsRead {
		if err := s.db.Model(&msg).Update("is_read", true).Error; err != nil {
			return nil, err
		}
		msg.IsRead = true
	}
	return &msg, nil
}

// Delete removes a message permanently.
func (s *Service) Delete(id string) error {
	result := s.db.Unscoped().Where("id = ?", id).Delete(&models.ContactMessageModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UnreadCount returns the number of unread messages.
func (s *Service) UnreadCount() (int64, error) {
	var count int64
	err := s.db.Model(&models.ContactMessageModel{}).Where("is_read = ?", false).Count(&count).Error
	return count, err
}
