package newsletter

import (
	"errors"
	"regexp"
	"strings"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/token"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidEmail = errors.New("a valid email address is required")
	ErrNoTopics     = errors.New("select at least one topic")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service owns the subscriber lifecycle: intake, confirmation, preference
// updates and unsubscribe. Token verification failures abort before any
// mutation and are reported to callers as token.ErrInvalidLink only.
type Service struct {
	db     *gorm.DB
	tokens *token.Service
	log    *zap.Logger
}

func NewService(db *gorm.DB, tokens *token.Service, log *zap.Logger) *Service {
	return &Service{db: db, tokens: tokens, log: log}
}

// Tokens exposes the capability-token service for link building.
func (s *Service) Tokens() *token.Service { return s.tokens }

// Subscribe upserts a subscriber by email. On first insert the record starts
// unconfirmed; resubmission only overwrites the preference flags, so an
// already-confirmed subscriber is never forced through confirmation again
// and a prior unsubscribe is not silently reverted. The returned flag says
// whether a confirmation email should be sent.
func (s *Service) Subscribe(dto *SubscribeDTO) (*models.SubscriberModel, bool, error) {
	email := normalizeEmail(dto.Email)
	if !emailPattern.MatchString(email) {
		return nil, false, ErrInvalidEmail
	}
	if !dto.Preferences.Projects && !dto.Preferences.BlogPosts {
		return nil, false, ErrNoTopics
	}

	sub := models.SubscriberModel{
		Email:          email,
		WantsBlogPosts: dto.Preferences.BlogPosts,
		WantsProjects:  dto.Preferences.Projects,
		IsConfirmed:    false,
		IsActive:       true,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"wants_blog_posts", "wants_projects", "updated_at"}),
	}).Create(&sub).Error
	if err != nil {
		return nil, false, err
	}

	// Re-read to observe the post-upsert state: the conflict path preserves
	// is_confirmed/is_active, which the insert struct above cannot reflect.
	current, err := s.GetByEmail(email)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, gorm.ErrRecordNotFound
	}

	needsConfirmation := !current.IsConfirmed || !current.IsActive
	return current, needsConfirmation, nil
}

// Confirm verifies the token and marks the subscriber confirmed and active.
// Confirming an already-confirmed subscriber is a no-op success.
func (s *Service) Confirm(email, rawToken string) error {
	if err := s.verify(rawToken, email, "confirm"); err != nil {
		return err
	}
	return s.setFlags(email, map[string]interface{}{
		"is_confirmed": true,
		"is_active":    true,
	})
}

// UpdatePreferences verifies the token and overwrites the preference flags.
// Both flags false does not deactivate; unsubscribe is explicit.
func (s *Service) UpdatePreferences(email, rawToken string, prefs PreferencesDTO) error {
	if err := s.verify(rawToken, email, "update_preferences"); err != nil {
		return err
	}
	return s.setFlags(email, map[string]interface{}{
		"wants_blog_posts": prefs.BlogPosts,
		"wants_projects":   prefs.Projects,
	})
}

// Unsubscribe verifies the token and deactivates the subscriber. The record
// is kept as a suppression entry, not deleted.
func (s *Service) Unsubscribe(email, rawToken string) error {
	if err := s.verify(rawToken, email, "unsubscribe"); err != nil {
		return err
	}
	return s.setFlags(email, map[string]interface{}{
		"is_active": false,
	})
}

// Manage verifies the token and returns the subscriber for the management
// page.
func (s *Service) Manage(email, rawToken string) (*models.SubscriberModel, error) {
	if err := s.verify(rawToken, email, "manage"); err != nil {
		return nil, err
	}
	sub, err := s.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, token.ErrInvalidLink
	}
	return sub, nil
}

// GetByEmail returns the subscriber or (nil, nil) when absent.
func (s *Service) GetByEmail(email string) (*models.SubscriberModel, error) {
	var sub models.SubscriberModel
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// Recipients returns confirmed, active subscribers opted into topic. The
// topic filter runs in memory on top of the confirmed+active query.
func (s *Service) Recipients(topic string) ([]models.SubscriberModel, error) {
	var subs []models.SubscriberModel
	err := s.db.Where("is_confirmed = ? AND is_active = ?", true, true).Find(&subs).Error
	if err != nil {
		return nil, err
	}

	out := subs[:0]
	for _, sub := range subs {
		if sub.WantsTopic(topic) {
			out = append(out, sub)
		}
	}
	return out, nil
}

// List returns all subscribers, newest first (admin).
func (s *Service) List() ([]models.SubscriberModel, error) {
	var subs []models.SubscriberModel
	err := s.db.Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// verify runs token verification and collapses every failure reason into the
// generic error after logging the real one.
func (s *Service) verify(rawToken, email, op string) error {
	if err := s.tokens.Verify(rawToken, email); err != nil {
		s.log.Warn("subscriber token rejected",
			zap.String("op", op),
			zap.Error(err),
		)
		return token.ErrInvalidLink
	}
	return nil
}

func (s *Service) setFlags(email string, updates map[string]interface{}) error {
	result := s.db.Model(&models.SubscriberModel{}).
		Where("email = ?", normalizeEmail(email)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Token was valid but no such subscriber. Surface the same generic
		// error: the endpoint must not reveal which addresses exist.
		var count int64
		s.db.Model(&models.SubscriberModel{}).Where("email = ?", normalizeEmail(email)).Count(&count)
		if count == 0 {
			return token.ErrInvalidLink
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
