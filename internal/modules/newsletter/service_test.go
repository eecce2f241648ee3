package newsletter

import (
	"errors"
	"testing"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/token"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) (*Service, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.SubscriberModel{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	svc := NewService(gdb, token.NewService("test-secret"), zap.NewNop())

	return svc, func() {
		gdb.Exec("DELETE FROM subscribers")
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func TestSubscribeIdempotentUpsert(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	first, needs, err := svc.Subscribe(&SubscribeDTO{
		Email:       "Reader@Example.com",
		Preferences: PreferencesDTO{BlogPosts: true},
	})
	if err != nil {
		t.Fatalf("first subscribe failed: %v", err)
	}
	if !needs {
		t.Fatal("new subscriber should need confirmation")
	}
	if first.Email != "reader@example.com" {
		t.Fatalf("email not normalized: %q", first.Email)
	}
	if first.IsConfirmed {
		t.Fatal("new subscriber should start unconfirmed")
	}

	// simulate a completed confirmation
	if err := svc.db.Model(&models.SubscriberModel{}).
		Where("email = ?", "reader@example.com").
		Updates(map[string]interface{}{"is_confirmed": true, "is_active": true}).Error; err != nil {
		t.Fatalf("failed to confirm: %v", err)
	}

	// resubscribe with different preferences
	second, needs, err := svc.Subscribe(&SubscribeDTO{
		Email:       "reader@example.com",
		Preferences: PreferencesDTO{Projects: true},
	})
	if err != nil {
		t.Fatalf("resubscribe failed: %v", err)
	}
	if needs {
		t.Fatal("confirmed subscriber must not be forced to re-confirm")
	}
	if !second.IsConfirmed {
		t.Fatal("resubscribe must preserve is_confirmed")
	}
	if !second.WantsProjects || second.WantsBlogPosts {
		t.Fatalf("latest preferences not applied: projects=%v blog_posts=%v", second.WantsProjects, second.WantsBlogPosts)
	}

	var count int64
	svc.db.Model(&models.SubscriberModel{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one subscriber row, got %d", count)
	}
}

func TestSubscribeValidation(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	cases := []struct {
		name    string
		dto     SubscribeDTO
		wantErr error
	}{
		{"bad email", SubscribeDTO{Email: "not-an-email", Preferences: PreferencesDTO{BlogPosts: true}}, ErrInvalidEmail},
		{"no topics", SubscribeDTO{Email: "a@b.co"}, ErrNoTopics},
	}
	for _, tc := range cases {
		if _, _, err := svc.Subscribe(&tc.dto); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.wantErr)
		}
	}

	var count int64
	svc.db.Model(&models.SubscriberModel{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected submissions must not create rows, got %d", count)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	if _, _, err := svc.Subscribe(&SubscribeDTO{Email: "reader@example.com", Preferences: PreferencesDTO{BlogPosts: true}}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	tok, err := svc.Tokens().Issue("reader@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.Confirm("reader@example.com", tok); err != nil {
			t.Fatalf("confirm attempt %d failed: %v", i+1, err)
		}
	}

	sub, err := svc.GetByEmail("reader@example.com")
	if err != nil || sub == nil {
		t.Fatalf("subscriber missing: %v", err)
	}
	if !sub.IsConfirmed || !sub.IsActive {
		t.Fatalf("expected confirmed+active, got confirmed=%v active=%v", sub.IsConfirmed, sub.IsActive)
	}
}

func TestConfirmRejectsBadToken(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	if _, _, err := svc.Subscribe(&SubscribeDTO{Email: "reader@example.com", Preferences: PreferencesDTO{BlogPosts: true}}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// token for a different email must not confirm this one
	tok, _ := svc.Tokens().Issue("other@example.com")
	if err := svc.Confirm("reader@example.com", tok); !errors.Is(err, token.ErrInvalidLink) {
		t.Fatalf("expected generic link error, got %v", err)
	}

	sub, _ := svc.GetByEmail("reader@example.com")
	if sub.IsConfirmed {
		t.Fatal("failed verification must not mutate state")
	}
}

func TestUnsubscribeKeepsSuppressionRecord(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	if _, _, err := svc.Subscribe(&SubscribeDTO{Email: "reader@example.com", Preferences: PreferencesDTO{BlogPosts: true, Projects: true}}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	tok, _ := svc.Tokens().Issue("reader@example.com")
	if err := svc.Confirm("reader@example.com", tok); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if err := svc.Unsubscribe("reader@example.com", tok); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}

	sub, err := svc.GetByEmail("reader@example.com")
	if err != nil || sub == nil {
		t.Fatal("unsubscribe must keep the record")
	}
	if sub.IsActive {
		t.Fatal("unsubscribed record must be inactive")
	}

	// preference flags still true, but the subscriber must not be a recipient
	for _, topic := range []string{models.TopicBlogPosts, models.TopicProjects} {
		recipients, err := svc.Recipients(topic)
		if err != nil {
			t.Fatalf("recipients(%s) failed: %v", topic, err)
		}
		if len(recipients) != 0 {
			t.Fatalf("unsubscribed email leaked into %s recipients", topic)
		}
	}

	// a later resubscribe must not silently reactivate without confirmation
	sub, needs, err := svc.Subscribe(&SubscribeDTO{Email: "reader@example.com", Preferences: PreferencesDTO{BlogPosts: true}})
	if err != nil {
		t.Fatalf("resubscribe failed: %v", err)
	}
	if sub.IsActive {
		t.Fatal("resubscribe must not bypass a prior opt-out")
	}
	if !needs {
		t.Fatal("resubscribe after opt-out must require fresh confirmation")
	}
}

func TestUnsubscribeViaOldLinkBeforeConfirming(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	if _, _, err := svc.Subscribe(&SubscribeDTO{Email: "reader@example.com", Preferences: PreferencesDTO{BlogPosts: true}}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// verification is stateless: unsubscribe works without prior confirm
	tok, _ := svc.Tokens().Issue("reader@example.com")
	if err := svc.Unsubscribe("reader@example.com", tok); err != nil {
		t.Fatalf("unsubscribe before confirm failed: %v", err)
	}

	sub, _ := svc.GetByEmail("reader@example.com")
	if sub.IsActive || sub.IsConfirmed {
		t.Fatalf("expected inactive unconfirmed terminal state, got active=%v confirmed=%v", sub.IsActive, sub.IsConfirmed)
	}
}

func TestRecipientsPreferenceGating(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	seed := []models.SubscriberModel{
		{Email: "blog-only@example.com", WantsBlogPosts: true, IsConfirmed: true, IsActive: true},
		{Email: "projects-only@example.com", WantsProjects: true, IsConfirmed: true, IsActive: true},
		{Email: "both@example.com", WantsBlogPosts: true, WantsProjects: true, IsConfirmed: true, IsActive: true},
		{Email: "unconfirmed@example.com", WantsBlogPosts: true, IsActive: true},
		{Email: "inactive@example.com", WantsBlogPosts: true, IsConfirmed: true, IsActive: false},
	}
	for i := range seed {
		// GORM substitutes the column default for zero-valued fields on
		// Create, so IsActive: false cannot be inserted directly; flip it
		// with an explicit column update, as the unsubscribe path does.
		active := seed[i].IsActive
		if err := svc.db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		if !active {
			if err := svc.db.Model(&seed[i]).UpdateColumn("is_active", false).Error; err != nil {
				t.Fatalf("seed failed: %v", err)
			}
		}
	}

	blog, err := svc.Recipients(models.TopicBlogPosts)
	if err != nil {
		t.Fatalf("recipients failed: %v", err)
	}
	if got := emailSet(blog); !got["blog-only@example.com"] || !got["both@example.com"] || len(got) != 2 {
		t.Fatalf("unexpected blog recipients: %v", got)
	}

	projects, err := svc.Recipients(models.TopicProjects)
	if err != nil {
		t.Fatalf("recipients failed: %v", err)
	}
	if got := emailSet(projects); !got["projects-only@example.com"] || !got["both@example.com"] || len(got) != 2 {
		t.Fatalf("unexpected project recipients: %v", got)
	}
}

func TestUpdatePreferencesBothFalseDoesNotDeactivate(t *testing.T) {
	svc, cleanup := setupTestService(t)
	defer cleanup()

	if _, _, err := svc.Subscribe(&SubscribeDTO{Email: "reader@example.com", Preferences: PreferencesDTO{BlogPosts: true}}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	tok, _ := svc.Tokens().Issue("reader@example.com")
	if err := svc.Confirm("reader@example.com", tok); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	if err := svc.UpdatePreferences("reader@example.com", tok, PreferencesDTO{}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	sub, _ := svc.GetByEmail("reader@example.com")
	if sub.WantsBlogPosts || sub.WantsProjects {
		t.Fatal("preferences not cleared")
	}
	if !sub.IsActive {
		t.Fatal("clearing preferences must not deactivate; unsubscribe is explicit")
	}
}

func emailSet(subs []models.SubscriberModel) map[string]bool {
	out := make(map[string]bool, len(subs))
	for _, s := range subs {
		out[s.Email] = true
	}
	return out
}
