package page

import (
	"errors"
	"strings"
	"testing"

	"github.com/foliohq/core/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTest(t *testing.T) (*Service, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.PageModel{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewService(gdb), func() {
		gdb.Exec("DELETE FROM pages")
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func TestCreateAndGetBySlug(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	created, err := svc.Create(&CreateDTO{Title: "About", Slug: "about", Text: "I build **things**."})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(created.HTML, "<strong>things</strong>") {
		t.Fatalf("markdown not rendered: %q", created.HTML)
	}

	got, err := svc.GetBySlug("about")
	if err != nil || got.ID != created.ID {
		t.Fatalf("get by slug failed: %v", err)
	}

	if _, err := svc.Create(&CreateDTO{Title: "About 2", Slug: "about"}); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("got %v, want slug conflict", err)
	}
}

func TestUpdateReRendersMarkdown(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	if _, err := svc.Create(&CreateDTO{Title: "Now", Slug: "now", Text: "old"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	text := "new *emphasis*"
	updated, err := svc.Update("now", &UpdateDTO{Text: &text})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !strings.Contains(updated.HTML, "<em>emphasis</em>") {
		t.Fatalf("html not re-rendered: %q", updated.HTML)
	}
}
