package project

import (
	"errors"
	"testing"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/pagination"
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
	if err := gdb.AutoMigrate(&models.ProjectModel{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewService(gdb), func() {
		gdb.Exec("DELETE FROM projects")
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func TestCreateAndResolve(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	created, published, err := svc.Create(&CreateDTO{
		Name:        "Folio",
		Slug:        "folio",
		Text:        "A **portfolio** engine.",
		TechStack:   []string{"go", "mysql"},
		IsPublished: true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !published {
		t.Fatal("creating published must report a publish edge")
	}
	if created.HTML == "" || created.Text != "A **portfolio** engine." {
		t.Fatalf("markdown handling wrong: text=%q html=%q", created.Text, created.HTML)
	}
	if !created.TechStack.Contains("go") {
		t.Fatalf("tech stack not stored: %v", created.TechStack)
	}

	bySlug, err := svc.Resolve("folio")
	if err != nil || bySlug.ID != created.ID {
		t.Fatalf("resolve by slug failed: %v", err)
	}
	byID, err := svc.Resolve(created.ID)
	if err != nil || byID.Slug != "folio" {
		t.Fatalf("resolve by id failed: %v", err)
	}
}

func TestSlugConflict(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	if _, _, err := svc.Create(&CreateDTO{Name: "One", Slug: "dup"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Create(&CreateDTO{Name: "Two", Slug: "dup"}); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("got %v, want slug conflict", err)
	}
}

func TestPublishEdgeOnUpdate(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	created, _, err := svc.Create(&CreateDTO{Name: "Draft", Slug: "draft"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	pub := true
	updated, edge, err := svc.Update(created.ID, &UpdateDTO{IsPublished: &pub})
	if err != nil || !edge {
		t.Fatalf("publish: edge=%v err=%v", edge, err)
	}
	if updated.PublishedAt == nil {
		t.Fatal("publish must stamp published_at")
	}
	if _, edge, _ := svc.Update(created.ID, &UpdateDTO{IsPublished: &pub}); edge {
		t.Fatal("already-published update must not be an edge")
	}
}

func TestListOrdersFeaturedFirst(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	if _, _, err := svc.Create(&CreateDTO{Name: "Plain", Slug: "plain", IsPublished: true}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Create(&CreateDTO{Name: "Star", Slug: "star", Featured: true, IsPublished: true}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Create(&CreateDTO{Name: "Hidden", Slug: "hidden"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	projects, meta, err := svc.List(pagination.Query{Page: 1, Size: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if meta.Total != 2 {
		t.Fatalf("drafts leaked: total=%d", meta.Total)
	}
	if projects[0].Slug != "star" {
		t.Fatalf("featured project not first: %s", projects[0].Slug)
	}
}
