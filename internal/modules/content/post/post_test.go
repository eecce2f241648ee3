package post

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/modules/newsletter"
	"github.com/foliohq/core/internal/pkg/pagination"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeNotifier struct {
	mu       sync.Mutex
	received []newsletter.Content
}

func (f *fakeNotifier) Dispatch(content newsletter.Content) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, content)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func setupTest(t *testing.T) (*Service, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.PostModel{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewService(gdb), func() {
		gdb.Exec("DELETE FROM posts")
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func TestCreateRendersMarkdown(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	post, published, err := svc.Create(&CreateDTO{
		Title: "Hello",
		Slug:  "hello",
		Text:  "# Heading\n\nSome **bold** text.",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if published {
		t.Fatal("draft creation must not be a publish edge")
	}
	if !strings.Contains(post.HTML, "<strong>bold</strong>") {
		t.Fatalf("markdown not rendered: %q", post.HTML)
	}
	if strings.Contains(post.HTML, "<script") {
		t.Fatal("rendered html must be sanitized")
	}
}

func TestCreateSanitizesScript(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	post, _, err := svc.Create(&CreateDTO{
		Title: "Sneaky",
		Slug:  "sneaky",
		Text:  "hi <script>alert(1)</script> there",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if strings.Contains(post.HTML, "<script") {
		t.Fatalf("script tag survived sanitization: %q", post.HTML)
	}
}

func TestSlugConflict(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	if _, _, err := svc.Create(&CreateDTO{Title: "One", Slug: "taken"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Create(&CreateDTO{Title: "Two", Slug: "taken"}); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("got %v, want slug conflict", err)
	}

	// updating a post to a taken slug conflicts too; keeping its own is fine
	other, _, err := svc.Create(&CreateDTO{Title: "Three", Slug: "other"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	taken := "taken"
	if _, _, err := svc.Update(other.ID, &UpdateDTO{Slug: &taken}); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("got %v, want slug conflict", err)
	}
	own := "other"
	if _, _, err := svc.Update(other.ID, &UpdateDTO{Slug: &own}); err != nil {
		t.Fatalf("keeping own slug must not conflict: %v", err)
	}
}

func TestSlugValidation(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	for _, bad := range []string{"", "Has Spaces", "UPPER", "trailing-", "-leading", "a--b"} {
		if _, _, err := svc.Create(&CreateDTO{Title: "T", Slug: bad}); err == nil {
			t.Errorf("slug %q should be rejected", bad)
		}
	}
}

func TestResolveIDThenSlug(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	created, _, err := svc.Create(&CreateDTO{Title: "Hello", Slug: "hello-world", IsPublished: true})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	byID, err := svc.Resolve(created.ID)
	if err != nil || byID.Slug != "hello-world" {
		t.Fatalf("resolve by id failed: %v", err)
	}
	bySlug, err := svc.Resolve("hello-world")
	if err != nil || bySlug.ID != created.ID {
		t.Fatalf("resolve by slug failed: %v", err)
	}
	if _, err := svc.Resolve("nope"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("got %v, want record-not-found", err)
	}
}

func TestPublishEdgeDetection(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	post, _, err := svc.Create(&CreateDTO{Title: "Draft", Slug: "draft"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// draft edit: no edge
	text := "updated"
	if _, edge, err := svc.Update(post.ID, &UpdateDTO{Text: &text}); err != nil || edge {
		t.Fatalf("draft edit: edge=%v err=%v", edge, err)
	}

	// unpublished -> published: edge
	pub := true
	updated, edge, err := svc.Update(post.ID, &UpdateDTO{IsPublished: &pub})
	if err != nil || !edge {
		t.Fatalf("publish: edge=%v err=%v", edge, err)
	}
	if updated.PublishedAt == nil {
		t.Fatal("publish must stamp published_at")
	}

	// editing a published post: no edge
	if _, edge, err := svc.Update(post.ID, &UpdateDTO{Text: &text}); err != nil || edge {
		t.Fatalf("published edit: edge=%v err=%v", edge, err)
	}

	// unpublish then republish: edge again
	unpub := false
	if _, edge, _ := svc.Update(post.ID, &UpdateDTO{IsPublished: &unpub}); edge {
		t.Fatal("unpublish must not be an edge")
	}
	if _, edge, _ := svc.Update(post.ID, &UpdateDTO{IsPublished: &pub}); !edge {
		t.Fatal("republish after unpublish is an edge")
	}
}

func TestListHidesDrafts(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	if _, _, err := svc.Create(&CreateDTO{Title: "Live", Slug: "live", IsPublished: true}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, _, err := svc.Create(&CreateDTO{Title: "Draft", Slug: "draft"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	public, meta, err := svc.List(pagination.Query{Page: 1, Size: 10}, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(public) != 1 || meta.Total != 1 || public[0].Slug != "live" {
		t.Fatalf("drafts leaked into public list: %+v", public)
	}

	all, _, err := svc.ListAll(pagination.Query{Page: 1, Size: 10})
	if err != nil || len(all) != 2 {
		t.Fatalf("admin list should include drafts: %d (%v)", len(all), err)
	}
}

func TestPublishTriggersNotification(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()
	gin.SetMode(gin.TestMode)

	notifier := &fakeNotifier{}
	h := NewHandler(svc, notifier, zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"), func(c *gin.Context) { c.Next() })

	body := `{"title":"Launch","slug":"launch","text":"# Hi","summary":"short","is_published":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	if notifier.count() != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", notifier.count())
	}
	got := notifier.received[0]
	if got.Topic != models.TopicBlogPosts || got.Path != "/blog/launch" {
		t.Fatalf("unexpected dispatch payload: %+v", got)
	}

	// editing the already-published post must not re-notify
	var created models.PostModel
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad create body: %v", err)
	}
	patch := `{"summary":"edited"}`
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/posts/"+created.ID, strings.NewReader(patch))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if notifier.count() != 1 {
		t.Fatalf("edit re-notified: %d dispatches", notifier.count())
	}
}
