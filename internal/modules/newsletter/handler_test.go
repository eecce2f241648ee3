package newsletter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func passthrough(c *gin.Context) { c.Next() }

func setupTestRouter(t *testing.T) (*gin.Engine, *fakeSender, *Service, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f, sender, svc, cleanup := setupFanout(t)
	h := NewHandler(svc, f, svc.log)

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api, passthrough, passthrough)
	h.RegisterPages(r.Group(""))
	return r, sender, svc, cleanup
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubscribeEndpoint(t *testing.T) {
	r, _, svc, cleanup := setupTestRouter(t)
	defer cleanup()

	w := postJSON(r, "/api/v1/subscribe", `{"email":"reader@example.com","preferences":{"blog_posts":true}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	sub, err := svc.GetByEmail("reader@example.com")
	if err != nil || sub == nil {
		t.Fatalf("subscriber not stored: %v", err)
	}
	if !sub.WantsBlogPosts || sub.WantsProjects {
		t.Fatalf("stored preferences wrong: %+v", sub)
	}
}

func TestSubscribeHoneypot(t *testing.T) {
	r, sender, svc, cleanup := setupTestRouter(t)
	defer cleanup()

	real := postJSON(r, "/api/v1/subscribe", `{"email":"human@example.com","preferences":{"blog_posts":true}}`)
	bot := postJSON(r, "/api/v1/subscribe", `{"email":"bot@example.com","preferences":{"blog_posts":true},"website":"http://spam.example"}`)

	// identical status and body shape: a bot cannot tell it was caught
	if bot.Code != real.Code {
		t.Fatalf("honeypot status %d differs from real %d", bot.Code, real.Code)
	}
	var realBody, botBody map[string]interface{}
	if err := json.Unmarshal(real.Body.Bytes(), &realBody); err != nil {
		t.Fatalf("bad real body: %v", err)
	}
	if err := json.Unmarshal(bot.Body.Bytes(), &botBody); err != nil {
		t.Fatalf("bad bot body: %v", err)
	}
	if realBody["message"] != botBody["message"] {
		t.Fatalf("honeypot body differs: %v vs %v", botBody, realBody)
	}

	if sub, _ := svc.GetByEmail("bot@example.com"); sub != nil {
		t.Fatal("honeypot submission must not create a subscriber")
	}

	// give the async confirmation goroutine a moment, then verify the bot
	// address never received mail
	deadline := time.After(time.Second)
	for {
		sender.mu.Lock()
		n := len(sender.confirms)
		sender.mu.Unlock()
		if n >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("confirmation for the real subscriber never sent")
		case <-time.After(10 * time.Millisecond):
		}
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	for _, to := range sender.confirms {
		if to == "bot@example.com" {
			t.Fatal("honeypot submission must not trigger email")
		}
	}
}

func TestSubscribeRejectsMissingEmail(t *testing.T) {
	r, _, _, cleanup := setupTestRouter(t)
	defer cleanup()

	w := postJSON(r, "/api/v1/subscribe", `{"preferences":{"blog_posts":true}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestConfirmEndpointGenericFailure(t *testing.T) {
	r, _, svc, cleanup := setupTestRouter(t)
	defer cleanup()

	if _, _, err := svc.Subscribe(&SubscribeDTO{Email: "reader@example.com", Preferences: PreferencesDTO{BlogPosts: true}}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// malformed, tampered and mismatched tokens must yield one identical
	// error shape with no hint which check failed
	good, _ := svc.Tokens().Issue("reader@example.com")
	bad := []string{"garbage", good + "x", mustIssue(t, svc, "other@example.com")}
	var bodies []string
	for _, tok := range bad {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/subscribe/confirm?email=reader@example.com&token="+tok, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("token %q: expected 400, got %d", tok, w.Code)
		}
		bodies = append(bodies, w.Body.String())
	}
	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Fatalf("failure bodies differ: %q vs %q", b, bodies[0])
		}
	}
}

func TestConfirmEndpointSuccess(t *testing.T) {
	r, _, svc, cleanup := setupTestRouter(t)
	defer cleanup()

	if _, _, err := svc.Subscribe(&SubscribeDTO{Email: "reader@example.com", Preferences: PreferencesDTO{BlogPosts: true}}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	tok := mustIssue(t, svc, "reader@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscribe/confirm?email=reader@example.com&token="+tok, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	sub, _ := svc.GetByEmail("reader@example.com")
	if !sub.IsConfirmed || !sub.IsActive {
		t.Fatalf("confirm did not persist: %+v", sub)
	}
}

func TestUnsubscribePageShowsVisibleOutcome(t *testing.T) {
	r, _, svc, cleanup := setupTestRouter(t)
	defer cleanup()

	if _, _, err := svc.Subscribe(&SubscribeDTO{Email: "reader@example.com", Preferences: PreferencesDTO{BlogPosts: true}}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	tok := mustIssue(t, svc, "reader@example.com")

	req := httptest.NewRequest(http.MethodGet, "/unsubscribe?email=reader@example.com&token="+tok, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("expected an html page, got %s", ct)
	}
}

func mustIssue(t *testing.T, svc *Service, email string) string {
	t.Helper()
	tok, err := svc.Tokens().Issue(email)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	return tok
}
