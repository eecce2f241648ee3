package newsletter

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/foliohq/core/internal/pkg/response"
	"github.com/foliohq/core/internal/pkg/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const confirmationHint = "check your inbox to confirm your subscription"

// Handler wires the newsletter lifecycle over HTTP. Every UI surface
// (footer form, modal, exit-intent popup) posts to the same intake route, so
// validation cannot diverge between them.
type Handler struct {
	svc    *Service
	fanout *Fanout
	log    *zap.Logger
}

func NewHandler(svc *Service, fanout *Fanout, log *zap.Logger) *Handler {
	return &Handler{svc: svc, fanout: fanout, log: log}
}

// RegisterRoutes mounts JSON API routes onto the versioned group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, rateLimitMW, authMW gin.HandlerFunc) {
	g := rg.Group("/subscribe")
	g.POST("", rateLimitMW, h.subscribe)
	g.GET("/confirm", h.confirm)
	g.GET("/manage", h.manage)
	g.PATCH("/preferences", h.updatePreferences)
	g.POST("/preferences-form", h.updatePreferencesForm)
	g.POST("/unsubscribe", h.unsubscribe)
	g.GET("/unsubscribe", h.unsubscribe)
	g.GET("", authMW, h.list)
}

// RegisterPages mounts the browser-facing confirmation and unsubscribe
// pages linked from emails. Both must show a visible outcome, never a
// silent redirect.
func (h *Handler) RegisterPages(root *gin.RouterGroup) {
	root.GET("/confirm-subscription", h.confirmPage)
	root.GET("/unsubscribe", h.unsubscribePage)
}

// subscribe POST /subscribe
func (h *Handler) subscribe(c *gin.Context) {
	var dto SubscribeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "a valid email address is required")
		return
	}

	// Honeypot tripped: accept and discard. The response must be
	// indistinguishable from a real success.
	if dto.Website != "" {
		response.Created(c, gin.H{"message": confirmationHint})
		return
	}

	sub, needsConfirmation, err := h.svc.Subscribe(&dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrNoTopics):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}

	if needsConfirmation {
		h.fanout.DispatchConfirmation(sub.Email)
	}
	response.Created(c, gin.H{"message": confirmationHint})
}

// confirm GET /subscribe/confirm?email=&token=
func (h *Handler) confirm(c *gin.Context) {
	email, raw := c.Query("email"), c.Query("token")
	if err := h.svc.Confirm(email, raw); err != nil {
		h.tokenFailure(c, err)
		return
	}
	response.OK(c, gin.H{"message": "subscription confirmed"})
}

// manage GET /subscribe/manage?email=&token=
func (h *Handler) manage(c *gin.Context) {
	sub, err := h.svc.Manage(c.Query("email"), c.Query("token"))
	if err != nil {
		h.tokenFailure(c, err)
		return
	}
	response.OK(c, gin.H{
		"email": sub.Email,
		"preferences": PreferencesDTO{
			Projects:  sub.WantsProjects,
			BlogPosts: sub.WantsBlogPosts,
		},
		"is_confirmed": sub.IsConfirmed,
		"is_active":    sub.IsActive,
	})
}

// updatePreferences PATCH /subscribe/preferences
func (h *Handler) updatePreferences(c *gin.Context) {
	var dto ManageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "email and token are required")
		return
	}
	if err := h.svc.UpdatePreferences(dto.Email, dto.Token, dto.Preferences); err != nil {
		h.tokenFailure(c, err)
		return
	}
	response.OK(c, gin.H{"message": "preferences updated"})
}

// updatePreferencesForm POST /subscribe/preferences-form
//
// Form-encoded variant used by the browser management page; checkboxes
// arrive as "on" when ticked.
func (h *Handler) updatePreferencesForm(c *gin.Context) {
	email, raw := c.PostForm("email"), c.PostForm("token")
	if email == "" || raw == "" {
		response.BadRequest(c, "email and token are required")
		return
	}
	prefs := PreferencesDTO{
		BlogPosts: c.PostForm("blog_posts") != "",
		Projects:  c.PostForm("projects") != "",
	}
	if err := h.svc.UpdatePreferences(email, raw, prefs); err != nil {
		h.tokenFailure(c, err)
		return
	}
	response.OK(c, gin.H{"message": "preferences updated"})
}

// unsubscribe POST|GET /subscribe/unsubscribe
func (h *Handler) unsubscribe(c *gin.Context) {
	email, raw := c.Query("email"), c.Query("token")
	if email == "" || raw == "" {
		email, raw = c.PostForm("email"), c.PostForm("token")
	}
	if email == "" || raw == "" {
		var dto ManageDTO
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, "email and token are required")
			return
		}
		email, raw = dto.Email, dto.Token
	}
	if err := h.svc.Unsubscribe(email, raw); err != nil {
		h.tokenFailure(c, err)
		return
	}
	response.OK(c, gin.H{"message": "unsubscribed"})
}

// list GET /subscribe (admin)
func (h *Handler) list(c *gin.Context) {
	subs, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"data": subs, "total": len(subs)})
}

// tokenFailure maps any verification failure to the single generic message.
// Real reasons were already logged by the service.
func (h *Handler) tokenFailure(c *gin.Context, err error) {
	if errors.Is(err, token.ErrInvalidLink) {
		response.BadRequest(c, token.ErrInvalidLink.Error())
		return
	}
	response.InternalError(c, err)
}

// confirmPage GET /confirm-subscription?token=&email=
func (h *Handler) confirmPage(c *gin.Context) {
	email, raw := c.Query("email"), c.Query("token")
	if err := h.svc.Confirm(email, raw); err != nil {
		h.renderPage(c, http.StatusBadRequest, "Subscription not confirmed",
			"This link is invalid or has expired. Please subscribe again to receive a fresh one.")
		return
	}
	h.renderPage(c, http.StatusOK, "Subscription confirmed",
		fmt.Sprintf("You will now receive updates at %s. You can change topics any time from the link in every email.", html.EscapeString(email)))
}

// unsubscribePage GET /unsubscribe?email=&token=
//
// Renders the management page offering: keep the subscription, update
// preferences, or unsubscribe completely.
func (h *Handler) unsubscribePage(c *gin.Context) {
	email, raw := c.Query("email"), c.Query("token")
	sub, err := h.svc.Manage(email, raw)
	if err != nil {
		h.renderPage(c, http.StatusBadRequest, "Link expired",
			"This link is invalid or has expired. Use the link from a more recent email.")
		return
	}

	checked := func(b bool) string {
		if b {
			return " checked"
		}
		return ""
	}
	body := fmt.Sprintf(`<p>Manage the subscription for <strong>%s</strong>:</p>
<form method="POST" action="/api/v1/subscribe/unsubscribe">
  <input type="hidden" name="email" value="%s" />
  <input type="hidden" name="token" value="%s" />
  <label><input type="checkbox" name="blog_posts"%s /> New blog posts</label><br />
  <label><input type="checkbox" name="projects"%s /> New projects</label><br /><br />
  <button type="submit" formaction="/api/v1/subscribe/preferences-form">Update preferences</button>
  <button type="submit">Unsubscribe completely</button>
  <a href="/">Keep subscription</a>
</form>`,
		html.EscapeString(sub.Email),
		html.EscapeString(sub.Email),
		html.EscapeString(raw),
		checked(sub.WantsBlogPosts),
		checked(sub.WantsProjects),
	)
	h.renderHTML(c, http.StatusOK, "Manage subscription", body)
}

func (h *Handler) renderPage(c *gin.Context, status int, title, message string) {
	h.renderHTML(c, status, title, "<p>"+message+"</p>")
}

func (h *Handler) renderHTML(c *gin.Context, status int, title, body string) {
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body style="font-family:sans-serif;max-width:600px;margin:60px auto;padding:0 16px">
<h1>%s</h1>
%s
</body>
</html>`, html.EscapeString(title), html.EscapeString(title), body)
	c.Data(status, "text/html; charset=utf-8", []byte(page))
}
