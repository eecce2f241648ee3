package analyze

import (
	"strings"
	"time"

	"github.com/foliohq/core/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Middleware records each successful public GET request as a page-view
// event. Bots, authenticated callers and loopback traffic are skipped, and
// the insert happens off the request goroutine.
func Middleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // handle the request first to get the status code

		if c.Request.Method != "GET" {
			return
		}
		rawPath := strings.TrimSpace(c.Request.URL.Path)
		if rawPath != "/api" && !strings.HasPrefix(rawPath, "/api/") {
			return
		}
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if isBotUA(c.GetHeader("User-Agent")) {
			return
		}
		if c.GetHeader("Authorization") != "" {
			return
		}

		ip := strings.TrimSpace(c.ClientIP())
		if ip == "" || ip == "127.0.0.1" || ip == "localhost" || ip == "::1" {
			return
		}

		event := models.AnalyzeModel{
			IP:        ip,
			UA:        c.GetHeader("User-Agent"),
			Path:      normalizePath(rawPath),
			Referer:   c.GetHeader("Referer"),
			Timestamp: time.Now(),
		}
		go func() {
			_ = db.Create(&event).Error
		}()
	}
}

// isBotUA reports whether the User-Agent indicates a crawler or tool.
func isBotUA(ua string) bool {
	lower := strings.ToLower(ua)
	keywords := []string{"bot", "crawler", "spider", "headless", "wget", "curl", "python-requests", "go-http", "java/", "scrapy"}
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// normalizePath strips the /api and optional /vN version prefix so the same
// resource aggregates under one path across API versions.
func normalizePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" || p == "/api" {
		return "/"
	}
	if strings.HasPrefix(p, "/api/") {
		p = strings.TrimPrefix(p, "/api")
	}
	if strings.HasPrefix(p, "/v") {
		rest := p[2:]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			if isDigits(rest[:slash]) {
				p = rest[slash:]
			}
		} else if isDigits(rest) {
			return "/"
		}
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

func isDigits(raw string) bool {
	if raw == "" {
		return false
	}
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
