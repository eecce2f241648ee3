package analyze

import (
	"time"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/pagination"
	"github.com/foliohq/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RetentionDays is how long raw page-view events are kept.
const RetentionDays = 90

// CleanOld deletes events older than the retention window. Run by the cron
// scheduler; returns the number of deleted rows.
func CleanOld(db *gorm.DB) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -RetentionDays)
	result := db.Where("timestamp < ?", cutoff).Delete(&models.AnalyzeModel{})
	return result.RowsAffected, result.Error
}

// Handler exposes page-view analytics to the admin.
type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/analyze", authMW)
	g.GET("", h.list)
	g.GET("/today", h.today)
	g.GET("/week", h.week)
	g.GET("/total", h.total)
	g.GET("/paths", h.topPaths)
	g.DELETE("", h.cleanOld)
}

type rangeQuery struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to"   time_format:"2006-01-02"`
	Path string     `form:"path"`
}

type pathCount struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	var rq rangeQuery
	if err := c.ShouldBindQuery(&rq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tx := applyFilter(h.db.Model(&models.AnalyzeModel{}).Order("timestamp DESC"), rq)

	var events []models.AnalyzeModel
	meta, err := pagination.Paginate(tx, q, &events)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, events, meta)
}

func (h *Handler) today(c *gin.Context) {
	now := time.Now()
	h.summary(c, beginningOfDay(now), now)
}

func (h *Handler) week(c *gin.Context) {
	now := time.Now()
	h.summary(c, beginningOfWeek(now), now)
}

// summary returns page views and unique visitors for a time range.
func (h *Handler) summary(c *gin.Context, from, to time.Time) {
	ranged := h.db.Model(&models.AnalyzeModel{}).
		Where("timestamp >= ? AND timestamp <= ?", from, to)

	var pv int64
	if err := ranged.Count(&pv).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	var uv int64
	if err := h.db.Model(&models.AnalyzeModel{}).
		Where("timestamp >= ? AND timestamp <= ?", from, to).
		Distinct("ip").Count(&uv).Error; err != nil {
		response.InternalError(c, err)
		return
	}

	paths, err := h.topPathsByRange(from, to, 10)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{
		"from":  from,
		"to":    to,
		"pv":    pv,
		"uv":    uv,
		"paths": paths,
	})
}

func (h *Handler) total(c *gin.Context) {
	var pv, uv int64
	if err := h.db.Model(&models.AnalyzeModel{}).Count(&pv).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	if err := h.db.Model(&models.AnalyzeModel{}).Distinct("ip").Count(&uv).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"pv": pv, "uv": uv})
}

func (h *Handler) topPaths(c *gin.Context) {
	now := time.Now()
	paths, err := h.topPathsByRange(now.AddDate(0, 0, -7), now, 50)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"data": paths})
}

func (h *Handler) cleanOld(c *gin.Context) {
	deleted, err := CleanOld(h.db)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": deleted})
}

func (h *Handler) topPathsByRange(from, to time.Time, limit int) ([]pathCount, error) {
	var paths []pathCount
	err := h.db.Model(&models.AnalyzeModel{}).
		Select("path, COUNT(*) as count").
		Where("timestamp >= ? AND timestamp <= ?", from, to).
		Where("path <> ''").
		Group("path").
		Order("count DESC").
		Limit(limit).
		Scan(&paths).Error
	return paths, err
}

func applyFilter(tx *gorm.DB, rq rangeQuery) *gorm.DB {
	if rq.From != nil {
		tx = tx.Where("timestamp >= ?", *rq.From)
	}
	if rq.To != nil {
		tx = tx.Where("timestamp <= ?", *rq.To)
	}
	if rq.Path != "" {
		tx = tx.Where("path = ?", rq.Path)
	}
	return tx
}

func beginningOfDay(t time.Time) time.Time {
	local := t.In(time.Local)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func beginningOfWeek(t time.Time) time.Time {
	dayStart := beginningOfDay(t)
	return dayStart.AddDate(0, 0, -int(dayStart.Weekday()))
}
