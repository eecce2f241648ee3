package models

import "time"

// AnalyzeModel tracks page view analytics.
type AnalyzeModel struct {
	Base
	IP        string    `json:"ip"        gorm:"index"`
	UA        string    `json:"ua"        gorm:"type:text"`
	Path      string    `json:"path"      gorm:"index"`
	Referer   string    `json:"referer"   gorm:"index"`
	Timestamp time.Time `json:"timestamp" gorm:"index;index:idx_ts_path,composite:1"`
}

func (AnalyzeModel) TableName() string { return "analyzes" }
