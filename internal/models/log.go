package models

import (
	"time"
)

// SystemLog 系统日志表
type SystemLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"index" json:"user_id"`
	Type      string    `gorm:"size:50;index" json:"type"` // operation, system
	Action    string    `gorm:"size:100" json:"action"`
	Module    string    `gorm:"size:50" json:"module"`
	Status    string    `gorm:"size:20" json:"status"`
	Duration  int       `json:"duration"` // 毫秒
	Extra     JSONMap   `gorm:"type:json" json:"extra"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorLog 错误日志表
type ErrorLog struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     int64      `gorm:"index" json:"user_id"`
	Level      string     `gorm:"size:20;index" json:"level"` // debug, info, warn, error, fatal
	Module     string     `gorm:"size:50" json:"module"`
	Function   string     `gorm:"size:100" json:"function"`
	Message    string     `gorm:"type:text" json:"message"`
	Stack      string     `gorm:"type:text" json:"stack"`
	File       string     `gorm:"size:255" json:"file"`
	Line       int        `json:"line"`
	Context    JSONMap    `gorm:"type:json" json:"context"`
	IsResolved bool       `gorm:"default:false" json:"is_resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
