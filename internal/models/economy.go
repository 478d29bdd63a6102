package models

import (
	"time"
)

// CurrencySource 向日葵来源
type CurrencySource string

// 来源定义（智能扣费顺序：game → gift → rating → streak）
const (
	SourceStreak CurrencySource = "streak"
	SourceGame   CurrencySource = "game"
	SourceGift   CurrencySource = "gift"
	SourceRating CurrencySource = "rating"
)

// DeductOrder 智能扣费的来源消耗顺序
var DeductOrder = []CurrencySource{SourceGame, SourceGift, SourceRating, SourceStreak}

// ValidSource 检查来源是否合法
func ValidSource(s CurrencySource) bool {
	switch s {
	case SourceStreak, SourceGame, SourceGift, SourceRating:
		return true
	}
	return false
}

// LedgerEntry 向日葵流水（只追加，余额为求和结果）
type LedgerEntry struct {
	BaseModel
	UserID  int64          `gorm:"not null;index:idx_ledger_user_source" json:"user_id"`
	OrderNo string         `gorm:"uniqueIndex;size:64;not null" json:"order_no"`
	Source  CurrencySource `gorm:"size:20;not null;index:idx_ledger_user_source" json:"source"`
	Amount  int            `gorm:"not null" json:"amount"` // 正为收入，负为支出
	Remark  string         `gorm:"size:200" json:"remark"`
}

// TableName 指定表名
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Balance 分来源余额快照（展示时各来源向下取零）
type Balance struct {
	Streak int `json:"streak"`
	Game   int `json:"game"`
	Gift   int `json:"gift"`
	Rating int `json:"rating"`
}

// Total 总余额
func (b Balance) Total() int {
	return b.Streak + b.Game + b.Gift + b.Rating
}

// Get 按来源取余额
func (b Balance) Get(source CurrencySource) int {
	switch source {
	case SourceStreak:
		return b.Streak
	case SourceGame:
		return b.Game
	case SourceGift:
		return b.Gift
	case SourceRating:
		return b.Rating
	}
	return 0
}

// Streak 连续打卡记录
type Streak struct {
	BaseModel
	UserID       int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentDays  int       `gorm:"default:0" json:"current_days"`
	LastActiveOn time.Time `gorm:"not null" json:"last_active_on"` // 仅日期部分有意义
}

// TableName 指定表名
func (Streak) TableName() string {
	return "streaks"
}

// Garden 花园（会员专属，收益挂 game 来源）
type Garden struct {
	BaseModel
	UserID        int64      `gorm:"uniqueIndex;not null" json:"user_id"`
	Level         int        `gorm:"default:1" json:"level"`
	LastHarvestOn *time.Time `json:"last_harvest_on,omitempty"`
}

// TableName 指定表名
func (Garden) TableName() string {
	return "gardens"
}

// DailyReward 当前等级的每日产出
func (g *Garden) DailyReward(perLevel int) int {
	return g.Level * perLevel
}

// Pet 宠物（打卡保护，按创建时间先进先出消耗）
type Pet struct {
	BaseModel
	UserID   int64  `gorm:"not null;index" json:"user_id"`
	PetType  string `gorm:"size:30;not null" json:"pet_type"`
	UsesLeft int    `gorm:"default:1" json:"uses_left"`
}

// TableName 指定表名
func (Pet) TableName() string {
	return "pets"
}
