package models

import (
	"time"
)

// WaitingUser 匹配队列条目（评分为入队时的快照）
type WaitingUser struct {
	BaseModel
	UserID           int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	JoinedAt         time.Time `gorm:"index;not null" json:"joined_at"`
	Rating           float64   `gorm:"default:0" json:"rating"`
	RatingCount      int       `gorm:"default:0" json:"rating_count"`
	IsPremium        bool      `gorm:"default:false" json:"is_premium"`
	Gender           string    `gorm:"size:10" json:"gender"`
	GenderPreference string    `gorm:"size:10" json:"gender_preference"`
}

// TableName 指定表名
func (WaitingUser) TableName() string {
	return "waiting_users"
}

// ActiveChat 进行中的聊天（每个用户至多出现一次）
type ActiveChat struct {
	BaseModel
	ChatID    string    `gorm:"uniqueIndex;size:64;not null" json:"chat_id"`
	User1ID   int64     `gorm:"uniqueIndex;not null" json:"user1_id"`
	User2ID   int64     `gorm:"uniqueIndex;not null" json:"user2_id"`
	StartedAt time.Time `gorm:"not null" json:"started_at"`
}

// TableName 指定表名
func (ActiveChat) TableName() string {
	return "active_chats"
}

// Other 返回聊天中另一方的ID
func (c *ActiveChat) Other(userID int64) (int64, bool) {
	switch userID {
	case c.User1ID:
		return c.User2ID, true
	case c.User2ID:
		return c.User1ID, true
	}
	return 0, false
}

// MatchHistory 匹配历史（双向各一条，用于重复匹配排除窗口）
type MatchHistory struct {
	BaseModel
	UserID        int64     `gorm:"not null;index:idx_match_history_pair,unique" json:"user_id"`
	MatchedUserID int64     `gorm:"not null;index:idx_match_history_pair,unique" json:"matched_user_id"`
	MatchedAt     time.Time `gorm:"not null;index" json:"matched_at"`
}

// TableName 指定表名
func (MatchHistory) TableName() string {
	return "match_history"
}
