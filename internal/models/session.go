package models

import (
	"time"

	"gorm.io/gorm"
)

// UserState 用户会话状态
type UserState string

// 会话状态定义（唯一合法的状态迁移见 repository.SessionRepository）
const (
	StateNew       UserState = "new"       // 首次接触，未同意条款
	StateAgreed    UserState = "agreed"    // 已同意条款
	StateIdle      UserState = "idle"      // 空闲
	StateSearching UserState = "searching" // 匹配队列中
	StateChatting  UserState = "chatting"  // 聊天中
	StateRating    UserState = "rating"    // 待评分
)

// UserSession 用户会话表（匿名用户，外部平台ID为主键）
type UserSession struct {
	BaseModel
	UserID            int64      `gorm:"uniqueIndex;not null" json:"user_id"`
	State             UserState  `gorm:"size:20;not null;default:'new';index" json:"state"`
	PartnerID         *int64     `gorm:"index" json:"partner_id,omitempty"`
	Gender            string     `gorm:"size:10" json:"gender"` // male, female, other
	GenderPreference  string     `gorm:"size:10" json:"gender_preference"`
	PremiumUntil      *time.Time `json:"premium_until,omitempty"`
	TempPremiumUsedAt *time.Time `json:"temp_premium_used_at,omitempty"`
	LastActivityAt    time.Time  `json:"last_activity_at"`
}

// TableName 指定表名
func (UserSession) TableName() string {
	return "user_sessions"
}

// BeforeCreate 创建前的钩子
func (s *UserSession) BeforeCreate(tx *gorm.DB) error {
	if s.State == "" {
		s.State = StateNew
	}
	if s.LastActivityAt.IsZero() {
		s.LastActivityAt = time.Now()
	}
	return nil
}

// IsPremium 检查会员是否有效
func (s *UserSession) IsPremium(now time.Time) bool {
	return s.PremiumUntil != nil && s.PremiumUntil.After(now)
}

// PremiumDaysRemaining 剩余会员天数
func (s *UserSession) PremiumDaysRemaining(now time.Time) int {
	if !s.IsPremium(now) {
		return 0
	}
	return int(s.PremiumUntil.Sub(now).Hours() / 24)
}

// CanSearch 检查是否可以进入匹配队列
func (s *UserSession) CanSearch() bool {
	return s.State == StateIdle
}
