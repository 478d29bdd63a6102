package service

import (
	"context"
	"time"

	"github.com/wfunc/pairly/internal/game"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
)

// 推送事件名，网关据此渲染
const (
	EventMatchFound     = "match_found"
	EventPartnerLeft    = "partner_left"
	EventRatingPrompt   = "rating_prompt"
	EventGameState      = "game_state"
	EventCurrencyChange = "currency_change"
)

// Notifier 出站通知回调。推送是尽力而为，失败不影响已提交的事务
type Notifier interface {
	Notify(userID int64, event string, payload map[string]interface{})
}

// NopNotifier 空实现，测试和离线工具使用
type NopNotifier struct{}

func (NopNotifier) Notify(userID int64, event string, payload map[string]interface{}) {}

// MatchService 会话与匹配服务接口
type MatchService interface {
	// EnsureSession 获取会话，不存在则创建（初始状态new）
	EnsureSession(ctx context.Context, userID int64) (*models.UserSession, error)
	// AgreeRules 同意规则 new→agreed
	AgreeRules(ctx context.Context, userID int64) error
	// CompleteSetup 完成资料设置 agreed→idle
	CompleteSetup(ctx context.Context, userID int64, gender, genderPref string) error
	// RequestMatch 发起匹配 idle→searching，命中候选人则双方进入chatting
	RequestMatch(ctx context.Context, userID int64) (*MatchResult, error)
	// LeaveOrStop 离开聊天或停止搜索
	LeaveOrStop(ctx context.Context, userID int64) (*StopResult, error)
	Profile(ctx context.Context, userID int64) (*ProfileInfo, error)
}

// MatchResult 匹配请求结果
type MatchResult struct {
	Matched   bool   `json:"matched"`
	ChatID    string `json:"chat_id,omitempty"`
	PartnerID int64  `json:"partner_id,omitempty"`
	PoolSize  int64  `json:"pool_size,omitempty"` // 未命中时的队列人数
}

// StopResult 停止操作结果
type StopResult struct {
	Outcome   string `json:"outcome"` // chat_ended / left_pool / noop
	PartnerID int64  `json:"partner_id,omitempty"`
}

// ProfileInfo 用户画像汇总
type ProfileInfo struct {
	UserID     int64                 `json:"user_id"`
	State      models.UserState      `json:"state"`
	Gender     string                `json:"gender"`
	IsPremium  bool                  `json:"is_premium"`
	Balance    models.Balance        `json:"balance"`
	Total      int                   `json:"total"`
	StreakDays int                   `json:"streak_days"`
	Rating     *models.RatingSummary `json:"rating,omitempty"`
	Garden     *models.Garden        `json:"garden,omitempty"`
	Pets       []*models.Pet         `json:"pets"`
}

// EconomyService 向日葵经济服务接口
type EconomyService interface {
	// Add 追加正向流水，amount<=0为无操作
	Add(ctx context.Context, userID int64, amount int, source models.CurrencySource, remark string) error
	Balance(ctx context.Context, userID int64) (models.Balance, error)
	// DeductSmart 按 game→gift→rating→streak 优先级扣减，余额不足则整体失败
	DeductSmart(ctx context.Context, userID int64, amount int) error
	// Gift 向日葵转赠，入账来源为gift
	Gift(ctx context.Context, fromID, toID int64, amount int) error
	// BuyTempPremium 用向日葵购买临时会员，返回到期时间
	BuyTempPremium(ctx context.Context, userID int64) (*time.Time, error)
	History(ctx context.Context, userID int64, page, pageSize int) ([]*models.LedgerEntry, int64, error)

	// 事务内变体，供其他服务在自己的事务边界中结算
	AddInTx(ctx context.Context, tx *repository.Transaction, userID int64, amount int, source models.CurrencySource, remark string) error
	DeductSmartInTx(ctx context.Context, tx *repository.Transaction, userID int64, amount int) error
}

// StreakService 打卡与花园宠物服务接口
type StreakService interface {
	// RecordActivity 记录当日活跃并结算连续打卡
	RecordActivity(ctx context.Context, userID int64, at time.Time) (*StreakResult, error)
	StreakDays(ctx context.Context, userID int64) (int, error)
	// Harvest 每日收获花园产出
	Harvest(ctx context.Context, userID int64) (int, error)
	CreateGarden(ctx context.Context, userID int64) (*models.Garden, error)
	UpgradeGarden(ctx context.Context, userID int64) (bool, error)
	BuyPet(ctx context.Context, userID int64, petType string) (*models.Pet, error)
	Pets(ctx context.Context, userID int64) ([]*models.Pet, error)
}

// StreakResult 打卡结算结果
type StreakResult struct {
	Days      int  `json:"days"`
	Reward    int  `json:"reward"`    // 本次发放的打卡奖励
	PetUsed   bool `json:"pet_used"`  // 宠物挽救了断签
	Reset     bool `json:"reset"`     // 断签重置
	Unchanged bool `json:"unchanged"` // 当日已记录
}

// GameService 对战游戏服务接口
type GameService interface {
	// CreateGame 创建对局（会员功能，邀请方执先手）
	CreateGame(ctx context.Context, userID int64, gameType models.GameType, bet int) (*models.ActiveGame, error)
	// SubmitMove 提交一步，终局时完成结算
	SubmitMove(ctx context.Context, userID int64, gameID string, move string) (*MoveOutcome, error)
	ActiveGameForChat(ctx context.Context, chatID string) (*models.ActiveGame, error)
}

// MoveOutcome 落子结果
type MoveOutcome struct {
	Game         *models.ActiveGame `json:"game"`
	Result       *game.MoveResult   `json:"result"`
	Settled      bool               `json:"settled"`
	WinnerReward int                `json:"winner_reward,omitempty"`
}

// RatingService 评分服务接口
type RatingService interface {
	// Rate 写入评分并清除对应待评义务，义务清零时回到idle
	Rate(ctx context.Context, raterID, ratedID int64, score int) (*RateResult, error)
	Summary(ctx context.Context, userID int64) (*models.RatingSummary, error)
	PendingList(ctx context.Context, userID int64) ([]*models.PendingRating, error)
}

// RateResult 评分结果
type RateResult struct {
	RewardGranted        bool  `json:"reward_granted"`
	ObligationsRemaining int64 `json:"obligations_remaining"`
	ReturnedToIdle       bool  `json:"returned_to_idle"`
}
