package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
	"go.uber.org/zap"
)

// setupRepos 创建内存库仓储管理器
func setupRepos(t *testing.T) *repository.Manager {
	db := repository.SetupTestDB()
	t.Cleanup(func() { repository.CleanupTestDB(db) })
	return repository.NewManager(db)
}

// createSession 创建指定状态的测试会话
func createSession(t *testing.T, repos *repository.Manager, userID int64, state models.UserState) {
	err := repos.Session().Create(context.Background(), &models.UserSession{
		UserID:         userID,
		State:          state,
		LastActivityAt: time.Now(),
	})
	require.NoError(t, err)
}

// grantPremium 给会话设置未来的会员到期时间
func grantPremium(t *testing.T, repos *repository.Manager, userID int64, d time.Duration) {
	until := time.Now().Add(d)
	require.NoError(t, repos.Session().SetPremiumUntil(context.Background(), userID, &until))
}

// grant 直接追加流水
func grant(t *testing.T, repos *repository.Manager, userID int64, source models.CurrencySource, amount int) {
	err := repos.Ledger().Append(context.Background(), &models.LedgerEntry{
		UserID: userID,
		Source: source,
		Amount: amount,
	})
	require.NoError(t, err)
}

// recordingNotifier 记录推送事件的测试替身
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	UserID  int64
	Event   string
	Payload map[string]interface{}
}

func (n *recordingNotifier) Notify(userID int64, event string, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{UserID: userID, Event: event, Payload: payload})
}

func (n *recordingNotifier) eventsFor(userID int64, event string) []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedEvent
	for _, e := range n.events {
		if e.UserID == userID && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// testEconomyConfig 测试用经济参数
func testEconomyConfig() *EconomyConfig {
	return &EconomyConfig{
		TempPremiumCost:     1000,
		TempPremiumDuration: 72 * time.Hour,
		TempPremiumCooldown: 360 * time.Hour,
	}
}

// testStreakConfig 测试用打卡参数
func testStreakConfig() *StreakConfig {
	return &StreakConfig{
		RewardThreshold: 3,
		BaseReward:      10,
		WeekMultiplier:  1.5,
		MonthMultiplier: 2.0,
		MaxPets:         7,
		PetTypes:        []string{"Panda", "Fox", "Dog", "Snake", "Alligator", "Dragon", "Parrot"},
		GardenMaxLevel:  3,
		RewardPerLevel:  20,
	}
}

// testMatchConfig 测试用匹配参数
func testMatchConfig() *MatchConfig {
	return &MatchConfig{
		HistoryWindow:    30 * time.Minute,
		BaseScore:        100,
		PremiumBonus:     25,
		HighRatingBonus:  20,
		GoodRatingBonus:  10,
		WaitingDivisor:   10,
		MinRatingsForAvg: 2,
	}
}

// testGameConfig 测试用游戏参数
func testGameConfig() *GameConfig {
	return &GameConfig{
		BaseReward: 50,
		MinBet:     1,
		MaxBet:     1000,
	}
}

// testRatingConfig 测试用评分参数
func testRatingConfig() *RatingConfig {
	return &RatingConfig{
		RaterReward:  10,
		RatedReward:  20,
		RewardScore:  4,
		MinShowCount: 2,
	}
}

// nopLogger 测试用静默日志
func nopLogger() *zap.Logger {
	return zap.NewNop()
}
