package service

import (
	"context"
	"time"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
	"go.uber.org/zap"
)

// streakService 打卡与花园宠物服务实现
type streakService struct {
	repos    *repository.Manager
	cfg      *StreakConfig
	economy  EconomyService
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// StreakConfig 打卡服务参数
type StreakConfig struct {
	RewardThreshold int
	BaseReward      int
	WeekMultiplier  float64
	MonthMultiplier float64
	MaxPets         int
	PetTypes        []string
	GardenMaxLevel  int
	RewardPerLevel  int
}

// NewStreakService 创建打卡服务
func NewStreakService(repos *repository.Manager, cfg *StreakConfig, economy EconomyService, notifier Notifier, log *zap.Logger) StreakService {
	return &streakService{
		repos:    repos,
		cfg:      cfg,
		economy:  economy,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// RecordActivity 记录当日活跃。同日重复调用无操作；隔一天续签并发奖；
// 隔多天先尝试消耗宠物保签，失败则重置并清空打卡余额、销毁花园
func (s *streakService) RecordActivity(ctx context.Context, userID int64, at time.Time) (*StreakResult, error) {
	var result *StreakResult

	err := s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		streak, err := tx.Streak().GetOrCreate(ctx, userID, at)
		if err != nil {
			return err
		}

		// 新建记录从1天起算
		if streak.CurrentDays == 0 {
			if err := tx.Streak().Set(ctx, userID, 1, at); err != nil {
				return err
			}
			result = &StreakResult{Days: 1}
			return nil
		}

		delta := calendarDaysBetween(streak.LastActiveOn, at)
		switch {
		case delta <= 0:
			result = &StreakResult{Days: streak.CurrentDays, Unchanged: true}
			return nil

		case delta == 1:
			days := streak.CurrentDays + 1
			if err := tx.Streak().Set(ctx, userID, days, at); err != nil {
				return err
			}
			reward := 0
			if days >= s.cfg.RewardThreshold {
				reward = s.streakReward(days)
				err := s.economy.AddInTx(ctx, tx, userID, reward, models.SourceStreak, "streak_reward")
				if err != nil {
					return err
				}
			}
			result = &StreakResult{Days: days, Reward: reward}
			return nil

		default:
			pet, err := tx.Pet().ConsumeOldest(ctx, userID)
			if err != nil {
				return err
			}
			if pet != nil {
				// 宠物保签：天数不变，活跃日推进到今天
				if err := tx.Streak().Set(ctx, userID, streak.CurrentDays, at); err != nil {
					return err
				}
				result = &StreakResult{Days: streak.CurrentDays, PetUsed: true}
				return nil
			}

			// 断签：重置天数，清空打卡来源余额，销毁花园
			if err := tx.Streak().Set(ctx, userID, 1, at); err != nil {
				return err
			}
			balance, err := tx.Ledger().BalanceFor(ctx, userID)
			if err != nil {
				return err
			}
			if balance.Streak > 0 {
				err := tx.Ledger().Append(ctx, &models.LedgerEntry{
					UserID: userID,
					Source: models.SourceStreak,
					Amount: -balance.Streak,
					Remark: "streak_reset",
				})
				if err != nil {
					return err
				}
			}
			if err := tx.Garden().Destroy(ctx, userID); err != nil {
				return err
			}
			result = &StreakResult{Days: 1, Reset: true}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	if result.Reset {
		s.log.Info("连续打卡中断",
			zap.Int64("user_id", userID),
		)
	}
	return result, nil
}

// StreakDays 当前连续天数
func (s *streakService) StreakDays(ctx context.Context, userID int64) (int, error) {
	streak, err := s.repos.Streak().Get(ctx, userID)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return streak.CurrentDays, nil
}

// Harvest 每日收获花园产出，产出按等级计入game来源
func (s *streakService) Harvest(ctx context.Context, userID int64) (int, error) {
	now := s.now()
	reward := 0

	err := s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		garden, err := tx.Garden().Get(ctx, userID)
		if err != nil {
			return err
		}

		harvested, err := tx.Garden().MarkHarvested(ctx, userID, now)
		if err != nil {
			return err
		}
		if !harvested {
			return apperrors.New(apperrors.ErrAlreadyHarvested)
		}

		reward = garden.DailyReward(s.cfg.RewardPerLevel)
		return s.economy.AddInTx(ctx, tx, userID, reward, models.SourceGame, "garden_harvest")
	})
	if err != nil {
		return 0, err
	}

	s.notifier.Notify(userID, EventCurrencyChange, map[string]interface{}{
		"delta":  reward,
		"source": string(models.SourceGame),
		"remark": "garden_harvest",
	})
	return reward, nil
}

// CreateGarden 创建1级花园（会员功能）
func (s *streakService) CreateGarden(ctx context.Context, userID int64) (*models.Garden, error) {
	if err := s.requirePremium(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Garden().Create(ctx, userID)
}

// UpgradeGarden 升级花园
func (s *streakService) UpgradeGarden(ctx context.Context, userID int64) (bool, error) {
	return s.repos.Garden().Upgrade(ctx, userID, s.cfg.GardenMaxLevel)
}

// BuyPet 购入宠物，每只可保签一次（会员功能）
func (s *streakService) BuyPet(ctx context.Context, userID int64, petType string) (*models.Pet, error) {
	if !s.validPetType(petType) {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "未知的宠物类型: %s", petType)
	}
	if err := s.requirePremium(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Pet().Add(ctx, userID, petType, 1, s.cfg.MaxPets)
}

// Pets 宠物列表
func (s *streakService) Pets(ctx context.Context, userID int64) ([]*models.Pet, error) {
	return s.repos.Pet().List(ctx, userID)
}

// requirePremium 花园和宠物对会员开放
func (s *streakService) requirePremium(ctx context.Context, userID int64) error {
	session, err := s.repos.Session().GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !session.IsPremium(s.now()) {
		return apperrors.New(apperrors.ErrPremiumRequired)
	}
	return nil
}

func (s *streakService) validPetType(petType string) bool {
	for _, t := range s.cfg.PetTypes {
		if t == petType {
			return true
		}
	}
	return false
}

// streakReward 按天数阶梯计算打卡奖励
func (s *streakService) streakReward(days int) int {
	multiplier := 1.0
	switch {
	case days >= 30:
		multiplier = s.cfg.MonthMultiplier
	case days >= 7:
		multiplier = s.cfg.WeekMultiplier
	}
	return int(float64(s.cfg.BaseReward) * multiplier)
}

// calendarDaysBetween 按日历日计算间隔天数，四舍五入容忍夏令时偏移
func calendarDaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	return int(t.Sub(f).Hours()/24 + 0.5)
}
