package service

import (
	"github.com/wfunc/pairly/internal/config"
	"github.com/wfunc/pairly/internal/repository"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Match   MatchService
	Economy EconomyService
	Streak  StreakService
	Game    GameService
	Rating  RatingService
}

// NewServices 创建所有服务
func NewServices(repos *repository.Manager, cfg *config.Config, notifier Notifier, log *zap.Logger) *Services {
	if notifier == nil {
		notifier = NopNotifier{}
	}

	economy := NewEconomyService(repos, &EconomyConfig{
		TempPremiumCost:     cfg.Premium.TempCost,
		TempPremiumDuration: cfg.Premium.TempDuration,
		TempPremiumCooldown: cfg.Premium.TempCooldown,
	}, notifier, log)

	streak := NewStreakService(repos, &StreakConfig{
		RewardThreshold: cfg.Streak.RewardThreshold,
		BaseReward:      cfg.Streak.BaseReward,
		WeekMultiplier:  cfg.Streak.WeekMultiplier,
		MonthMultiplier: cfg.Streak.MonthMultiplier,
		MaxPets:         cfg.Pet.MaxPets,
		PetTypes:        cfg.Pet.Types,
		GardenMaxLevel:  cfg.Garden.MaxLevel,
		RewardPerLevel:  cfg.Garden.RewardPerLevel,
	}, economy, notifier, log)

	match := NewMatchService(repos, &MatchConfig{
		HistoryWindow:    cfg.Match.HistoryWindow,
		BaseScore:        cfg.Match.BaseScore,
		PremiumBonus:     cfg.Match.PremiumBonus,
		HighRatingBonus:  cfg.Match.HighRatingBonus,
		GoodRatingBonus:  cfg.Match.GoodRatingBonus,
		WaitingDivisor:   cfg.Match.WaitingDivisor,
		MinRatingsForAvg: cfg.Match.MinRatingsForAvg,
	}, streak, notifier, log)

	games := NewGameService(repos, &GameConfig{
		BaseReward: cfg.Game.BaseReward,
		MinBet:     cfg.Game.MinBet,
		MaxBet:     cfg.Game.MaxBet,
	}, economy, notifier, log)

	ratings := NewRatingService(repos, &RatingConfig{
		RaterReward:  cfg.Rating.RaterReward,
		RatedReward:  cfg.Rating.RatedReward,
		RewardScore:  cfg.Rating.RewardScore,
		MinShowCount: cfg.Rating.MinShowCount,
	}, economy, notifier, log)

	return &Services{
		Match:   match,
		Economy: economy,
		Streak:  streak,
		Game:    games,
		Rating:  ratings,
	}
}
