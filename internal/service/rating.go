package service

import (
	"context"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
	"go.uber.org/zap"
)

// ratingService 评分服务实现
type ratingService struct {
	repos    *repository.Manager
	cfg      *RatingConfig
	economy  EconomyService
	notifier Notifier
	log      *zap.Logger
}

// RatingConfig 评分服务参数
type RatingConfig struct {
	RaterReward  int
	RatedReward  int
	RewardScore  int
	MinShowCount int
}

// NewRatingService 创建评分服务
func NewRatingService(repos *repository.Manager, cfg *RatingConfig, economy EconomyService, notifier Notifier, log *zap.Logger) RatingService {
	return &ratingService{
		repos:    repos,
		cfg:      cfg,
		economy:  economy,
		notifier: notifier,
		log:      log,
	}
}

// Rate 写入评分并清除对应待评义务
func (s *ratingService) Rate(ctx context.Context, raterID, ratedID int64, score int) (*RateResult, error) {
	if raterID == ratedID {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "不能给自己评分")
	}

	result := &RateResult{}
	err := s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		err := tx.Rating().Upsert(ctx, &models.Rating{
			RatedUserID: ratedID,
			RaterUserID: raterID,
			Score:       score,
		})
		if err != nil {
			return err
		}
		if err := tx.Rating().RemovePending(ctx, raterID, ratedID); err != nil {
			return err
		}

		// 高分双向奖励
		if score >= s.cfg.RewardScore {
			if err := s.economy.AddInTx(ctx, tx, raterID, s.cfg.RaterReward, models.SourceRating, "rating_given"); err != nil {
				return err
			}
			if err := s.economy.AddInTx(ctx, tx, ratedID, s.cfg.RatedReward, models.SourceRating, "rating_received"); err != nil {
				return err
			}
			result.RewardGranted = true
		}

		remaining, err := tx.Rating().PendingCount(ctx, raterID)
		if err != nil {
			return err
		}
		result.ObligationsRemaining = remaining

		if remaining == 0 {
			// 义务清零回到idle；补评时可能已不在rating态，不视为错误
			err := tx.Session().TransitionState(ctx, raterID, models.StateRating, models.StateIdle)
			if err == nil {
				result.ReturnedToIdle = true
			} else if apperrors.GetCode(err) != apperrors.ErrPreconditionFailed {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("评分写入",
		zap.Int64("rater", raterID),
		zap.Int64("rated", ratedID),
		zap.Int("score", score),
	)
	if result.RewardGranted {
		s.notifier.Notify(ratedID, EventCurrencyChange, map[string]interface{}{
			"delta":  s.cfg.RatedReward,
			"source": string(models.SourceRating),
		})
	}
	return result, nil
}

// Summary 平均分快照
func (s *ratingService) Summary(ctx context.Context, userID int64) (*models.RatingSummary, error) {
	return s.repos.Rating().Summary(ctx, userID, s.cfg.MinShowCount)
}

// PendingList 待评分义务列表
func (s *ratingService) PendingList(ctx context.Context, userID int64) ([]*models.PendingRating, error) {
	return s.repos.Rating().PendingList(ctx, userID)
}
