package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/logger"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
	"go.uber.org/zap"
)

// pairingTxRetries 撮合事务遇到锁冲突的重试次数
const pairingTxRetries = 3

// matchService 会话与匹配服务实现
type matchService struct {
	repos    *repository.Manager
	txh      *repository.TransactionHelper
	cfg      *MatchConfig
	streak   StreakService
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// MatchConfig 匹配服务参数
type MatchConfig struct {
	HistoryWindow    time.Duration
	BaseScore        int
	PremiumBonus     int
	HighRatingBonus  int
	GoodRatingBonus  int
	WaitingDivisor   int
	MinRatingsForAvg int
}

// NewMatchService 创建匹配服务
func NewMatchService(repos *repository.Manager, cfg *MatchConfig, streak StreakService, notifier Notifier, log *zap.Logger) MatchService {
	return &matchService{
		repos:    repos,
		txh:      repository.NewTransactionHelper(repos.Transaction()),
		cfg:      cfg,
		streak:   streak,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// EnsureSession 获取会话，不存在则创建
func (s *matchService) EnsureSession(ctx context.Context, userID int64) (*models.UserSession, error) {
	session, err := s.repos.Session().GetByUserID(ctx, userID)
	if err == nil {
		return session, nil
	}
	if apperrors.GetCode(err) != apperrors.ErrSessionNotFound {
		return nil, err
	}

	session = &models.UserSession{
		UserID:         userID,
		State:          models.StateNew,
		LastActivityAt: s.now(),
	}
	if err := s.repos.Session().Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// AgreeRules 同意规则
func (s *matchService) AgreeRules(ctx context.Context, userID int64) error {
	return s.repos.Session().TransitionState(ctx, userID, models.StateNew, models.StateAgreed)
}

// CompleteSetup 完成资料设置进入idle
func (s *matchService) CompleteSetup(ctx context.Context, userID int64, gender, genderPref string) error {
	if err := s.repos.Session().SetGender(ctx, userID, gender); err != nil {
		return err
	}
	if err := s.repos.Session().SetGenderPreference(ctx, userID, genderPref); err != nil {
		return err
	}
	return s.repos.Session().TransitionState(ctx, userID, models.StateAgreed, models.StateIdle)
}

// RequestMatch 发起匹配
func (s *matchService) RequestMatch(ctx context.Context, userID int64) (*MatchResult, error) {
	session, err := s.EnsureSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 状态守卫：只有idle可以发起搜索
	if err := s.repos.Session().TransitionState(ctx, userID, models.StateIdle, models.StateSearching); err != nil {
		if apperrors.GetCode(err) == apperrors.ErrPreconditionFailed {
			switch session.State {
			case models.StateSearching:
				return nil, apperrors.New(apperrors.ErrAlreadySearching)
			case models.StateChatting:
				return nil, apperrors.New(apperrors.ErrAlreadyChatting)
			}
		}
		return nil, err
	}

	if err := s.repos.Session().TouchActivity(ctx, userID); err != nil {
		s.log.Warn("活跃时间更新失败", zap.Int64("user_id", userID), zap.Error(err))
	}

	// 打卡随匹配请求触发，失败不阻断匹配
	if _, err := s.streak.RecordActivity(ctx, userID, s.now()); err != nil {
		s.log.Warn("打卡更新失败", zap.Int64("user_id", userID), zap.Error(err))
	}

	myPremium := session.IsPremium(s.now())
	partner, chatID, err := s.tryPairing(ctx, userID, session, myPremium)
	if err != nil {
		return nil, err
	}

	if partner != 0 {
		logger.LogMatchEvent("matched", userID, map[string]interface{}{
			"partner_id": partner,
			"chat_id":    chatID,
		})
		s.notifier.Notify(userID, EventMatchFound, map[string]interface{}{"chat_id": chatID, "partner_id": partner})
		s.notifier.Notify(partner, EventMatchFound, map[string]interface{}{"chat_id": chatID, "partner_id": userID})
		return &MatchResult{Matched: true, ChatID: chatID, PartnerID: partner}, nil
	}

	// 无候选人，入队等待
	if err := s.enqueue(ctx, userID, session, myPremium); err != nil {
		// 入队失败回退到idle，避免卡在searching
		if rbErr := s.repos.Session().TransitionState(ctx, userID, models.StateSearching, models.StateIdle); rbErr != nil {
			s.log.Error("搜索状态回退失败", zap.Int64("user_id", userID), zap.Error(rbErr))
		}
		return nil, err
	}

	poolSize, err := s.repos.Pool().Count(ctx)
	if err != nil {
		poolSize = 0
	}
	logger.LogMatchEvent("entered_pool", userID, map[string]interface{}{"pool_size": poolSize})
	return &MatchResult{Matched: false, PoolSize: poolSize}, nil
}

// tryPairing 按得分顺序尝试与候选人原子建立聊天
func (s *matchService) tryPairing(ctx context.Context, userID int64, session *models.UserSession, myPremium bool) (int64, string, error) {
	candidates, err := s.repos.Pool().Candidates(ctx, userID, s.cfg.HistoryWindow)
	if err != nil {
		return 0, "", err
	}

	// 性别偏好过滤，any不限制
	if session.GenderPreference != "" && session.GenderPreference != "any" {
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.Gender == session.GenderPreference {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}
	if len(candidates) == 0 {
		return 0, "", nil
	}

	now := s.now()
	type scored struct {
		entry *models.WaitingUser
		score int
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, scored{entry: c, score: s.scoreCandidate(c, myPremium, now)})
	}
	// 得分相同保留入队早者在前（候选已按入队时间升序）
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	for _, candidate := range ranked {
		partnerID := candidate.entry.UserID
		chatID := uuid.NewString()

		// 高峰期多个搜索方会抢同一批候选行，锁冲突时整体重试；
		// 事务内全部是条件更新，重做是安全的
		err := s.txh.RunWithRetry(ctx, pairingTxRetries, func(tx *repository.Transaction) error {
			// 双方必须仍在搜索中，任何一方状态漂移则整体回滚
			if err := tx.Session().TransitionState(ctx, userID, models.StateSearching, models.StateChatting); err != nil {
				return err
			}
			if err := tx.Session().TransitionState(ctx, partnerID, models.StateSearching, models.StateChatting); err != nil {
				return err
			}
			if _, err := tx.Pool().Dequeue(ctx, userID); err != nil {
				return err
			}
			if _, err := tx.Pool().Dequeue(ctx, partnerID); err != nil {
				return err
			}
			chat := &models.ActiveChat{
				ChatID:    chatID,
				User1ID:   userID,
				User2ID:   partnerID,
				StartedAt: now,
			}
			if err := tx.Pool().CreateChat(ctx, chat); err != nil {
				return err
			}
			if err := tx.Session().SetPartner(ctx, userID, &partnerID); err != nil {
				return err
			}
			if err := tx.Session().SetPartner(ctx, partnerID, &userID); err != nil {
				return err
			}
			return tx.Pool().RecordMatch(ctx, userID, partnerID, now)
		})
		if err == nil {
			return partnerID, chatID, nil
		}
		if apperrors.GetCode(err) == apperrors.ErrPreconditionFailed {
			// 候选人已离开搜索，换下一位
			continue
		}
		return 0, "", err
	}

	return 0, "", nil
}

// scoreCandidate 候选人打分
func (s *matchService) scoreCandidate(c *models.WaitingUser, myPremium bool, now time.Time) int {
	score := s.cfg.BaseScore

	if c.IsPremium {
		score += s.cfg.PremiumBonus
	}

	if c.Rating > 0 {
		if myPremium && c.Rating >= 4.5 {
			score += s.cfg.HighRatingBonus
		} else if c.Rating >= 4.0 {
			score += s.cfg.GoodRatingBonus
		}
	}

	waitingSeconds := int(now.Sub(c.JoinedAt).Seconds())
	if waitingSeconds > 0 && s.cfg.WaitingDivisor > 0 {
		score += waitingSeconds / s.cfg.WaitingDivisor
	}

	return score
}

// enqueue 带评分快照入队
func (s *matchService) enqueue(ctx context.Context, userID int64, session *models.UserSession, myPremium bool) error {
	var rating float64
	var ratingCount int
	summary, err := s.repos.Rating().Summary(ctx, userID, s.cfg.MinRatingsForAvg)
	if err != nil {
		return err
	}
	if summary != nil {
		rating = summary.Average
		ratingCount = summary.Count
	}

	return s.repos.Pool().Enqueue(ctx, &models.WaitingUser{
		UserID:           userID,
		JoinedAt:         s.now(),
		Rating:           rating,
		RatingCount:      ratingCount,
		IsPremium:        myPremium,
		Gender:           session.Gender,
		GenderPreference: session.GenderPreference,
	})
}

// LeaveOrStop 离开聊天或停止搜索
func (s *matchService) LeaveOrStop(ctx context.Context, userID int64) (*StopResult, error) {
	session, err := s.repos.Session().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch session.State {
	case models.StateChatting:
		if session.PartnerID == nil {
			// 伙伴指针缺失属于数据损坏，记录后拒绝操作
			s.log.Error("chatting状态缺少伙伴指针", zap.Int64("user_id", userID))
			return nil, apperrors.New(apperrors.ErrPartnerMissing)
		}
		partnerID := *session.PartnerID
		if err := s.endChat(ctx, userID, partnerID); err != nil {
			return nil, err
		}

		s.notifier.Notify(partnerID, EventPartnerLeft, map[string]interface{}{})
		s.notifier.Notify(userID, EventRatingPrompt, map[string]interface{}{"rated_user_id": partnerID})
		s.notifier.Notify(partnerID, EventRatingPrompt, map[string]interface{}{"rated_user_id": userID})
		return &StopResult{Outcome: "chat_ended", PartnerID: partnerID}, nil

	case models.StateSearching:
		if _, err := s.repos.Pool().Dequeue(ctx, userID); err != nil {
			return nil, err
		}
		if err := s.repos.Session().TransitionState(ctx, userID, models.StateSearching, models.StateIdle); err != nil {
			return nil, err
		}
		logger.LogMatchEvent("left_pool", userID, nil)
		return &StopResult{Outcome: "left_pool"}, nil

	default:
		return &StopResult{Outcome: "noop"}, nil
	}
}

// endChat 原子结束聊天：作废对局、删除聊天、清空伙伴指针、登记双向待评分，
// 清理完成后才推进chatting→rating，保证二者不分叉
func (s *matchService) endChat(ctx context.Context, userID, partnerID int64) error {
	return s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		chat, err := tx.Pool().GetChatByUser(ctx, userID)
		if err == nil {
			if _, err := tx.Game().VoidActiveByChatID(ctx, chat.ChatID); err != nil {
				return err
			}
			if err := tx.Pool().DeleteChat(ctx, chat.ChatID); err != nil {
				return err
			}
		} else if apperrors.GetCode(err) != apperrors.ErrNotChatting {
			return err
		}

		if err := tx.Session().SetPartner(ctx, userID, nil); err != nil {
			return err
		}
		if err := tx.Session().SetPartner(ctx, partnerID, nil); err != nil {
			return err
		}
		if err := tx.Rating().AddPending(ctx, userID, partnerID); err != nil {
			return err
		}
		if err := tx.Rating().AddPending(ctx, partnerID, userID); err != nil {
			return err
		}

		if err := tx.Session().TransitionState(ctx, userID, models.StateChatting, models.StateRating); err != nil {
			return err
		}
		return tx.Session().TransitionState(ctx, partnerID, models.StateChatting, models.StateRating)
	})
}

// Profile 用户画像汇总
func (s *matchService) Profile(ctx context.Context, userID int64) (*ProfileInfo, error) {
	session, err := s.repos.Session().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	balance, err := s.repos.Ledger().BalanceFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	days := 0
	if streak, err := s.repos.Streak().Get(ctx, userID); err == nil {
		days = streak.CurrentDays
	}

	summary, err := s.repos.Rating().Summary(ctx, userID, s.cfg.MinRatingsForAvg)
	if err != nil {
		return nil, err
	}

	var garden *models.Garden
	if g, err := s.repos.Garden().Get(ctx, userID); err == nil {
		garden = g
	}

	pets, err := s.repos.Pet().List(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ProfileInfo{
		UserID:     userID,
		State:      session.State,
		Gender:     session.Gender,
		IsPremium:  session.IsPremium(s.now()),
		Balance:    balance,
		Total:      balance.Total(),
		StreakDays: days,
		Rating:     summary,
		Garden:     garden,
		Pets:       pets,
	}, nil
}
