package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/game"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
	"go.uber.org/zap"
)

// gameService 对战游戏服务实现
type gameService struct {
	repos    *repository.Manager
	cfg      *GameConfig
	economy  EconomyService
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// GameConfig 游戏服务参数
type GameConfig struct {
	BaseReward int
	MinBet     int
	MaxBet     int
}

// NewGameService 创建游戏服务
func NewGameService(repos *repository.Manager, cfg *GameConfig, economy EconomyService, notifier Notifier, log *zap.Logger) GameService {
	return &gameService{
		repos:    repos,
		cfg:      cfg,
		economy:  economy,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// CreateGame 创建对局。游戏是会员功能，邀请方执先手
func (g *gameService) CreateGame(ctx context.Context, userID int64, gameType models.GameType, bet int) (*models.ActiveGame, error) {
	engine, err := game.ForType(gameType)
	if err != nil {
		return nil, err
	}
	if bet != 0 && (bet < g.cfg.MinBet || bet > g.cfg.MaxBet) {
		return nil, apperrors.Newf(apperrors.ErrInvalidBet, "bet=%d 范围[%d,%d]", bet, g.cfg.MinBet, g.cfg.MaxBet)
	}

	session, err := g.repos.Session().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !session.IsPremium(g.now()) {
		return nil, apperrors.New(apperrors.ErrPremiumRequired)
	}
	if session.State != models.StateChatting || session.PartnerID == nil {
		return nil, apperrors.New(apperrors.ErrNotChatting)
	}
	partnerID := *session.PartnerID

	chat, err := g.repos.Pool().GetChatByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 双方余额都要覆盖赌注
	if bet > 0 {
		for _, player := range []int64{userID, partnerID} {
			balance, err := g.repos.Ledger().BalanceFor(ctx, player)
			if err != nil {
				return nil, err
			}
			if balance.Total() < bet {
				return nil, apperrors.Newf(apperrors.ErrInsufficientBalance,
					"user=%d 需要%d", player, bet)
			}
		}
	}

	state, err := engine.NewState(userID, partnerID)
	if err != nil {
		return nil, err
	}

	active := &models.ActiveGame{
		GameID:      uuid.NewString(),
		ChatID:      chat.ChatID,
		GameType:    gameType,
		Player1ID:   userID,
		Player2ID:   partnerID,
		Bet:         bet,
		Status:      models.GameStatusActive,
		CurrentTurn: userID,
		State:       state,
	}
	if err := g.repos.Game().Create(ctx, active); err != nil {
		return nil, err
	}

	g.log.Info("对局创建",
		zap.String("game_id", active.GameID),
		zap.String("type", string(gameType)),
		zap.Int("bet", bet),
	)
	payload := map[string]interface{}{
		"game_id":      active.GameID,
		"game_type":    string(gameType),
		"bet":          bet,
		"current_turn": userID,
	}
	g.notifier.Notify(userID, EventGameState, payload)
	g.notifier.Notify(partnerID, EventGameState, payload)
	return active, nil
}

// SubmitMove 提交一步，终局时完成结算
func (g *gameService) SubmitMove(ctx context.Context, userID int64, gameID string, move string) (*MoveOutcome, error) {
	active, err := g.repos.Game().GetByGameID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if active.Status != models.GameStatusActive {
		return nil, apperrors.New(apperrors.ErrGameEnded)
	}
	if !active.IsParticipant(userID) {
		return nil, apperrors.New(apperrors.ErrGameNotFound)
	}
	// 非当前回合的落子明确拒绝，不静默忽略
	if active.CurrentTurn != userID {
		return nil, apperrors.New(apperrors.ErrNotYourTurn)
	}

	engine, err := game.ForType(active.GameType)
	if err != nil {
		return nil, err
	}

	result, moveErr := engine.ApplyMove(active, userID, move)
	if moveErr != nil {
		// 带局面的拒绝（如接龙罚次）要先落库再返回
		if result != nil {
			if err := g.repos.Game().UpdateState(ctx, gameID, result.State, result.NextTurn); err != nil {
				return nil, err
			}
		}
		return nil, moveErr
	}

	switch result.Status {
	case game.StatusContinue:
		if err := g.repos.Game().UpdateState(ctx, gameID, result.State, result.NextTurn); err != nil {
			return nil, err
		}
		active.State = result.State
		active.CurrentTurn = result.NextTurn
		g.broadcastState(active, result)
		return &MoveOutcome{Game: active, Result: result}, nil

	case game.StatusDraw:
		// 平局不结算
		if err := g.repos.Game().UpdateState(ctx, gameID, result.State, userID); err != nil {
			return nil, err
		}
		if err := g.repos.Game().Finish(ctx, gameID, nil); err != nil {
			return nil, err
		}
		active.Status = models.GameStatusFinished
		active.State = result.State
		g.broadcastState(active, result)
		return &MoveOutcome{Game: active, Result: result, Settled: true}, nil

	case game.StatusWin:
		reward, err := g.settleWin(ctx, active, result)
		if err != nil {
			return nil, err
		}
		active.Status = models.GameStatusFinished
		active.State = result.State
		active.WinnerID = result.WinnerID
		g.broadcastState(active, result)
		return &MoveOutcome{Game: active, Result: result, Settled: true, WinnerReward: reward}, nil

	default:
		return nil, apperrors.Newf(apperrors.ErrInternalServer, "未知对局结果: %s", result.Status)
	}
}

// settleWin 终局结算：败方扣除赌注（余额不足尽力扣），胜方获2×赌注+基础奖励
func (g *gameService) settleWin(ctx context.Context, active *models.ActiveGame, result *game.MoveResult) (int, error) {
	winnerID := *result.WinnerID
	loserID := active.Opponent(winnerID)
	reward := active.Bet*2 + g.cfg.BaseReward

	err := g.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		// 终局局面先写入，再推进状态（条件更新要求对局仍在进行中）
		if err := tx.Game().UpdateState(ctx, active.GameID, result.State, active.CurrentTurn); err != nil {
			return err
		}
		if err := tx.Game().Finish(ctx, active.GameID, result.WinnerID); err != nil {
			return err
		}

		if active.Bet > 0 {
			err := g.economy.DeductSmartInTx(ctx, tx, loserID, active.Bet)
			if err != nil && apperrors.GetCode(err) != apperrors.ErrInsufficientBalance {
				return err
			}
			if err != nil {
				g.log.Warn("败方余额不足，赌注未足额扣除",
					zap.Int64("loser", loserID),
					zap.Int("bet", active.Bet),
				)
			}
		}

		return g.economy.AddInTx(ctx, tx, winnerID, reward, models.SourceGame, "game_win")
	})
	if err != nil {
		return 0, err
	}

	g.log.Info("对局结算完成",
		zap.String("game_id", active.GameID),
		zap.Int64("winner", winnerID),
		zap.Int("reward", reward),
	)
	return reward, nil
}

// ActiveGameForChat 查询聊天中进行中的对局
func (g *gameService) ActiveGameForChat(ctx context.Context, chatID string) (*models.ActiveGame, error) {
	return g.repos.Game().GetActiveByChatID(ctx, chatID)
}

func (g *gameService) broadcastState(active *models.ActiveGame, result *game.MoveResult) {
	payload := map[string]interface{}{
		"game_id":      active.GameID,
		"status":       string(result.Status),
		"display":      result.Display,
		"current_turn": result.NextTurn,
	}
	if result.WinnerID != nil {
		payload["winner_id"] = *result.WinnerID
	}
	g.notifier.Notify(active.Player1ID, EventGameState, payload)
	g.notifier.Notify(active.Player2ID, EventGameState, payload)
}
