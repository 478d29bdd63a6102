package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/game"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
)

// GameServiceSuite 对战游戏服务测试套件
type GameServiceSuite struct {
	suite.Suite
	repos    *repository.Manager
	svc      GameService
	notifier *recordingNotifier
	ctx      context.Context
}

func TestGameServiceSuite(t *testing.T) {
	suite.Run(t, new(GameServiceSuite))
}

func (s *GameServiceSuite) SetupTest() {
	s.repos = setupRepos(s.T())
	s.notifier = &recordingNotifier{}
	economy := NewEconomyService(s.repos, testEconomyConfig(), NopNotifier{}, nopLogger())
	s.svc = NewGameService(s.repos, testGameConfig(), economy, s.notifier, nopLogger())
	s.ctx = context.Background()

	s.startChat(1001, 1002, "chat-1")
	grantPremium(s.T(), s.repos, 1001, 24*time.Hour)
}

// startChat 搭建一对正在聊天的用户
func (s *GameServiceSuite) startChat(user1, user2 int64, chatID string) {
	createSession(s.T(), s.repos, user1, models.StateChatting)
	createSession(s.T(), s.repos, user2, models.StateChatting)
	s.Require().NoError(s.repos.Session().SetPartner(s.ctx, user1, &user2))
	s.Require().NoError(s.repos.Session().SetPartner(s.ctx, user2, &user1))
	s.Require().NoError(s.repos.Pool().CreateChat(s.ctx, &models.ActiveChat{
		ChatID:  chatID,
		User1ID: user1,
		User2ID: user2,
	}))
}

// playMoves 按给定顺序交替落子，返回最后一步的结果
func (s *GameServiceSuite) playMoves(gameID string, moves []struct {
	player int64
	move   string
}) *MoveOutcome {
	var outcome *MoveOutcome
	for _, m := range moves {
		var err error
		outcome, err = s.svc.SubmitMove(s.ctx, m.player, gameID, m.move)
		s.Require().NoError(err)
	}
	return outcome
}

func (s *GameServiceSuite) TestCreateGame() {
	active, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 0)
	s.Require().NoError(err)
	s.Equal("chat-1", active.ChatID)
	s.Equal(models.GameStatusActive, active.Status)
	// 邀请方执先手
	s.Equal(int64(1001), active.CurrentTurn)
	s.Equal(int64(1002), active.Player2ID)

	// 双方收到对局推送
	s.Len(s.notifier.eventsFor(1001, EventGameState), 1)
	s.Len(s.notifier.eventsFor(1002, EventGameState), 1)
}

func (s *GameServiceSuite) TestCreateGameRequiresPremium() {
	// 伙伴不是会员，由伙伴发起被拒绝
	_, err := s.svc.CreateGame(s.ctx, 1002, models.GameTicTacToe, 0)
	s.Equal(apperrors.ErrPremiumRequired, apperrors.GetCode(err))
}

func (s *GameServiceSuite) TestCreateGameRequiresChatting() {
	createSession(s.T(), s.repos, 1003, models.StateIdle)
	grantPremium(s.T(), s.repos, 1003, 24*time.Hour)

	_, err := s.svc.CreateGame(s.ctx, 1003, models.GameTicTacToe, 0)
	s.Equal(apperrors.ErrNotChatting, apperrors.GetCode(err))
}

func (s *GameServiceSuite) TestCreateGameUnknownType() {
	_, err := s.svc.CreateGame(s.ctx, 1001, models.GameType("chess"), 0)
	s.Equal(apperrors.ErrUnknownGameType, apperrors.GetCode(err))
}

func (s *GameServiceSuite) TestCreateGameBetOutOfRange() {
	_, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 2000)
	s.Equal(apperrors.ErrInvalidBet, apperrors.GetCode(err))
}

func (s *GameServiceSuite) TestCreateGameBetNeedsBothBalances() {
	grant(s.T(), s.repos, 1001, models.SourceStreak, 100)
	// 伙伴没有余额
	_, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 50)
	s.Equal(apperrors.ErrInsufficientBalance, apperrors.GetCode(err))
}

func (s *GameServiceSuite) TestOneGamePerChat() {
	_, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 0)
	s.Require().NoError(err)

	_, err = s.svc.CreateGame(s.ctx, 1001, models.GameHangman, 0)
	s.Equal(apperrors.ErrGameInProgress, apperrors.GetCode(err))
}

func (s *GameServiceSuite) TestSubmitMoveOutOfTurn() {
	active, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 0)
	s.Require().NoError(err)

	_, err = s.svc.SubmitMove(s.ctx, 1002, active.GameID, "0")
	s.Equal(apperrors.ErrNotYourTurn, apperrors.GetCode(err))
}

func (s *GameServiceSuite) TestSubmitMoveNonParticipant() {
	active, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 0)
	s.Require().NoError(err)

	_, err = s.svc.SubmitMove(s.ctx, 9999, active.GameID, "0")
	s.Equal(apperrors.ErrGameNotFound, apperrors.GetCode(err))
}

func (s *GameServiceSuite) TestSubmitMoveRejectedKeepsTurn() {
	active, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 0)
	s.Require().NoError(err)

	_, err = s.svc.SubmitMove(s.ctx, 1001, active.GameID, "9")
	s.Equal(apperrors.ErrMoveRejected, apperrors.GetCode(err))

	// 非法落子不消耗回合
	stored, err := s.repos.Game().GetByGameID(s.ctx, active.GameID)
	s.Require().NoError(err)
	s.Equal(int64(1001), stored.CurrentTurn)
}

func (s *GameServiceSuite) TestWinSettlement() {
	grant(s.T(), s.repos, 1001, models.SourceStreak, 50)
	grant(s.T(), s.repos, 1002, models.SourceStreak, 50)

	active, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 20)
	s.Require().NoError(err)

	// X占满第一行获胜
	outcome := s.playMoves(active.GameID, []struct {
		player int64
		move   string
	}{
		{1001, "0"}, {1002, "3"},
		{1001, "1"}, {1002, "4"},
		{1001, "2"},
	})

	s.True(outcome.Settled)
	s.Equal(game.StatusWin, outcome.Result.Status)
	// 胜方得2×赌注+基础奖励
	s.Equal(90, outcome.WinnerReward)

	winner, err := s.repos.Ledger().BalanceFor(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal(90, winner.Game)
	s.Equal(140, winner.Total())

	loser, err := s.repos.Ledger().BalanceFor(s.ctx, 1002)
	s.Require().NoError(err)
	s.Equal(30, loser.Total())

	stored, err := s.repos.Game().GetByGameID(s.ctx, active.GameID)
	s.Require().NoError(err)
	s.Equal(models.GameStatusFinished, stored.Status)
	s.Require().NotNil(stored.WinnerID)
	s.Equal(int64(1001), *stored.WinnerID)
}

func (s *GameServiceSuite) TestWinSettlementLoserBroke() {
	active, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 0)
	s.Require().NoError(err)

	outcome := s.playMoves(active.GameID, []struct {
		player int64
		move   string
	}{
		{1001, "0"}, {1002, "3"},
		{1001, "1"}, {1002, "4"},
		{1001, "2"},
	})

	// 无赌注时只发基础奖励
	s.Equal(50, outcome.WinnerReward)

	loser, err := s.repos.Ledger().BalanceFor(s.ctx, 1002)
	s.Require().NoError(err)
	s.Equal(0, loser.Total())
}

func (s *GameServiceSuite) TestDrawNoSettlement() {
	grant(s.T(), s.repos, 1001, models.SourceStreak, 50)
	grant(s.T(), s.repos, 1002, models.SourceStreak, 50)

	active, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 20)
	s.Require().NoError(err)

	outcome := s.playMoves(active.GameID, []struct {
		player int64
		move   string
	}{
		{1001, "0"}, {1002, "1"},
		{1001, "2"}, {1002, "4"},
		{1001, "3"}, {1002, "5"},
		{1001, "7"}, {1002, "6"},
		{1001, "8"},
	})

	s.True(outcome.Settled)
	s.Equal(game.StatusDraw, outcome.Result.Status)
	s.Equal(0, outcome.WinnerReward)

	// 平局双方余额不动
	for _, userID := range []int64{1001, 1002} {
		balance, err := s.repos.Ledger().BalanceFor(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(50, balance.Total())
	}

	// 终局后不能再落子
	_, err = s.svc.SubmitMove(s.ctx, 1001, active.GameID, "0")
	s.Equal(apperrors.ErrGameEnded, apperrors.GetCode(err))
}

func (s *GameServiceSuite) TestActiveGameForChat() {
	active, err := s.svc.CreateGame(s.ctx, 1001, models.GameTicTacToe, 0)
	s.Require().NoError(err)

	found, err := s.svc.ActiveGameForChat(s.ctx, "chat-1")
	s.Require().NoError(err)
	s.Equal(active.GameID, found.GameID)
}
