package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
)

// GameRepoSuite 对战游戏仓储测试套件
type GameRepoSuite struct {
	suite.Suite
	db   *gorm.DB
	repo GameRepository
	ctx  context.Context
}

func TestGameRepoSuite(t *testing.T) {
	suite.Run(t, new(GameRepoSuite))
}

func (s *GameRepoSuite) SetupTest() {
	s.db = SetupTestDB()
	s.repo = NewGameRepository(s.db)
	s.ctx = context.Background()
}

func (s *GameRepoSuite) TearDownTest() {
	CleanupTestDB(s.db)
}

func (s *GameRepoSuite) newGame(gameID, chatID string) *models.ActiveGame {
	return &models.ActiveGame{
		GameID:      gameID,
		ChatID:      chatID,
		GameType:    models.GameTicTacToe,
		Player1ID:   1001,
		Player2ID:   1002,
		Status:      models.GameStatusActive,
		CurrentTurn: 1001,
		State:       models.JSONMap{"board": "........."},
	}
}

func (s *GameRepoSuite) TestCreateAndGet() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newGame("g-1", "chat-1")))

	game, err := s.repo.GetByGameID(s.ctx, "g-1")
	s.Require().NoError(err)
	s.Equal("chat-1", game.ChatID)
	s.Equal(models.GameStatusActive, game.Status)
	s.True(game.IsParticipant(1001))
	s.True(game.IsParticipant(1002))
	s.False(game.IsParticipant(1003))
	s.Equal(int64(1002), game.Opponent(1001))
}

func (s *GameRepoSuite) TestOneActiveGamePerChat() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newGame("g-1", "chat-1")))

	err := s.repo.Create(s.ctx, s.newGame("g-2", "chat-1"))
	s.Require().Error(err)
	s.Equal(apperrors.ErrGameInProgress, apperrors.GetCode(err))

	// 结束后可以开新局
	s.Require().NoError(s.repo.Finish(s.ctx, "g-1", nil))
	s.Require().NoError(s.repo.Create(s.ctx, s.newGame("g-2", "chat-1")))
}

func (s *GameRepoSuite) TestUpdateStateOnlyWhileActive() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newGame("g-1", "chat-1")))

	err := s.repo.UpdateState(s.ctx, "g-1", models.JSONMap{"board": "x........"}, 1002)
	s.Require().NoError(err)

	game, err := s.repo.GetByGameID(s.ctx, "g-1")
	s.Require().NoError(err)
	s.Equal(int64(1002), game.CurrentTurn)
	s.Equal("x........", game.State["board"])

	s.Require().NoError(s.repo.Finish(s.ctx, "g-1", nil))

	err = s.repo.UpdateState(s.ctx, "g-1", models.JSONMap{}, 1001)
	s.Equal(apperrors.ErrGameEnded, apperrors.GetCode(err))
}

func (s *GameRepoSuite) TestFinishWithWinner() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newGame("g-1", "chat-1")))

	winnerID := int64(1002)
	s.Require().NoError(s.repo.Finish(s.ctx, "g-1", &winnerID))

	game, err := s.repo.GetByGameID(s.ctx, "g-1")
	s.Require().NoError(err)
	s.Equal(models.GameStatusFinished, game.Status)
	s.Require().NotNil(game.WinnerID)
	s.Equal(winnerID, *game.WinnerID)
	s.NotNil(game.FinishedAt)

	// 重复结束被拒绝
	err = s.repo.Finish(s.ctx, "g-1", nil)
	s.Equal(apperrors.ErrGameEnded, apperrors.GetCode(err))
}

func (s *GameRepoSuite) TestVoidActiveByChatID() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newGame("g-1", "chat-1")))

	voided, err := s.repo.VoidActiveByChatID(s.ctx, "chat-1")
	s.Require().NoError(err)
	s.Require().NotNil(voided)
	s.Equal("g-1", voided.GameID)
	s.Equal(models.GameStatusVoided, voided.Status)
	s.Nil(voided.WinnerID)

	// 没有进行中的对局时返回nil
	voided, err = s.repo.VoidActiveByChatID(s.ctx, "chat-1")
	s.Require().NoError(err)
	s.Nil(voided)
}

func (s *GameRepoSuite) TestGetActiveByChatID() {
	s.Require().NoError(s.repo.Create(s.ctx, s.newGame("g-1", "chat-1")))
	s.Require().NoError(s.repo.Finish(s.ctx, "g-1", nil))

	_, err := s.repo.GetActiveByChatID(s.ctx, "chat-1")
	s.Equal(apperrors.ErrGameNotFound, apperrors.GetCode(err))

	s.Require().NoError(s.repo.Create(s.ctx, s.newGame("g-2", "chat-1")))
	game, err := s.repo.GetActiveByChatID(s.ctx, "chat-1")
	s.Require().NoError(err)
	s.Equal("g-2", game.GameID)
}
