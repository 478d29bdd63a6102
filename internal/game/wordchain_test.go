package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
)

// seedWordChainGame 固定首词，避免随机开局影响断言
func seedWordChainGame(t *testing.T) (*WordChainEngine, *models.ActiveGame) {
	engine := &WordChainEngine{Difficulty: DifficultyEasy}
	state, err := encodeState(&wordChainState{
		Words:      []string{"cat"},
		UsedWords:  map[string]bool{"cat": true},
		Difficulty: DifficultyEasy,
		Strikes:    map[string]int{},
	})
	require.NoError(t, err)

	return engine, &models.ActiveGame{
		GameID:      "game-wc",
		ChatID:      "chat-wc",
		GameType:    models.GameWordChainEasy,
		Player1ID:   testPlayer1,
		Player2ID:   testPlayer2,
		Status:      models.GameStatusActive,
		CurrentTurn: testPlayer1,
		State:       state,
	}
}

func TestWordChainValidMove(t *testing.T) {
	engine, g := seedWordChainGame(t)

	res, err := engine.ApplyMove(g, testPlayer1, "tree")
	require.NoError(t, err)
	assert.Equal(t, StatusContinue, res.Status)
	assert.Equal(t, testPlayer2, res.NextTurn)

	var state wordChainState
	require.NoError(t, decodeState(res.State, &state))
	assert.Equal(t, []string{"cat", "tree"}, state.Words)
}

func TestWordChainWrongFirstLetterRejected(t *testing.T) {
	engine, g := seedWordChainGame(t)

	res, err := engine.ApplyMove(g, testPlayer1, "dog")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrMoveRejected, apperrors.GetCode(err))
	// 罚次要写回局面
	require.NotNil(t, res)
	var state wordChainState
	require.NoError(t, decodeState(res.State, &state))
	assert.Equal(t, 1, state.Strikes["1001"])
}

func TestWordChainReusedWordRejected(t *testing.T) {
	engine, g := seedWordChainGame(t)

	g.State = applyMoveState(t, engine, g, testPlayer1, "tree")
	g.State = applyMoveState(t, engine, g, testPlayer2, "egg")

	_, err := engine.ApplyMove(g, testPlayer1, "tree")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrMoveRejected, apperrors.GetCode(err))
}

func TestWordChainShortWordRejected(t *testing.T) {
	engine, g := seedWordChainGame(t)

	_, err := engine.ApplyMove(g, testPlayer1, "to")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrMoveRejected, apperrors.GetCode(err))
}

func TestWordChainThreeStrikesForfeits(t *testing.T) {
	engine, g := seedWordChainGame(t)

	for i := 0; i < 2; i++ {
		res, err := engine.ApplyMove(g, testPlayer1, "dog")
		require.Error(t, err)
		g.State = res.State
	}

	// 第三次无效词判负，对方获胜
	res, err := engine.ApplyMove(g, testPlayer1, "dog")
	require.NoError(t, err)
	assert.Equal(t, StatusWin, res.Status)
	require.NotNil(t, res.WinnerID)
	assert.Equal(t, testPlayer2, *res.WinnerID)
}

func TestWordChainValidMoveResetsStrikes(t *testing.T) {
	engine, g := seedWordChainGame(t)

	for i := 0; i < 2; i++ {
		res, err := engine.ApplyMove(g, testPlayer1, "dog")
		require.Error(t, err)
		g.State = res.State
	}

	res, err := engine.ApplyMove(g, testPlayer1, "tiger")
	require.NoError(t, err)

	var state wordChainState
	require.NoError(t, decodeState(res.State, &state))
	assert.Equal(t, 0, state.Strikes["1001"])
}

func applyMoveState(t *testing.T, engine Engine, g *models.ActiveGame, playerID int64, move string) models.JSONMap {
	res, err := engine.ApplyMove(g, playerID, move)
	require.NoError(t, err)
	return res.State
}
