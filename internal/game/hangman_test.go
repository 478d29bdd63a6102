package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
)

// seedHangmanGame 固定谜底，避免随机开局影响断言
func seedHangmanGame(t *testing.T, word string) (*HangmanEngine, *models.ActiveGame) {
	engine := &HangmanEngine{}
	state, err := encodeState(&hangmanState{
		Word:           word,
		GuessedLetters: []string{},
		WrongGuesses:   0,
		MaxWrong:       hangmanMaxWrong,
	})
	require.NoError(t, err)

	return engine, &models.ActiveGame{
		GameID:      "game-hm",
		ChatID:      "chat-hm",
		GameType:    models.GameHangman,
		Player1ID:   testPlayer1,
		Player2ID:   testPlayer2,
		Status:      models.GameStatusActive,
		CurrentTurn: testPlayer1,
		State:       state,
	}
}

func TestHangmanCompletingGuessWins(t *testing.T) {
	engine, g := seedHangmanGame(t, "cab")

	res := applyMove(t, engine, g, testPlayer1, "c")
	assert.Equal(t, StatusContinue, res.Status)
	res = applyMove(t, engine, g, testPlayer2, "a")
	assert.Equal(t, StatusContinue, res.Status)

	// 补全最后一个字母者获胜
	res = applyMove(t, engine, g, testPlayer1, "b")
	assert.Equal(t, StatusWin, res.Status)
	require.NotNil(t, res.WinnerID)
	assert.Equal(t, testPlayer1, *res.WinnerID)
}

func TestHangmanSixthWrongGuessLoses(t *testing.T) {
	engine, g := seedHangmanGame(t, "cab")

	wrong := []string{"x", "y", "z", "q", "w", "e"}
	var res *MoveResult
	for i, letter := range wrong {
		player := testPlayer1
		if i%2 == 1 {
			player = testPlayer2
		}
		res = applyMove(t, engine, g, player, letter)
	}

	// 第6次猜错由player2打出，player1获胜
	assert.Equal(t, StatusWin, res.Status)
	require.NotNil(t, res.WinnerID)
	assert.Equal(t, testPlayer1, *res.WinnerID)
}

func TestHangmanRepeatedLetterRejected(t *testing.T) {
	engine, g := seedHangmanGame(t, "cab")

	applyMove(t, engine, g, testPlayer1, "c")

	_, err := engine.ApplyMove(g, testPlayer2, "c")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrMoveRejected, apperrors.GetCode(err))
}

func TestHangmanInvalidGuessRejected(t *testing.T) {
	engine, g := seedHangmanGame(t, "cab")

	for _, move := range []string{"ab", "", "1", "!"} {
		_, err := engine.ApplyMove(g, testPlayer1, move)
		require.Error(t, err, "move=%s", move)
		assert.Equal(t, apperrors.ErrMoveRejected, apperrors.GetCode(err))
	}
}

func TestHangmanMaskWord(t *testing.T) {
	engine, g := seedHangmanGame(t, "cab")

	res := applyMove(t, engine, g, testPlayer1, "a")
	assert.Equal(t, "_ a _", res.Display)
}

func TestForType(t *testing.T) {
	for _, gt := range []models.GameType{
		models.GameTicTacToe,
		models.GameWordChainEasy,
		models.GameWordChainHard,
		models.GameHangman,
	} {
		engine, err := ForType(gt)
		require.NoError(t, err)
		assert.Equal(t, gt, engine.Type())
	}

	_, err := ForType("poker")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnknownGameType, apperrors.GetCode(err))
}
