package game

import (
	"math/rand"
	"strings"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
)

const hangmanMaxWrong = 6

var hangmanWords = []string{
	"garden", "rating", "message", "profile", "keyboard", "button",
	"premium", "sunflower", "streak", "partner", "stranger", "harvest",
}

// hangmanState 猜词局面，双方轮流猜字母
type hangmanState struct {
	Word           string   `json:"word"`
	GuessedLetters []string `json:"guessed_letters"`
	WrongGuesses   int      `json:"wrong_guesses"`
	MaxWrong       int      `json:"max_wrong"`
}

// HangmanEngine 猜词引擎。猜出最后一个字母者胜，打满错误上限者负
type HangmanEngine struct{}

func (e *HangmanEngine) Type() models.GameType {
	return models.GameHangman
}

// NewState 随机选词开局
func (e *HangmanEngine) NewState(player1ID, player2ID int64) (models.JSONMap, error) {
	state := &hangmanState{
		Word:           hangmanWords[rand.Intn(len(hangmanWords))],
		GuessedLetters: []string{},
		WrongGuesses:   0,
		MaxWrong:       hangmanMaxWrong,
	}
	return encodeState(state)
}

// ApplyMove 猜一个字母
func (e *HangmanEngine) ApplyMove(g *models.ActiveGame, playerID int64, move string) (*MoveResult, error) {
	var state hangmanState
	if err := decodeState(g.State, &state); err != nil {
		return nil, err
	}

	letter := strings.ToLower(strings.TrimSpace(move))
	if len(letter) != 1 || letter[0] < 'a' || letter[0] > 'z' {
		return nil, apperrors.Newf(apperrors.ErrMoveRejected, "请猜一个字母: %s", move)
	}
	for _, guessed := range state.GuessedLetters {
		if guessed == letter {
			return nil, apperrors.Newf(apperrors.ErrMoveRejected, "字母'%s'已猜过", letter)
		}
	}

	state.GuessedLetters = append(state.GuessedLetters, letter)

	if !strings.Contains(state.Word, letter) {
		state.WrongGuesses++
		if state.WrongGuesses >= state.MaxWrong {
			// 打满错误上限，猜错者负
			winnerID := otherPlayer(playerID, g.Player1ID, g.Player2ID)
			return e.result(&state, StatusWin, &winnerID, playerID)
		}
		return e.continueResult(&state, playerID, g)
	}

	if wordRevealed(&state) {
		// 补全单词者胜
		winnerID := playerID
		return e.result(&state, StatusWin, &winnerID, playerID)
	}
	return e.continueResult(&state, playerID, g)
}

func (e *HangmanEngine) continueResult(state *hangmanState, playerID int64, g *models.ActiveGame) (*MoveResult, error) {
	res, err := e.result(state, StatusContinue, nil, playerID)
	if err != nil {
		return nil, err
	}
	res.NextTurn = otherPlayer(playerID, g.Player1ID, g.Player2ID)
	return res, nil
}

func (e *HangmanEngine) result(state *hangmanState, status Status, winnerID *int64, mover int64) (*MoveResult, error) {
	encoded, err := encodeState(state)
	if err != nil {
		return nil, err
	}
	return &MoveResult{
		State:    encoded,
		Status:   status,
		WinnerID: winnerID,
		NextTurn: mover,
		Display:  maskWord(state),
	}, nil
}

// wordRevealed 单词所有字母均已被猜出
func wordRevealed(state *hangmanState) bool {
	for _, letter := range state.Word {
		if !containsLetter(state.GuessedLetters, string(letter)) {
			return false
		}
	}
	return true
}

func containsLetter(letters []string, letter string) bool {
	for _, l := range letters {
		if l == letter {
			return true
		}
	}
	return false
}

// maskWord 未猜出的字母显示为下划线
func maskWord(state *hangmanState) string {
	parts := make([]string, 0, len(state.Word))
	for _, letter := range state.Word {
		if containsLetter(state.GuessedLetters, string(letter)) {
			parts = append(parts, string(letter))
		} else {
			parts = append(parts, "_")
		}
	}
	return strings.Join(parts, " ")
}
