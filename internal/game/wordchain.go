package game

import (
	"fmt"
	"math/rand"
	"strings"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
)

// Difficulty 词语接龙难度
type Difficulty string

const (
	DifficultyEasy Difficulty = "easy"
	DifficultyHard Difficulty = "hard"
)

// 连续三次无效词判负
const maxConsecutiveRejects = 3

var easyWords = []string{
	"cat", "dog", "sun", "moon", "tree", "book", "love", "home", "star", "bird",
	"fish", "rain", "snow", "wind", "fire", "door", "wall", "road", "park", "lake",
}

var hardWords = []string{
	"elephant", "computer", "beautiful", "adventure", "wonderful", "mysterious",
	"butterfly", "pineapple", "telescope", "submarine", "chocolate", "dinosaur",
}

// wordChainState 词语接龙局面
type wordChainState struct {
	Words      []string        `json:"words"`
	UsedWords  map[string]bool `json:"used_words"`
	Difficulty Difficulty      `json:"difficulty"`
	// Strikes 各玩家当前连续无效词次数，有效词清零
	Strikes map[string]int `json:"strikes"`
}

// WordChainEngine 词语接龙引擎
type WordChainEngine struct {
	Difficulty Difficulty
}

func (e *WordChainEngine) Type() models.GameType {
	if e.Difficulty == DifficultyHard {
		return models.GameWordChainHard
	}
	return models.GameWordChainEasy
}

// NewState 随机选首词开局
func (e *WordChainEngine) NewState(player1ID, player2ID int64) (models.JSONMap, error) {
	words := easyWords
	if e.Difficulty == DifficultyHard {
		words = hardWords
	}
	first := words[rand.Intn(len(words))]

	state := &wordChainState{
		Words:      []string{first},
		UsedWords:  map[string]bool{first: true},
		Difficulty: e.Difficulty,
		Strikes:    map[string]int{},
	}
	return encodeState(state)
}

// ApplyMove 接词。无效词累计罚次，连续三次判对方获胜
func (e *WordChainEngine) ApplyMove(g *models.ActiveGame, playerID int64, move string) (*MoveResult, error) {
	var state wordChainState
	if err := decodeState(g.State, &state); err != nil {
		return nil, err
	}
	if state.Strikes == nil {
		state.Strikes = map[string]int{}
	}

	word := strings.ToLower(strings.TrimSpace(move))
	lastWord := state.Words[len(state.Words)-1]
	lastLetter := lastWord[len(lastWord)-1:]

	if reason := rejectReason(&state, word, lastLetter); reason != "" {
		key := fmt.Sprintf("%d", playerID)
		state.Strikes[key]++
		if state.Strikes[key] >= maxConsecutiveRejects {
			winnerID := otherPlayer(playerID, g.Player1ID, g.Player2ID)
			encoded, err := encodeState(&state)
			if err != nil {
				return nil, err
			}
			return &MoveResult{
				State:    encoded,
				Status:   StatusWin,
				WinnerID: &winnerID,
				NextTurn: playerID,
				Display:  renderChain(&state),
			}, nil
		}

		// 罚次要落库，局面随错误一并返回
		encoded, err := encodeState(&state)
		if err != nil {
			return nil, err
		}
		res := &MoveResult{
			State:    encoded,
			Status:   StatusContinue,
			NextTurn: playerID,
			Display:  renderChain(&state),
		}
		return res, apperrors.New(apperrors.ErrMoveRejected, reason)
	}

	state.Words = append(state.Words, word)
	state.UsedWords[word] = true
	state.Strikes[fmt.Sprintf("%d", playerID)] = 0

	encoded, err := encodeState(&state)
	if err != nil {
		return nil, err
	}
	return &MoveResult{
		State:    encoded,
		Status:   StatusContinue,
		NextTurn: otherPlayer(playerID, g.Player1ID, g.Player2ID),
		Display:  renderChain(&state),
	}, nil
}

// rejectReason 校验接词，合法返回空串
func rejectReason(state *wordChainState, word, lastLetter string) string {
	if len(word) < 3 {
		return "词语至少3个字母"
	}
	if !strings.HasPrefix(word, lastLetter) {
		return fmt.Sprintf("词语必须以'%s'开头", lastLetter)
	}
	if state.UsedWords[word] {
		return "词语已被使用"
	}
	return ""
}

// renderChain 最近几个词的快照
func renderChain(state *wordChainState) string {
	words := state.Words
	if len(words) > 5 {
		words = words[len(words)-5:]
	}
	return strings.Join(words, " → ")
}
