package game

import (
	"encoding/json"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
)

// Status 一步落子后的对局结果
type Status string

const (
	StatusContinue Status = "continue" // 对局继续
	StatusWin      Status = "win"      // 有人获胜
	StatusDraw     Status = "draw"     // 平局
)

// MoveResult 引擎执行一步后的结果
type MoveResult struct {
	State    models.JSONMap `json:"state"`
	Status   Status         `json:"status"`
	WinnerID *int64         `json:"winner_id,omitempty"`
	NextTurn int64          `json:"next_turn"`
	Display  string         `json:"display"` // 面向玩家的局面快照，由网关渲染
}

// Engine 对战游戏引擎接口（纯逻辑，不碰存储）
type Engine interface {
	Type() models.GameType
	// NewState 生成初始局面，player1为邀请方并持有首回合
	NewState(player1ID, player2ID int64) (models.JSONMap, error)
	// ApplyMove 执行一步。非法落子返回ErrMoveRejected，局面不变
	ApplyMove(g *models.ActiveGame, playerID int64, move string) (*MoveResult, error)
}

// ForType 按游戏类型取引擎
func ForType(gameType models.GameType) (Engine, error) {
	switch gameType {
	case models.GameTicTacToe:
		return &TicTacToeEngine{}, nil
	case models.GameWordChainEasy:
		return &WordChainEngine{Difficulty: DifficultyEasy}, nil
	case models.GameWordChainHard:
		return &WordChainEngine{Difficulty: DifficultyHard}, nil
	case models.GameHangman:
		return &HangmanEngine{}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrUnknownGameType, "type=%s", gameType)
	}
}

// encodeState 类型化局面转JSONMap
func encodeState(in interface{}) (models.JSONMap, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer)
	}
	var m models.JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer)
	}
	return m, nil
}

// decodeState JSONMap转回类型化局面
func decodeState(m models.JSONMap, out interface{}) error {
	data, err := json.Marshal(m)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternalServer)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDataIntegrity)
	}
	return nil
}

// otherPlayer 轮换回合
func otherPlayer(current, player1, player2 int64) int64 {
	if current == player1 {
		return player2
	}
	return player1
}
