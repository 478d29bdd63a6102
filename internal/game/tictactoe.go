package game

import (
	"strconv"
	"strings"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
)

// ticTacToeState 井字棋局面
type ticTacToeState struct {
	Board         []string `json:"board"` // 9格，""表示空
	CurrentSymbol string   `json:"current_symbol"`
}

// winningLines 三连线组合
var winningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // 横
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // 竖
	{0, 4, 8}, {2, 4, 6}, // 斜
}

// TicTacToeEngine 井字棋引擎，player1执X先手
type TicTacToeEngine struct{}

func (e *TicTacToeEngine) Type() models.GameType {
	return models.GameTicTacToe
}

// NewState 生成空棋盘
func (e *TicTacToeEngine) NewState(player1ID, player2ID int64) (models.JSONMap, error) {
	state := &ticTacToeState{
		Board:         make([]string, 9),
		CurrentSymbol: "X",
	}
	return encodeState(state)
}

// ApplyMove 落子，move为格子序号0-8
func (e *TicTacToeEngine) ApplyMove(g *models.ActiveGame, playerID int64, move string) (*MoveResult, error) {
	var state ticTacToeState
	if err := decodeState(g.State, &state); err != nil {
		return nil, err
	}

	pos, err := strconv.Atoi(strings.TrimSpace(move))
	if err != nil || pos < 0 || pos > 8 {
		return nil, apperrors.Newf(apperrors.ErrMoveRejected, "无效的格子: %s", move)
	}
	if state.Board[pos] != "" {
		return nil, apperrors.Newf(apperrors.ErrMoveRejected, "格子%d已被占用", pos)
	}

	symbol := "X"
	if playerID == g.Player2ID {
		symbol = "O"
	}
	state.Board[pos] = symbol

	// 先判胜再判满：最后一格成线是胜利，不是平局
	if winner := checkWinner(state.Board); winner != "" {
		winnerID := g.Player1ID
		if winner == "O" {
			winnerID = g.Player2ID
		}
		return e.result(&state, StatusWin, &winnerID, playerID)
	}

	if boardFull(state.Board) {
		return e.result(&state, StatusDraw, nil, playerID)
	}

	state.CurrentSymbol = otherSymbol(symbol)
	next := otherPlayer(playerID, g.Player1ID, g.Player2ID)
	res, err := e.result(&state, StatusContinue, nil, playerID)
	if err != nil {
		return nil, err
	}
	res.NextTurn = next
	return res, nil
}

func (e *TicTacToeEngine) result(state *ticTacToeState, status Status, winnerID *int64, mover int64) (*MoveResult, error) {
	encoded, err := encodeState(state)
	if err != nil {
		return nil, err
	}
	return &MoveResult{
		State:    encoded,
		Status:   status,
		WinnerID: winnerID,
		NextTurn: mover,
		Display:  renderBoard(state.Board),
	}, nil
}

// checkWinner 检查三连线，返回获胜符号或空串
func checkWinner(board []string) string {
	for _, line := range winningLines {
		if board[line[0]] != "" &&
			board[line[0]] == board[line[1]] &&
			board[line[1]] == board[line[2]] {
			return board[line[0]]
		}
	}
	return ""
}

func boardFull(board []string) bool {
	for _, cell := range board {
		if cell == "" {
			return false
		}
	}
	return true
}

func otherSymbol(symbol string) string {
	if symbol == "X" {
		return "O"
	}
	return "X"
}

// renderBoard 三行文本棋盘
func renderBoard(board []string) string {
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			cell := board[row*3+col]
			if cell == "" {
				cell = "."
			}
			sb.WriteString(cell)
		}
		if row < 2 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
