package models

import (
	"time"
)

// GameType 对战游戏类型
type GameType string

// 游戏类型定义
const (
	GameTicTacToe     GameType = "tictactoe"
	GameWordChainEasy GameType = "wordchain_easy"
	GameWordChainHard GameType = "wordchain_hard"
	GameHangman       GameType = "hangman"
)

// ValidGameType 检查游戏类型是否合法
func ValidGameType(t GameType) bool {
	switch t {
	case GameTicTacToe, GameWordChainEasy, GameWordChainHard, GameHangman:
		return true
	}
	return false
}

// GameStatus 游戏状态
type GameStatus string

// 游戏状态定义
const (
	GameStatusActive   GameStatus = "active"
	GameStatusFinished GameStatus = "finished"
	GameStatusVoided   GameStatus = "voided" // 聊天中途结束，不结算
)

// ActiveGame 对战游戏记录（每个聊天至多一个未终止游戏）
type ActiveGame struct {
	BaseModel
	GameID      string     `gorm:"uniqueIndex;size:64;not null" json:"game_id"`
	ChatID      string     `gorm:"size:64;not null;index" json:"chat_id"`
	GameType    GameType   `gorm:"size:30;not null" json:"game_type"`
	Player1ID   int64      `gorm:"not null;index" json:"player1_id"` // 发起者，先手
	Player2ID   int64      `gorm:"not null;index" json:"player2_id"`
	Bet         int        `gorm:"not null" json:"bet"`
	Status      GameStatus `gorm:"size:20;not null;default:'active';index" json:"status"`
	CurrentTurn int64      `gorm:"not null" json:"current_turn"`
	State       JSONMap    `gorm:"type:json" json:"state"` // 引擎状态，内含类型标签
	WinnerID    *int64     `json:"winner_id,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// TableName 指定表名
func (ActiveGame) TableName() string {
	return "active_games"
}

// IsParticipant 检查用户是否为对局参与者
func (g *ActiveGame) IsParticipant(userID int64) bool {
	return g.Player1ID == userID || g.Player2ID == userID
}

// Opponent 返回对手ID
func (g *ActiveGame) Opponent(userID int64) int64 {
	if g.Player1ID == userID {
		return g.Player2ID
	}
	return g.Player1ID
}
