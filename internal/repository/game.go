package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
)

// GameRepository 对战游戏仓储接口
type GameRepository interface {
	BaseRepository
	// Create 创建对局，同一聊天已有进行中对局时返回ErrGameInProgress
	Create(ctx context.Context, game *models.ActiveGame) error
	GetByGameID(ctx context.Context, gameID string) (*models.ActiveGame, error)
	// GetActiveByChatID 查找聊天中进行中的对局
	GetActiveByChatID(ctx context.Context, chatID string) (*models.ActiveGame, error)
	// UpdateState 写回引擎状态与当前回合
	UpdateState(ctx context.Context, gameID string, state models.JSONMap, currentTurn int64) error
	// Finish 结束对局（仅对进行中的对局生效）
	Finish(ctx context.Context, gameID string, winnerID *int64) error
	// VoidActiveByChatID 作废聊天中进行中的对局，返回被作废的对局
	VoidActiveByChatID(ctx context.Context, chatID string) (*models.ActiveGame, error)
}

// gameRepo 对战游戏仓储实现
type gameRepo struct {
	*BaseRepo
}

// NewGameRepository 创建对战游戏仓储
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建对局
func (r *gameRepo) Create(ctx context.Context, game *models.ActiveGame) error {
	// 同一聊天至多一个未终止对局
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ActiveGame{}).
		Where("chat_id = ? AND status = ?", game.ChatID, models.GameStatusActive).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if count > 0 {
		return apperrors.New(apperrors.ErrGameInProgress)
	}

	if err := r.db.WithContext(ctx).Create(game).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return nil
}

// GetByGameID 根据对局ID查找
func (r *gameRepo) GetByGameID(ctx context.Context, gameID string) (*models.ActiveGame, error) {
	var game models.ActiveGame
	err := r.db.WithContext(ctx).Where("game_id = ?", gameID).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrGameNotFound)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &game, nil
}

// GetActiveByChatID 查找聊天中进行中的对局
func (r *gameRepo) GetActiveByChatID(ctx context.Context, chatID string) (*models.ActiveGame, error) {
	var game models.ActiveGame
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND status = ?", chatID, models.GameStatusActive).
		First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrGameNotFound)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &game, nil
}

// UpdateState 写回引擎状态
func (r *gameRepo) UpdateState(ctx context.Context, gameID string, state models.JSONMap, currentTurn int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.ActiveGame{}).
		Where("game_id = ? AND status = ?", gameID, models.GameStatusActive).
		Updates(map[string]interface{}{
			"state":        state,
			"current_turn": currentTurn,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrGameEnded)
	}
	return nil
}

// Finish 结束对局（winnerID为nil表示平局）
func (r *gameRepo) Finish(ctx context.Context, gameID string, winnerID *int64) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.ActiveGame{}).
		Where("game_id = ? AND status = ?", gameID, models.GameStatusActive).
		Updates(map[string]interface{}{
			"status":      models.GameStatusFinished,
			"winner_id":   winnerID,
			"finished_at": now,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrGameEnded)
	}
	return nil
}

// VoidActiveByChatID 作废进行中的对局（无胜者，不结算）
func (r *gameRepo) VoidActiveByChatID(ctx context.Context, chatID string) (*models.ActiveGame, error) {
	var game models.ActiveGame
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND status = ?", chatID, models.GameStatusActive).
		First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.ActiveGame{}).
		Where("id = ? AND status = ?", game.ID, models.GameStatusActive).
		Updates(map[string]interface{}{
			"status":      models.GameStatusVoided,
			"finished_at": now,
		})
	if result.Error != nil {
		return nil, apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}

	game.Status = models.GameStatusVoided
	game.FinishedAt = &now
	return &game, nil
}

// WithTx 使用事务
func (r *gameRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
