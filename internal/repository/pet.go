package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
)

// PetRepository 宠物仓储接口
type PetRepository interface {
	BaseRepository
	// Add 购入宠物，数量达到maxPets时返回ErrMaxPetsReached
	Add(ctx context.Context, userID int64, petType string, uses int, maxPets int) (*models.Pet, error)
	Count(ctx context.Context, userID int64) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Pet, error)
	// ConsumeOldest 消耗最早购入宠物的一次保护，返回被消耗的宠物；无宠物返回nil
	ConsumeOldest(ctx context.Context, userID int64) (*models.Pet, error)
}

// petRepo 宠物仓储实现
type petRepo struct {
	*BaseRepo
}

// NewPetRepository 创建宠物仓储
func NewPetRepository(db *gorm.DB) PetRepository {
	return &petRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Add 购入宠物
func (r *petRepo) Add(ctx context.Context, userID int64, petType string, uses int, maxPets int) (*models.Pet, error) {
	if uses <= 0 {
		uses = 1
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if count >= int64(maxPets) {
		return nil, apperrors.Newf(apperrors.ErrMaxPetsReached, "上限%d只", maxPets)
	}

	pet := &models.Pet{
		UserID:   userID,
		PetType:  petType,
		UsesLeft: uses,
	}
	if err := r.db.WithContext(ctx).Create(pet).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return pet, nil
}

// Count 宠物数量
func (r *petRepo) Count(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count, nil
}

// List 按购入顺序列出宠物
func (r *petRepo) List(ctx context.Context, userID int64) ([]*models.Pet, error) {
	var pets []*models.Pet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&pets).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return pets, nil
}

// ConsumeOldest 消耗最早购入的宠物
func (r *petRepo) ConsumeOldest(ctx context.Context, userID int64) (*models.Pet, error) {
	var pet models.Pet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		First(&pet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	if pet.UsesLeft > 1 {
		// 多次使用的宠物扣减次数
		if err := r.db.WithContext(ctx).
			Model(&models.Pet{}).
			Where("id = ?", pet.ID).
			Update("uses_left", gorm.Expr("uses_left - 1")).Error; err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		pet.UsesLeft--
		return &pet, nil
	}

	// 次数耗尽直接移除
	if err := r.db.WithContext(ctx).Unscoped().Delete(&pet).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseDelete)
	}
	pet.UsesLeft = 0
	return &pet, nil
}

// WithTx 使用事务
func (r *petRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &petRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
