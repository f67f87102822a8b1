package repository

import (
	"context"

	"coursenotify/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserPreferenceRepository stores keyed per-user flags such as the one-click unsubscribe marker.
type UserPreferenceRepository struct {
	db *gorm.DB
}

func NewUserPreferenceRepository(db *gorm.DB) *UserPreferenceRepository {
	return &UserPreferenceRepository{db: db}
}

func (r *UserPreferenceRepository) WithTx(tx *gorm.DB) *UserPreferenceRepository {
	return &UserPreferenceRepository{db: tx}
}

func (r *UserPreferenceRepository) Has(ctx context.Context, userID uint, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserPreference{}).
		Where("user_id = ? AND `key` = ?", userID, key).Count(&count).Error
	return count > 0, err
}

func (r *UserPreferenceRepository) Set(ctx context.Context, userID uint, key, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.UserPreference{UserID: userID, Key: key, Value: value}).Error
}

// Delete removes the key and reports how many rows were deleted.
func (r *UserPreferenceRepository) Delete(ctx context.Context, userID uint, key string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND `key` = ?", userID, key).Delete(&models.UserPreference{})
	return res.RowsAffected, res.Error
}

func (r *UserPreferenceRepository) Count(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserPreference{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
