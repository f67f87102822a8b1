package repository

import (
	"context"

	"coursenotify/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationPreferenceRepository stores the flat, course-independent preference layer.
type NotificationPreferenceRepository struct {
	db *gorm.DB
}

func NewNotificationPreferenceRepository(db *gorm.DB) *NotificationPreferenceRepository {
	return &NotificationPreferenceRepository{db: db}
}

func (r *NotificationPreferenceRepository) WithTx(tx *gorm.DB) *NotificationPreferenceRepository {
	return &NotificationPreferenceRepository{db: tx}
}

func (r *NotificationPreferenceRepository) ListByUser(ctx context.Context, userID uint) ([]models.NotificationPreference, error) {
	var list []models.NotificationPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&list).Error
	return list, err
}

// CreateMissing inserts prefs, ignoring rows that already exist for (user, app, type).
func (r *NotificationPreferenceRepository) CreateMissing(ctx context.Context, prefs []models.NotificationPreference) error {
	if len(prefs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&prefs).Error
}

// Save writes the channel columns of p.
func (r *NotificationPreferenceRepository) Save(ctx context.Context, p *models.NotificationPreference) error {
	return r.db.WithContext(ctx).Model(p).
		Select("web", "email", "push", "email_cadence").
		Updates(p).Error
}
