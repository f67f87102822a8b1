package repository

import (
	"context"

	"coursenotify/internal/domain"
	"coursenotify/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CoursePreferenceRepository stores one preference tree per (user, course).
type CoursePreferenceRepository struct {
	db *gorm.DB
}

func NewCoursePreferenceRepository(db *gorm.DB) *CoursePreferenceRepository {
	return &CoursePreferenceRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *CoursePreferenceRepository) WithTx(tx *gorm.DB) *CoursePreferenceRepository {
	return &CoursePreferenceRepository{db: tx}
}

func (r *CoursePreferenceRepository) Get(ctx context.Context, userID uint, courseID string) (*models.CoursePreference, error) {
	var p models.CoursePreference
	err := r.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&p).Error
	if err != nil {
		return nil, notFound(err, "course preference")
	}
	return &p, nil
}

func (r *CoursePreferenceRepository) GetByID(ctx context.Context, id uint) (*models.CoursePreference, error) {
	var p models.CoursePreference
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "course preference")
	}
	return &p, nil
}

// ListActive returns the user's active records ordered by id.
func (r *CoursePreferenceRepository) ListActive(ctx context.Context, userID uint) ([]models.CoursePreference, error) {
	var list []models.CoursePreference
	err := r.db.WithContext(ctx).Where("user_id = ? AND is_active = ?", userID, true).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *CoursePreferenceRepository) CountActive(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CoursePreference{}).
		Where("user_id = ? AND is_active = ?", userID, true).Count(&n).Error
	return n, err
}

func (r *CoursePreferenceRepository) Create(ctx context.Context, p *models.CoursePreference) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// CreateIfMissing inserts p unless a record for (user, course) already exists, and reports whether
// it inserted. p is not updated when it did not.
func (r *CoursePreferenceRepository) CreateIfMissing(ctx context.Context, p *models.CoursePreference) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	return res.RowsAffected > 0, res.Error
}

// SetActive flips is_active for the record and reports how many rows changed.
func (r *CoursePreferenceRepository) SetActive(ctx context.Context, userID uint, courseID string, active bool) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.CoursePreference{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Update("is_active", active)
	return res.RowsAffected, res.Error
}

// SaveTree writes tree and version if the record still has the revision it was read at.
// On success p reflects the stored state; on a lost race ErrStaleRecord is returned and p is untouched.
func (r *CoursePreferenceRepository) SaveTree(ctx context.Context, p *models.CoursePreference, tree domain.PreferenceConfig, version int) error {
	cfg := datatypes.NewJSONType(tree)
	res := r.db.WithContext(ctx).Model(&models.CoursePreference{}).
		Where("id = ? AND revision = ?", p.ID, p.Revision).
		Updates(map[string]interface{}{
			"config":         cfg,
			"config_version": version,
			"revision":       p.Revision + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRecord
	}
	p.Config = cfg
	p.ConfigVersion = version
	p.Revision++
	return nil
}
