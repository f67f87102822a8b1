package repository

import (
	"context"

	"coursenotify/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleRepository answers capability checks from the course_roles table.
type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// HasRole reports whether the user holds any of roles in courseID. An empty courseID matches
// a grant in any course.
func (r *RoleRepository) HasRole(ctx context.Context, userID uint, courseID string, roles ...string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	q := r.db.WithContext(ctx).Model(&models.CourseRole{}).Where("user_id = ? AND role IN ?", userID, roles)
	if courseID != "" {
		q = q.Where("course_id = ?", courseID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RoleRepository) Grant(ctx context.Context, userID uint, courseID, role string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CourseRole{UserID: userID, CourseID: courseID, Role: role}).Error
}

func (r *RoleRepository) Revoke(ctx context.Context, userID uint, courseID, role string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND role = ?", userID, courseID, role).
		Delete(&models.CourseRole{}).Error
}
