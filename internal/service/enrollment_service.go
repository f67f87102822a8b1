package service

import (
	"context"
	"errors"
	"log"

	"coursenotify/internal/catalog"
	"coursenotify/internal/domain"
	"coursenotify/internal/models"

	"gorm.io/gorm"
)

// EnrollmentEvent is emitted by the enrollment subsystem when an enrollment is created, updated
// or deactivated.
type EnrollmentEvent struct {
	UserID   uint   `json:"user_id" binding:"required"`
	CourseID string `json:"course_id" binding:"required"`
	IsActive bool   `json:"is_active"`
}

// EnrollmentService keeps course preference records in step with enrollments.
type EnrollmentService struct {
	db    *gorm.DB
	store *preferenceStore
}

func NewEnrollmentService(db *gorm.DB, cat *catalog.Catalog) *EnrollmentService {
	return &EnrollmentService{db: db, store: newPreferenceStore(cat, db)}
}

// Handle creates or reactivates the record for an active enrollment and deactivates it otherwise.
// Records are never deleted. A deactivation for an unknown record is a no-op and returns nil.
func (s *EnrollmentService) Handle(ctx context.Context, ev EnrollmentEvent) (*models.CoursePreference, error) {
	var out *models.CoursePreference
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := s.store.tx(tx)
		rec, err := st.courses.Get(ctx, ev.UserID, ev.CourseID)
		if errors.Is(err, domain.ErrNotFound) {
			if !ev.IsActive {
				return nil
			}
			out, err = st.createCourse(ctx, ev.UserID, ev.CourseID, true)
			if err == nil {
				log.Printf("[enrollments] created preferences for user %d in %s", ev.UserID, ev.CourseID)
			}
			return err
		}
		if err != nil {
			return err
		}
		if rec.IsActive != ev.IsActive {
			if _, err := st.courses.SetActive(ctx, ev.UserID, ev.CourseID, ev.IsActive); err != nil {
				return err
			}
			rec.IsActive = ev.IsActive
			log.Printf("[enrollments] user %d in %s active=%t", ev.UserID, ev.CourseID, ev.IsActive)
		}
		if rec.IsActive {
			if err := st.migrate(ctx, rec); err != nil {
				return err
			}
		}
		out = rec
		return nil
	})
	return out, err
}
