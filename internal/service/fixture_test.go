package service

import (
	"context"
	"testing"
	"time"

	"coursenotify/config"
	"coursenotify/internal/catalog"
	"coursenotify/internal/database/dbtest"
	"coursenotify/internal/domain"
	"coursenotify/internal/models"
	"coursenotify/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	cat     *catalog.Catalog
	roles   *repository.RoleRepository
	courses *repository.CoursePreferenceRepository
	flat    *repository.NotificationPreferenceRepository
	markers *repository.UserPreferenceRepository
	views   *AggregationService
	patches *PatchService
	enroll  *EnrollmentService
	unsub   *UnsubscribeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	cat := catalog.Default()
	roles := repository.NewRoleRepository(db)
	views := NewAggregationService(db, cat, roles)
	return &fixture{
		db:      db,
		cat:     cat,
		roles:   roles,
		courses: repository.NewCoursePreferenceRepository(db),
		flat:    repository.NewNotificationPreferenceRepository(db),
		markers: repository.NewUserPreferenceRepository(db),
		views:   views,
		patches: NewPatchService(db, views, 3),
		enroll:  NewEnrollmentService(db, cat),
		unsub:   NewUnsubscribeService(db, cat, config.UnsubscribeConfig{Secret: "test-secret", TokenTTL: time.Hour}),
	}
}

// enrollAll creates active records for the user in every course.
func (f *fixture) enrollAll(t *testing.T, userID uint, courses ...string) {
	t.Helper()
	for _, c := range courses {
		_, err := f.enroll.Handle(context.Background(), EnrollmentEvent{UserID: userID, CourseID: c, IsActive: true})
		require.NoError(t, err)
	}
}

func (f *fixture) tree(t *testing.T, userID uint, courseID string) domain.PreferenceConfig {
	t.Helper()
	rec, err := f.courses.Get(context.Background(), userID, courseID)
	require.NoError(t, err)
	return rec.Tree()
}

// snapshot captures every stored course tree and flat row of the user.
func (f *fixture) snapshot(t *testing.T, userID uint) (map[string]domain.PreferenceConfig, []models.NotificationPreference) {
	t.Helper()
	var recs []models.CoursePreference
	require.NoError(t, f.db.Where("user_id = ?", userID).Find(&recs).Error)
	trees := map[string]domain.PreferenceConfig{}
	for _, r := range recs {
		trees[r.CourseID] = r.Tree()
	}
	flat, err := f.flat.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	for i := range flat {
		flat[i].UpdatedAt = flat[i].CreatedAt
	}
	return trees, flat
}

func (f *fixture) markerCount(t *testing.T, userID uint) int64 {
	t.Helper()
	n, err := f.markers.Count(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func boolPatch(app, typ, channel string, v bool) PatchRequest {
	return PatchRequest{NotificationApp: app, NotificationType: typ, NotificationChannel: channel, Value: v}
}
