package service

import (
	"context"
	"errors"
	"testing"

	"coursenotify/internal/domain"
	"coursenotify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsubscribe_EmailOff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enrollAll(t, 1, "c1", "c2")
	_, err := f.views.FlatView(ctx, 1)
	require.NoError(t, err)

	token, err := f.unsub.Link(1, "email", false)
	require.NoError(t, err)
	res, err := f.unsub.Redeem(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), res.UserID)
	assert.Equal(t, 2, res.CoursesUpdated)
	assert.Equal(t, int64(1), f.markerCount(t, 1))

	for _, c := range []string{"c1", "c2"} {
		for app, ac := range f.tree(t, 1, c) {
			for typ, cell := range ac.NotificationTypes {
				assert.False(t, cell.Email, "%s %s.%s", c, app, typ)
			}
		}
	}
	flat, err := f.flat.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, flat)
	for _, p := range flat {
		assert.False(t, p.Email, "%s.%s", p.AppName, p.Type)
	}

	// a later enrollment starts with email off
	f.enrollAll(t, 1, "c3")
	assert.False(t, f.tree(t, 1, "c3")["discussion"].NotificationTypes["core"].Email)
	assert.True(t, f.tree(t, 1, "c3")["discussion"].NotificationTypes["core"].Web)

	// and a second redemption is harmless
	_, err = f.unsub.Redeem(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.markerCount(t, 1))
}

func TestUnsubscribe_EmailOnRemovesMarker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enrollAll(t, 1, "c1")

	_, err := f.unsub.Apply(ctx, 1, "email", false)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.markerCount(t, 1))

	_, err = f.unsub.Apply(ctx, 1, "email", true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.markerCount(t, 1))
	assert.True(t, f.tree(t, 1, "c1")["updates"].NotificationTypes["course_updates"].Email)
}

func TestUnsubscribe_NonEditableUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enrollAll(t, 1, "c1")

	_, err := f.unsub.Apply(ctx, 1, "push", true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.markerCount(t, 1), "only email touches the marker")

	tree := f.tree(t, 1, "c1")
	assert.True(t, tree["enrollments"].NotificationTypes["audit_access_expiring_soon"].Push)
	assert.False(t, tree["discussion"].NotificationTypes["content_reported"].Push)
	assert.False(t, tree["updates"].NotificationTypes["course_updates"].Push)
}

func TestUnsubscribe_MigratesStaleRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	old := domain.PreferenceConfig{
		"updates": {Enabled: true, NotificationTypes: map[string]domain.ChannelSettings{
			"core": {Web: true, Email: true, EmailCadence: domain.CadenceDaily},
		}},
	}
	require.NoError(t, f.courses.Create(ctx, &models.CoursePreference{UserID: 1, CourseID: "c1", IsActive: true, ConfigVersion: 2, Config: jsonTree(old)}))

	_, err := f.unsub.Apply(ctx, 1, "web", false)
	require.NoError(t, err)

	rec, err := f.courses.Get(ctx, 1, "c1")
	require.NoError(t, err)
	assert.Equal(t, f.cat.Version(), rec.ConfigVersion)
	assert.Len(t, rec.Tree(), len(f.cat.AppNames()))
	assert.False(t, rec.Tree()["grading"].NotificationTypes["ora_grade_assigned"].Web)
	assert.True(t, rec.Tree()["updates"].NotificationTypes["core"].Email)
}

func TestUnsubscribe_Rejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.unsub.Redeem(ctx, "not-a-token")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.unsub.Apply(ctx, 1, "email_cadence", false)
	assert.True(t, errors.Is(err, domain.ErrUnknownChannel))

	_, err = f.unsub.Link(1, "sms", false)
	assert.Error(t, err)
}
