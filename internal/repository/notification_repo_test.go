package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"coursenotify/internal/database/dbtest"
	"coursenotify/internal/domain"
	"coursenotify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNotification(t *testing.T, repo *NotificationRepository, n models.Notification) *models.Notification {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &n))
	return &n
}

func ids(list []models.Notification) []uint {
	out := make([]uint, len(list))
	for i, n := range list {
		out[i] = n.ID
	}
	return out
}

func TestNotificationRepository_PageChannelFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(dbtest.New(t))

	webOnly := seedNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", NotificationType: "new_response", Web: true})
	emailOnly := seedNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", NotificationType: "new_response", Email: true})
	neither := seedNotification(t, repo, models.Notification{UserID: 1, AppName: "updates", NotificationType: "course_updates"})
	seedNotification(t, repo, models.Notification{UserID: 2, AppName: "discussion", NotificationType: "new_response", Web: true})

	all, err := repo.Page(ctx, 1, NotificationFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{neither.ID, emailOnly.ID, webOnly.ID}, ids(all))

	web, err := repo.Page(ctx, 1, NotificationFilter{Channels: []string{domain.ChannelWeb}}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{webOnly.ID}, ids(web))

	either, err := repo.Page(ctx, 1, NotificationFilter{Channels: []string{domain.ChannelWeb, domain.ChannelEmail}}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{emailOnly.ID, webOnly.ID}, ids(either))

	push, err := repo.Page(ctx, 1, NotificationFilter{Channels: []string{domain.ChannelPush}}, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, push)

	app, err := repo.Page(ctx, 1, NotificationFilter{AppName: "updates"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{neither.ID}, ids(app))
}

func TestNotificationRepository_PageKeyset(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(dbtest.New(t))
	for i := 0; i < 5; i++ {
		seedNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", NotificationType: "new_response", Web: true})
	}

	first, err := repo.Page(ctx, 1, NotificationFilter{}, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	next, err := repo.Page(ctx, 1, NotificationFilter{}, first[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Less(t, next[0].ID, first[1].ID)
}

func TestNotificationRepository_Since(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := NewNotificationRepository(db)

	old := seedNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", NotificationType: "new_response", Web: true})
	require.NoError(t, db.Model(old).Update("created_at", time.Now().AddDate(0, 0, -61)).Error)
	fresh := seedNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", NotificationType: "new_response", Web: true})

	list, err := repo.Page(ctx, 1, NotificationFilter{Since: time.Now().AddDate(0, 0, -60)}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{fresh.ID}, ids(list))
}

func TestNotificationRepository_CountAndMark(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(dbtest.New(t))

	seedNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", NotificationType: "new_response", Web: true})
	seedNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", NotificationType: "new_comment", Web: true})
	seedNotification(t, repo, models.Notification{UserID: 1, AppName: "updates", NotificationType: "course_updates", Web: true})
	seedNotification(t, repo, models.Notification{UserID: 1, AppName: "updates", NotificationType: "course_updates", Email: true})

	counts, err := repo.CountUnseenByApp(ctx, 1, NotificationFilter{Channels: []string{domain.ChannelWeb}})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"discussion": 2, "updates": 1}, counts)

	n, err := repo.MarkSeen(ctx, 1, "discussion", time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	counts, err = repo.CountUnseenByApp(ctx, 1, NotificationFilter{Channels: []string{domain.ChannelWeb}})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"updates": 1}, counts)

	n, err = repo.MarkAppRead(ctx, 1, "updates", time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestNotificationRepository_GetForUser(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(dbtest.New(t))
	n := seedNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", NotificationType: "new_response", Web: true})

	got, err := repo.GetForUser(ctx, n.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)

	_, err = repo.GetForUser(ctx, n.ID, 2)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, repo.MarkRead(ctx, n.ID, time.Now()))
	got, err = repo.GetForUser(ctx, n.ID, 1)
	require.NoError(t, err)
	assert.NotNil(t, got.LastRead)
}
