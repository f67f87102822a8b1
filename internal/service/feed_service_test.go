package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"coursenotify/config"
	"coursenotify/internal/domain"
	"coursenotify/internal/models"
	"coursenotify/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFeed(t *testing.T, f *fixture, cfg config.NotificationsConfig) (*FeedService, *repository.NotificationRepository) {
	t.Helper()
	repo := repository.NewNotificationRepository(f.db)
	feed := NewFeedService(repo, f.courses, f.cat, cfg)
	feed.now = func() time.Time { return feedNow }
	return feed, repo
}

func addNotification(t *testing.T, repo *repository.NotificationRepository, n models.Notification) *models.Notification {
	t.Helper()
	if n.NotificationType == "" {
		n.NotificationType = "new_response"
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = feedNow.Add(-time.Hour)
	}
	require.NoError(t, repo.Create(context.Background(), &n))
	return &n
}

func collect(t *testing.T, feed *FeedService, userID uint, filter FeedFilter) []models.Notification {
	t.Helper()
	var out []models.Notification
	for n, err := range feed.List(context.Background(), userID, filter) {
		require.NoError(t, err)
		out = append(out, n)
	}
	return out
}

func TestFeedList_FiltersAndExpiry(t *testing.T) {
	f := newFixture(t)
	feed, repo := newFeed(t, f, config.NotificationsConfig{ExpiryDays: 30})

	web := addNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", Web: true})
	email := addNotification(t, repo, models.Notification{UserID: 1, AppName: "updates", NotificationType: "course_updates", Email: true})
	addNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", Web: true, CreatedAt: feedNow.AddDate(0, 0, -31)})
	addNotification(t, repo, models.Notification{UserID: 2, AppName: "discussion", Web: true})

	all := collect(t, feed, 1, FeedFilter{})
	require.Len(t, all, 2, "expired and foreign rows hidden")
	assert.Equal(t, email.ID, all[0].ID)
	assert.Equal(t, web.ID, all[1].ID)

	assert.Len(t, collect(t, feed, 1, FeedFilter{Channels: []string{"web"}}), 1)
	assert.Len(t, collect(t, feed, 1, FeedFilter{Channels: []string{"web", "email"}}), 2)
	assert.Empty(t, collect(t, feed, 1, FeedFilter{Channels: []string{"push"}}))
	assert.Len(t, collect(t, feed, 1, FeedFilter{AppName: "updates"}), 1)
}

func TestFeedList_BatchesLazily(t *testing.T) {
	f := newFixture(t)
	feed, repo := newFeed(t, f, config.NotificationsConfig{})

	for i := 0; i < feedBatchSize+25; i++ {
		addNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", Web: true})
	}

	all := collect(t, feed, 1, FeedFilter{})
	require.Len(t, all, feedBatchSize+25)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].ID, all[i].ID)
	}

	n := 0
	for range feed.List(context.Background(), 1, FeedFilter{}) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestFeedCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	feed, repo := newFeed(t, f, config.NotificationsConfig{ExpiryDays: 30, ShowTray: true})

	res, err := feed.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Count)
	assert.Equal(t, map[string]int64{"discussion": 0, "updates": 0, "grading": 0, "enrollments": 0}, res.CountByAppName)
	assert.False(t, res.ShowNotificationsTray, "no active course")
	assert.Equal(t, 30, res.NotificationExpiryDays)

	f.enrollAll(t, 1, "c1")
	addNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", Web: true})
	addNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", Web: true})
	addNotification(t, repo, models.Notification{UserID: 1, AppName: "grading", NotificationType: "ora_grade_assigned", Web: true, Email: true})
	addNotification(t, repo, models.Notification{UserID: 1, AppName: "updates", NotificationType: "course_updates", Email: true})
	addNotification(t, repo, models.Notification{UserID: 1, AppName: "updates", NotificationType: "course_updates", Web: true, CreatedAt: feedNow.AddDate(0, 0, -40)})

	res, err = feed.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Count)
	assert.Equal(t, int64(2), res.CountByAppName["discussion"])
	assert.Equal(t, int64(1), res.CountByAppName["grading"])
	assert.Equal(t, int64(0), res.CountByAppName["updates"], "email-only and expired rows not counted")
	assert.True(t, res.ShowNotificationsTray)

	seen, err := feed.MarkSeen(ctx, 1, "discussion")
	require.NoError(t, err)
	assert.Equal(t, int64(2), seen)

	res, err = feed.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)
}

func TestFeedCount_TrayDisabled(t *testing.T) {
	f := newFixture(t)
	feed, _ := newFeed(t, f, config.NotificationsConfig{ShowTray: false})
	f.enrollAll(t, 1, "c1")

	res, err := feed.Count(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, res.ShowNotificationsTray)
}

func TestFeedMarkRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	feed, repo := newFeed(t, f, config.NotificationsConfig{})

	mine := addNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", Web: true})
	addNotification(t, repo, models.Notification{UserID: 1, AppName: "discussion", Web: true})
	addNotification(t, repo, models.Notification{UserID: 1, AppName: "grading", NotificationType: "ora_grade_assigned", Web: true})
	theirs := addNotification(t, repo, models.Notification{UserID: 2, AppName: "discussion", Web: true})

	// the id wins even when app_name names something else
	n, err := feed.MarkRead(ctx, 1, ReadTarget{NotificationID: mine.ID, AppName: "grading"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err := repo.GetForUser(ctx, mine.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, got.LastRead)
	assert.True(t, got.LastRead.Equal(feedNow))

	_, err = feed.MarkRead(ctx, 1, ReadTarget{NotificationID: theirs.ID})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	n, err = feed.MarkRead(ctx, 1, ReadTarget{AppName: "discussion"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "already-read rows are not counted again")

	_, err = feed.MarkRead(ctx, 1, ReadTarget{AppName: "nope"})
	assert.True(t, errors.Is(err, domain.ErrNoTarget))
	_, err = feed.MarkRead(ctx, 1, ReadTarget{})
	assert.True(t, errors.Is(err, domain.ErrNoTarget))
}
