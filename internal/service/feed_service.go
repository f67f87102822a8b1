package service

import (
	"context"
	"iter"
	"time"

	"coursenotify/config"
	"coursenotify/internal/catalog"
	"coursenotify/internal/domain"
	"coursenotify/internal/models"
	"coursenotify/internal/repository"
)

// feedBatchSize is how many rows List fetches per round trip.
const feedBatchSize = 100

// FeedFilter narrows List.
type FeedFilter struct {
	AppName  string
	Channels []string
}

// CountResult is the unseen-count summary for the tray badge.
type CountResult struct {
	Count                  int64            `json:"count"`
	CountByAppName         map[string]int64 `json:"count_by_app_name"`
	ShowNotificationsTray  bool             `json:"show_notifications_tray"`
	NotificationExpiryDays int              `json:"notification_expiry_days"`
}

// ReadTarget selects what mark-read applies to. NotificationID wins over AppName.
type ReadTarget struct {
	AppName        string `json:"app_name"`
	NotificationID uint   `json:"notification_id"`
}

type FeedService struct {
	repo    *repository.NotificationRepository
	courses *repository.CoursePreferenceRepository
	catalog *catalog.Catalog
	cfg     config.NotificationsConfig
	now     func() time.Time
}

func NewFeedService(repo *repository.NotificationRepository, courses *repository.CoursePreferenceRepository, cat *catalog.Catalog, cfg config.NotificationsConfig) *FeedService {
	return &FeedService{repo: repo, courses: courses, catalog: cat, cfg: cfg, now: time.Now}
}

func (s *FeedService) since() time.Time {
	if s.cfg.ExpiryDays <= 0 {
		return time.Time{}
	}
	return s.now().AddDate(0, 0, -s.cfg.ExpiryDays)
}

// List yields the user's unexpired notifications, newest first. Rows are fetched lazily in batches
// as the caller ranges; a sequence is meant to be consumed once.
func (s *FeedService) List(ctx context.Context, userID uint, f FeedFilter) iter.Seq2[models.Notification, error] {
	filter := repository.NotificationFilter{AppName: f.AppName, Channels: f.Channels, Since: s.since()}
	return func(yield func(models.Notification, error) bool) {
		var before uint
		for {
			page, err := s.repo.Page(ctx, userID, filter, before, feedBatchSize)
			if err != nil {
				yield(models.Notification{}, err)
				return
			}
			for _, n := range page {
				if !yield(n, nil) {
					return
				}
			}
			if len(page) < feedBatchSize {
				return
			}
			before = page[len(page)-1].ID
		}
	}
}

// Count returns unseen web notifications per app. Every catalog app is present, at zero if needed.
func (s *FeedService) Count(ctx context.Context, userID uint) (*CountResult, error) {
	byApp, err := s.repo.CountUnseenByApp(ctx, userID, repository.NotificationFilter{
		Channels: []string{domain.ChannelWeb},
		Since:    s.since(),
	})
	if err != nil {
		return nil, err
	}
	res := &CountResult{CountByAppName: map[string]int64{}, NotificationExpiryDays: s.cfg.ExpiryDays}
	for _, name := range s.catalog.AppNames() {
		res.CountByAppName[name] = 0
	}
	for app, n := range byApp {
		res.CountByAppName[app] = n
		res.Count += n
	}
	if s.cfg.ShowTray {
		active, err := s.courses.CountActive(ctx, userID)
		if err != nil {
			return nil, err
		}
		res.ShowNotificationsTray = active > 0
	}
	return res, nil
}

// MarkSeen stamps every unseen notification of the app as seen.
func (s *FeedService) MarkSeen(ctx context.Context, userID uint, appName string) (int64, error) {
	return s.repo.MarkSeen(ctx, userID, appName, s.now())
}

// MarkRead marks one notification, or every unread notification of a catalog app, as read.
// It returns the number of notifications updated.
func (s *FeedService) MarkRead(ctx context.Context, userID uint, target ReadTarget) (int64, error) {
	if target.NotificationID != 0 {
		n, err := s.repo.GetForUser(ctx, target.NotificationID, userID)
		if err != nil {
			return 0, err
		}
		if err := s.repo.MarkRead(ctx, n.ID, s.now()); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if target.AppName == "" || !s.catalog.HasApp(target.AppName) {
		return 0, domain.ErrNoTarget
	}
	return s.repo.MarkAppRead(ctx, userID, target.AppName, s.now())
}
