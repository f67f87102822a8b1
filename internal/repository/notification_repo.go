package repository

import (
	"context"
	"time"

	"coursenotify/internal/domain"
	"coursenotify/internal/models"

	"gorm.io/gorm"
)

// NotificationFilter narrows feed queries. Zero values mean "no filter".
type NotificationFilter struct {
	AppName string
	// Channels keeps notifications with at least one of the listed channel flags set.
	Channels []string
	// Since hides notifications created before it.
	Since time.Time
}

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// scoped applies the user and filter conditions. ok is false when the filter can match nothing.
func (r *NotificationRepository) scoped(ctx context.Context, userID uint, f NotificationFilter) (q *gorm.DB, ok bool) {
	q = r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if f.AppName != "" {
		q = q.Where("app_name = ?", f.AppName)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	if len(f.Channels) > 0 {
		var cond *gorm.DB
		for _, ch := range f.Channels {
			var col string
			switch ch {
			case domain.ChannelWeb:
				col = "web = ?"
			case domain.ChannelEmail:
				col = "email = ?"
			default:
				// push and unknown channels are never recorded on a fired notification
				continue
			}
			if cond == nil {
				cond = r.db.Where(col, true)
			} else {
				cond = cond.Or(col, true)
			}
		}
		if cond == nil {
			return nil, false
		}
		q = q.Where(cond)
	}
	return q, true
}

// Page returns up to limit notifications with id below beforeID (0 = from the newest), id descending.
func (r *NotificationRepository) Page(ctx context.Context, userID uint, f NotificationFilter, beforeID uint, limit int) ([]models.Notification, error) {
	q, ok := r.scoped(ctx, userID, f)
	if !ok {
		return nil, nil
	}
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var list []models.Notification
	err := q.Order("id DESC").Limit(limit).Find(&list).Error
	return list, err
}

// CountUnseenByApp counts notifications without last_seen per app name.
func (r *NotificationRepository) CountUnseenByApp(ctx context.Context, userID uint, f NotificationFilter) (map[string]int64, error) {
	out := map[string]int64{}
	q, ok := r.scoped(ctx, userID, f)
	if !ok {
		return out, nil
	}
	var rows []struct {
		AppName string
		Total   int64
	}
	err := q.Where("last_seen IS NULL").
		Select("app_name, COUNT(*) AS total").
		Group("app_name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.AppName] = row.Total
	}
	return out, nil
}

// MarkSeen stamps last_seen on the user's unseen notifications of an app.
func (r *NotificationRepository) MarkSeen(ctx context.Context, userID uint, appName string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND app_name = ? AND last_seen IS NULL", userID, appName).
		Update("last_seen", at)
	return res.RowsAffected, res.Error
}

// MarkAppRead stamps last_read on the user's unread notifications of an app.
func (r *NotificationRepository) MarkAppRead(ctx context.Context, userID uint, appName string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND app_name = ? AND last_read IS NULL", userID, appName).
		Update("last_read", at)
	return res.RowsAffected, res.Error
}

// GetForUser returns the notification only if it belongs to userID; otherwise ErrNotFound.
func (r *NotificationRepository) GetForUser(ctx context.Context, id, userID uint) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		return nil, notFound(err, "notification")
	}
	return &n, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("last_read", at).Error
}
