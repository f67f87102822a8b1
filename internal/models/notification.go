package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is a fired notification shown in the user's tray and feed.
// Rows are never migrated; they fall out of list/count once older than the expiry window.
type Notification struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	UserID           uint              `gorm:"not null;index:idx_notifications_user_app" json:"-"`
	CourseID         string            `gorm:"size:255" json:"course_id"`
	AppName          string            `gorm:"size:64;not null;index:idx_notifications_user_app" json:"app_name"`
	NotificationType string            `gorm:"size:128;not null" json:"notification_type"`
	ContentContext   datatypes.JSONMap `json:"content_context"`
	ContentURL       string            `gorm:"size:1024" json:"content_url"`
	Web              bool              `gorm:"not null" json:"web"`
	Email            bool              `gorm:"not null" json:"email"`
	LastSeen         *time.Time        `json:"last_seen"`
	LastRead         *time.Time        `json:"last_read"`
	CreatedAt        time.Time         `gorm:"index" json:"created"`
}

func (Notification) TableName() string {
	return "notifications"
}
