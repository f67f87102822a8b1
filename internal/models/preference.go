package models

import (
	"time"

	"coursenotify/internal/domain"

	"gorm.io/datatypes"
)

// CoursePreference holds a user's full preference tree for one course. Records are created on
// enrollment activation and only ever deactivated, never deleted.
type CoursePreference struct {
	ID            uint                                       `gorm:"primaryKey" json:"id"`
	UserID        uint                                       `gorm:"not null;uniqueIndex:idx_course_pref_user_course;index:idx_course_pref_user_active" json:"-"`
	CourseID      string                                     `gorm:"size:255;not null;uniqueIndex:idx_course_pref_user_course" json:"course_id"`
	IsActive      bool                                       `gorm:"not null;index:idx_course_pref_user_active" json:"is_active"`
	ConfigVersion int                                        `gorm:"not null" json:"config_version"`
	Revision      int                                        `gorm:"not null" json:"-"` // optimistic concurrency counter
	Config        datatypes.JSONType[domain.PreferenceConfig] `gorm:"not null" json:"notification_preference_config"`
	CreatedAt     time.Time                                  `json:"created"`
	UpdatedAt     time.Time                                  `json:"modified"`
}

func (CoursePreference) TableName() string {
	return "course_notification_preferences"
}

// Tree returns the stored tree. The map is shared with the record; Clone before mutating.
func (p *CoursePreference) Tree() domain.PreferenceConfig {
	return p.Config.Data()
}

// NotificationPreference is the cross-course preference of a user for one real notification type.
// The synthetic "core" type never has a row; it is derived from the core member types.
type NotificationPreference struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;uniqueIndex:idx_notif_pref_user_type" json:"-"`
	AppName      string         `gorm:"size:64;not null;uniqueIndex:idx_notif_pref_user_type" json:"app_name"`
	Type         string         `gorm:"size:128;not null;uniqueIndex:idx_notif_pref_user_type" json:"type"`
	Web          bool           `gorm:"not null" json:"web"`
	Email        bool           `gorm:"not null" json:"email"`
	Push         bool           `gorm:"not null" json:"push"`
	EmailCadence domain.Cadence `gorm:"size:16;not null" json:"email_cadence"`
	CreatedAt    time.Time      `json:"created"`
	UpdatedAt    time.Time      `json:"modified"`
}

func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// Settings returns the channel values as a tree cell.
func (p *NotificationPreference) Settings() domain.ChannelSettings {
	return domain.ChannelSettings{Web: p.Web, Email: p.Email, Push: p.Push, EmailCadence: p.EmailCadence}
}

// Apply copies s into the record.
func (p *NotificationPreference) Apply(s domain.ChannelSettings) {
	p.Web, p.Email, p.Push, p.EmailCadence = s.Web, s.Email, s.Push, s.EmailCadence
}

// UserPreference is a keyed per-user flag. The one-click email unsubscribe marker is stored here.
type UserPreference struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_pref_key" json:"-"`
	Key       string    `gorm:"size:255;not null;uniqueIndex:idx_user_pref_key" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}
