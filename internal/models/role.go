package models

import "time"

// CourseRole grants a forum or course role to a user within a course.
type CourseRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_course_role" json:"user_id"`
	CourseID  string    `gorm:"size:255;not null;uniqueIndex:idx_course_role" json:"course_id"`
	Role      string    `gorm:"size:64;not null;uniqueIndex:idx_course_role" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (CourseRole) TableName() string {
	return "course_roles"
}
