package course

import (
	"time"

	"gorm.io/gorm"
)

// CourseProgress is a user's completion percentage for a course. The
// composite unique index makes it one row per (user, course); the row is
// the source of truth for the completion transition.
type CourseProgress struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"uniqueIndex:idx_user_course;not null"`
	CourseID    uint       `json:"course_id" gorm:"uniqueIndex:idx_user_course;not null"`
	Percentage  int        `json:"percentage" gorm:"default:0"` // 0-100
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"` // set exactly once, on first reaching 100
	IsDeleted   bool       `gorm:"default:false"`
}
