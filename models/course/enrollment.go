package course

import "gorm.io/gorm"

// Enrollment tracks a user's registration in a course. Completion state
// lives on CourseProgress, not here.
type Enrollment struct {
	gorm.Model
	UserID    uint   `json:"user_id" gorm:"uniqueIndex:idx_user_course_enroll;not null"`
	CourseID  uint   `json:"course_id" gorm:"uniqueIndex:idx_user_course_enroll;not null"`
	Status    string `json:"status" gorm:"default:'ENROLLED'"` // ENROLLED, CANCELLED
	IsDeleted bool   `gorm:"default:false"`
}
