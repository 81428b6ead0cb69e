package course

import (
	"time"

	"gorm.io/gorm"
)

// Certificate represents an issued certificate for course completion.
// The composite unique index enforces at most one certificate per
// (user, course) pair at the storage layer; insert races are resolved by
// re-reading the winner.
type Certificate struct {
	gorm.Model
	UserID            uint      `json:"user_id" gorm:"uniqueIndex:idx_user_course_cert;not null"`
	CourseID          uint      `json:"course_id" gorm:"uniqueIndex:idx_user_course_cert;not null"`
	CertificateURL    string    `json:"certificate_url"`
	CertificateNumber string    `json:"certificate_number" gorm:"unique"`
	IssuedAt          time.Time `json:"issued_at"`
	IsDeleted         bool      `gorm:"default:false"`
}
