package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CertificationCoordinator decides idempotently whether a completed course
// earns a new certificate, renders it and persists it. Safe to call
// concurrently and repeatedly for the same (user, course) pair: the
// composite unique index on certificates is the arbiter, not any
// in-process lock.
type CertificationCoordinator struct {
	db       *gorm.DB
	policy   EligibilityPolicy
	renderer *CertificateRenderer
}

// NewCertificationCoordinator builds a coordinator on the given database
// and renderer.
func NewCertificationCoordinator(db *gorm.DB, renderer *CertificateRenderer) *CertificationCoordinator {
	return &CertificationCoordinator{db: db, renderer: renderer}
}

// IssueIfEligible returns the certificate for the given completed progress,
// issuing a new one when none exists and the course level qualifies. The
// second return value reports whether this call created the certificate;
// callers fan out the issuance event only when it did.
//
// Returns (nil, false, nil) for incomplete progress or ineligible courses.
func (cc *CertificationCoordinator) IssueIfEligible(ctx context.Context, progress *courseModels.CourseProgress) (*courseModels.Certificate, bool, error) {
	// Defensive: never trust the caller's transition detection.
	if progress == nil || progress.Percentage < 100 || progress.CompletedAt == nil {
		return nil, false, nil
	}

	db := cc.db.WithContext(ctx)

	// Already issued? Return it unchanged.
	var existing courseModels.Certificate
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", progress.UserID, progress.CourseID, false).First(&existing).Error; err == nil {
		return &existing, false, nil
	}

	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", progress.CourseID, false).First(&course).Error; err != nil {
		return nil, false, fmt.Errorf("%w: course %d", ErrNotFound, progress.CourseID)
	}

	eligible, err := cc.policy.IsEligible(course.Level)
	if err != nil {
		return nil, false, err
	}
	if !eligible {
		// Expected outcome for entry-level courses, not an error.
		return nil, false, nil
	}

	var learner models.User
	if err := db.Where("id = ? AND is_deleted = ?", progress.UserID, false).First(&learner).Error; err != nil {
		return nil, false, fmt.Errorf("%w: user %d", ErrNotFound, progress.UserID)
	}

	issuedAt := time.Now()
	number := "CERT-" + uuid.NewString()

	location, err := cc.renderer.Render(learner.Name, course.Title, number, issuedAt)
	if err != nil {
		return nil, false, err
	}

	certificate := courseModels.Certificate{
		UserID:            progress.UserID,
		CourseID:          progress.CourseID,
		CertificateURL:    location,
		CertificateNumber: number,
		IssuedAt:          issuedAt,
	}
	if err := db.Create(&certificate).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent issuer; the winner's row is
			// the certificate.
			var winner courseModels.Certificate
			if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", progress.UserID, progress.CourseID, false).First(&winner).Error; err != nil {
				return nil, false, fmt.Errorf("re-read certificate for user %d course %d: %w", progress.UserID, progress.CourseID, err)
			}
			return &winner, false, nil
		}
		return nil, false, fmt.Errorf("save certificate for user %d course %d: %w", progress.UserID, progress.CourseID, err)
	}

	return &certificate, true, nil
}
