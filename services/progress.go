package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	courseModels "lms/models/course"

	"gorm.io/gorm"
)

// CompletionHook runs after a progress write has durably crossed into the
// completed state. Hooks are failure-isolated: an error or panic is logged
// and never reverts or fails the progress update that triggered it.
type CompletionHook func(ctx context.Context, progress *courseModels.CourseProgress) error

// ProgressService is the sole mutation entry point for course progress.
type ProgressService struct {
	db    *gorm.DB
	hooks []CompletionHook
}

// NewProgressService builds the service on the given database.
func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{db: db}
}

// OnCompletion registers a hook to run when a progress update first
// reaches 100%. Registration order is invocation order.
func (s *ProgressService) OnCompletion(hook CompletionHook) {
	s.hooks = append(s.hooks, hook)
}

// Update writes the learner's percentage for a course and, on the
// transition into the completed state, invokes the completion hooks. The
// percentage write is the source of truth: hook failures are logged, never
// propagated.
//
// The completion transition is derived from the old-vs-new comparison
// within this call. A record already at 100, or one whose CompletedAt is
// set, never re-triggers the hooks; a percentage regression is stored but
// cannot re-arm them either.
func (s *ProgressService) Update(ctx context.Context, userID, courseID uint, percentage int) (*courseModels.CourseProgress, error) {
	if percentage < 0 || percentage > 100 {
		return nil, fmt.Errorf("%w: percentage %d out of range [0, 100]", ErrInvalidArgument, percentage)
	}

	db := s.db.WithContext(ctx)

	var enrollment courseModels.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND status = ? AND is_deleted = ?", userID, courseID, "ENROLLED", false).First(&enrollment).Error; err != nil {
		return nil, fmt.Errorf("%w: no active enrollment for user %d in course %d", ErrNotFound, userID, courseID)
	}

	var progress courseModels.CourseProgress
	err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = courseModels.CourseProgress{
			UserID:    userID,
			CourseID:  courseID,
			StartedAt: time.Now(),
		}
		if createErr := db.Create(&progress).Error; createErr != nil {
			if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("create progress for user %d course %d: %w", userID, courseID, createErr)
			}
			// A concurrent writer created the row first; use theirs.
			if readErr := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).First(&progress).Error; readErr != nil {
				return nil, fmt.Errorf("re-read progress for user %d course %d: %w", userID, courseID, readErr)
			}
		}
	} else if err != nil {
		return nil, fmt.Errorf("load progress for user %d course %d: %w", userID, courseID, err)
	}

	previous := progress.Percentage
	justCompleted := previous < 100 && percentage == 100 && progress.CompletedAt == nil

	progress.Percentage = percentage
	if justCompleted {
		now := time.Now()
		progress.CompletedAt = &now
	}

	if err := db.Save(&progress).Error; err != nil {
		return nil, fmt.Errorf("save progress for user %d course %d: %w", userID, courseID, err)
	}

	if justCompleted {
		s.runCompletionHooks(ctx, &progress)
	}

	return &progress, nil
}

// RecomputeFromCompletions derives the percentage from content completion
// counts and funnels it through Update, so the completion transition and
// its hooks behave identically for content-driven progress.
func (s *ProgressService) RecomputeFromCompletions(ctx context.Context, userID, courseID uint) (*courseModels.CourseProgress, error) {
	db := s.db.WithContext(ctx)

	var totalContent int64
	var completedContent int64
	db.Model(&courseModels.CourseContent{}).Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).Count(&totalContent)
	db.Model(&courseModels.ContentCompletion{}).Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).Count(&completedContent)

	percentage := 0
	if totalContent > 0 {
		percentage = int(completedContent * 100 / totalContent)
	}
	return s.Update(ctx, userID, courseID, percentage)
}

// runCompletionHooks invokes each hook wrapped for failure isolation.
func (s *ProgressService) runCompletionHooks(ctx context.Context, progress *courseModels.CourseProgress) {
	for _, hook := range s.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[PROGRESS] Completion hook panicked for user %d course %d: %v", progress.UserID, progress.CourseID, r)
				}
			}()
			if err := hook(ctx, progress); err != nil {
				log.Printf("[PROGRESS] Completion hook failed for user %d course %d: %v", progress.UserID, progress.CourseID, err)
			}
		}()
	}
}
