package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateRejectsOutOfRangePercentage(t *testing.T) {
	db := setupTestDB(t)
	service := NewProgressService(db)

	for _, percentage := range []int{-1, 101, 250} {
		_, err := service.Update(context.Background(), 1, 1, percentage)
		assert.ErrorIs(t, err, ErrInvalidArgument, "percentage %d", percentage)
	}

	var count int64
	db.Model(&courseModels.CourseProgress{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestUpdateRequiresActiveEnrollment(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	course := createTestCourse(t, db, "Go Basics", courseModels.LevelBeginner)
	service := NewProgressService(db)

	_, err := service.Update(context.Background(), user.ID, course.ID, 50)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCreatesAndAdvancesProgress(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	course := createTestCourse(t, db, "Go Basics", courseModels.LevelBeginner)
	enrollTestUser(t, db, user.ID, course.ID)
	service := NewProgressService(db)

	progress, err := service.Update(context.Background(), user.ID, course.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, progress.Percentage)
	assert.Nil(t, progress.CompletedAt)
	assert.False(t, progress.StartedAt.IsZero())

	progress, err = service.Update(context.Background(), user.ID, course.ID, 70)
	require.NoError(t, err)
	assert.Equal(t, 70, progress.Percentage)
	assert.Nil(t, progress.CompletedAt)

	var count int64
	db.Model(&courseModels.CourseProgress{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCompletionTransitionFiresHooksOnce(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	course := createTestCourse(t, db, "Go Basics", courseModels.LevelBeginner)
	enrollTestUser(t, db, user.ID, course.ID)

	var calls int32
	service := NewProgressService(db)
	service.OnCompletion(func(ctx context.Context, progress *courseModels.CourseProgress) error {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 100, progress.Percentage)
		assert.NotNil(t, progress.CompletedAt)
		return nil
	})

	_, err := service.Update(context.Background(), user.ID, course.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	progress, err := service.Update(context.Background(), user.ID, course.ID, 100)
	require.NoError(t, err)
	require.NotNil(t, progress.CompletedAt)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	completedAt := *progress.CompletedAt

	// Writing 100 again is idempotent for the hooks.
	progress, err = service.Update(context.Background(), user.ID, course.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.NotNil(t, progress.CompletedAt)
	assert.Equal(t, completedAt.Unix(), progress.CompletedAt.Unix())
}

func TestRegressionNeverReArmsCompletion(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	course := createTestCourse(t, db, "Go Basics", courseModels.LevelBeginner)
	enrollTestUser(t, db, user.ID, course.ID)

	var calls int32
	service := NewProgressService(db)
	service.OnCompletion(func(ctx context.Context, progress *courseModels.CourseProgress) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	_, err := service.Update(context.Background(), user.ID, course.ID, 100)
	require.NoError(t, err)

	progress, err := service.Update(context.Background(), user.ID, course.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, progress.Percentage)
	assert.NotNil(t, progress.CompletedAt, "regression keeps the completion stamp")

	_, err = service.Update(context.Background(), user.ID, course.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFailingHookNeverRevertsProgress(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	course := createTestCourse(t, db, "Go Basics", courseModels.LevelBeginner)
	enrollTestUser(t, db, user.ID, course.ID)

	var secondHookRan bool
	service := NewProgressService(db)
	service.OnCompletion(func(ctx context.Context, progress *courseModels.CourseProgress) error {
		return fmt.Errorf("downstream unavailable")
	})
	service.OnCompletion(func(ctx context.Context, progress *courseModels.CourseProgress) error {
		panic("hook panicked")
	})
	service.OnCompletion(func(ctx context.Context, progress *courseModels.CourseProgress) error {
		secondHookRan = true
		return nil
	})

	progress, err := service.Update(context.Background(), user.ID, course.ID, 100)
	require.NoError(t, err)
	assert.True(t, secondHookRan, "later hooks still run after a failure")

	var stored courseModels.CourseProgress
	require.NoError(t, db.First(&stored, progress.ID).Error)
	assert.Equal(t, 100, stored.Percentage)
	assert.NotNil(t, stored.CompletedAt)
}

func TestRecomputeFromCompletionsDerivesPercentage(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	course := createTestCourse(t, db, "Go Basics", courseModels.LevelBeginner)
	enrollTestUser(t, db, user.ID, course.ID)
	service := NewProgressService(db)

	contents := make([]courseModels.CourseContent, 4)
	for i := range contents {
		contents[i] = courseModels.CourseContent{
			CourseID:    course.ID,
			Title:       fmt.Sprintf("Lesson %d", i+1),
			IsPublished: true,
		}
		require.NoError(t, db.Create(&contents[i]).Error)
	}

	markDone := func(contentID uint) {
		completion := courseModels.ContentCompletion{
			UserID:          user.ID,
			CourseID:        course.ID,
			CourseContentID: contentID,
		}
		require.NoError(t, db.Create(&completion).Error)
	}

	markDone(contents[0].ID)
	progress, err := service.RecomputeFromCompletions(context.Background(), user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, progress.Percentage)

	markDone(contents[1].ID)
	markDone(contents[2].ID)
	progress, err = service.RecomputeFromCompletions(context.Background(), user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, progress.Percentage)
	assert.Nil(t, progress.CompletedAt)

	markDone(contents[3].ID)
	progress, err = service.RecomputeFromCompletions(context.Background(), user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, progress.Percentage)
	assert.NotNil(t, progress.CompletedAt)
}

func TestCompletedIntermediateCourseIssuesCertificateAndNotifies(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	course := createTestCourse(t, db, "Concurrency Patterns", courseModels.LevelIntermediate)
	enrollTestUser(t, db, user.ID, course.ID)

	publisher := newStubPublisher()
	mailer := &stubMailer{}
	coordinator := NewCertificationCoordinator(db, NewCertificateRenderer(newMemoryDocStore(), t.TempDir()))
	fanout := NewNotificationFanout(db, publisher, mailer)

	service := NewProgressService(db)
	service.OnCompletion(func(ctx context.Context, progress *courseModels.CourseProgress) error {
		certificate, created, err := coordinator.IssueIfEligible(ctx, progress)
		if err != nil || !created {
			return err
		}
		_, err = fanout.Dispatch(ctx, DomainEvent{
			SubjectID:    progress.UserID,
			Kind:         models.NotificationCertificateIssued,
			Payload:      map[string]interface{}{"certificate_url": certificate.CertificateURL},
			EmailSubject: "Your certificate is ready",
			EmailBody:    "<p>Congratulations!</p>",
		})
		return err
	})

	_, err := service.Update(context.Background(), user.ID, course.ID, 60)
	require.NoError(t, err)

	var certCount, noteCount int64
	db.Model(&courseModels.Certificate{}).Count(&certCount)
	db.Model(&models.Notification{}).Count(&noteCount)
	assert.Equal(t, int64(0), certCount, "no certificate before completion")
	assert.Equal(t, int64(0), noteCount)

	_, err = service.Update(context.Background(), user.ID, course.ID, 100)
	require.NoError(t, err)

	db.Model(&courseModels.Certificate{}).Count(&certCount)
	db.Model(&models.Notification{}).Count(&noteCount)
	assert.Equal(t, int64(1), certCount)
	assert.Equal(t, int64(1), noteCount)
	assert.Equal(t, 1, publisher.published(user.ID))
	assert.Equal(t, 1, mailer.sentCount())
}

func TestCompletedBeginnerCourseIssuesNothing(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	course := createTestCourse(t, db, "Go Basics", courseModels.LevelBeginner)
	enrollTestUser(t, db, user.ID, course.ID)

	coordinator := NewCertificationCoordinator(db, NewCertificateRenderer(newMemoryDocStore(), t.TempDir()))
	fanout := NewNotificationFanout(db, nil, nil)

	service := NewProgressService(db)
	service.OnCompletion(func(ctx context.Context, progress *courseModels.CourseProgress) error {
		_, created, err := coordinator.IssueIfEligible(ctx, progress)
		if err != nil || !created {
			return err
		}
		_, err = fanout.Dispatch(ctx, DomainEvent{SubjectID: progress.UserID, Kind: models.NotificationCertificateIssued})
		return err
	})

	progress, err := service.Update(context.Background(), user.ID, course.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, progress.Percentage)
	assert.NotNil(t, progress.CompletedAt, "progress completes even without a certificate")

	var certCount, noteCount int64
	db.Model(&courseModels.Certificate{}).Count(&certCount)
	db.Model(&models.Notification{}).Count(&noteCount)
	assert.Equal(t, int64(0), certCount)
	assert.Equal(t, int64(0), noteCount)
}

func TestConcurrentCompletionNotifiesExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	course := createTestCourse(t, db, "Distributed Systems", courseModels.LevelAdvanced)
	enrollTestUser(t, db, user.ID, course.ID)

	publisher := newStubPublisher()
	mailer := &stubMailer{}
	coordinator := NewCertificationCoordinator(db, NewCertificateRenderer(newMemoryDocStore(), t.TempDir()))
	fanout := NewNotificationFanout(db, publisher, mailer)

	service := NewProgressService(db)
	service.OnCompletion(func(ctx context.Context, progress *courseModels.CourseProgress) error {
		_, created, err := coordinator.IssueIfEligible(ctx, progress)
		if err != nil || !created {
			return err
		}
		_, err = fanout.Dispatch(ctx, DomainEvent{
			SubjectID:    progress.UserID,
			Kind:         models.NotificationCertificateIssued,
			EmailSubject: "Your certificate is ready",
			EmailBody:    "<p>Congratulations!</p>",
		})
		return err
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			service.Update(context.Background(), user.ID, course.ID, 100)
		}()
	}
	wg.Wait()

	// However the writes interleave, the unique index on certificates
	// guarantees a single issuance, and only the issuing call notifies.
	var certCount, noteCount int64
	db.Model(&courseModels.Certificate{}).Count(&certCount)
	db.Model(&models.Notification{}).Count(&noteCount)
	assert.Equal(t, int64(1), certCount)
	assert.Equal(t, int64(1), noteCount)
	assert.Equal(t, 1, mailer.sentCount())
}
