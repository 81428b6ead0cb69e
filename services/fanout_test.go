package services

import (
	"context"
	"encoding/json"
	"testing"

	"lms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func certIssuedEvent(userID uint) DomainEvent {
	return DomainEvent{
		SubjectID: userID,
		Kind:      models.NotificationCertificateIssued,
		Payload: map[string]interface{}{
			"course_title":    "Advanced Go",
			"certificate_url": "/certificates/cert-1.html",
		},
		EmailSubject: "Your certificate is ready",
		EmailBody:    "<p>Congratulations!</p>",
	}
}

func TestDispatchPersistsAndDeliversAllChannels(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	publisher := newStubPublisher()
	mailer := &stubMailer{}
	fanout := NewNotificationFanout(db, publisher, mailer)

	notification, err := fanout.Dispatch(context.Background(), certIssuedEvent(user.ID))
	require.NoError(t, err)
	require.NotNil(t, notification)

	assert.True(t, notification.Persisted)
	assert.True(t, notification.RealtimeDelivered)
	assert.True(t, notification.EmailDelivered)
	assert.Equal(t, 1, publisher.published(user.ID))
	assert.Equal(t, 1, mailer.sentCount())
	assert.Equal(t, "asha@example.com", mailer.sent[0].To)

	// The stored row carries the same flags.
	var stored models.Notification
	require.NoError(t, db.First(&stored, notification.ID).Error)
	assert.Equal(t, models.NotificationCertificateIssued, stored.Kind)
	assert.True(t, stored.RealtimeDelivered)
	assert.True(t, stored.EmailDelivered)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(stored.Payload, &payload))
	assert.Equal(t, "Advanced Go", payload["course_title"])
}

func TestDispatchEmailFailureDoesNotAffectOtherChannels(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	publisher := newStubPublisher()
	mailer := &stubMailer{fail: true}
	fanout := NewNotificationFanout(db, publisher, mailer)

	notification, err := fanout.Dispatch(context.Background(), certIssuedEvent(user.ID))
	require.NoError(t, err)

	assert.True(t, notification.Persisted)
	assert.True(t, notification.RealtimeDelivered)
	assert.False(t, notification.EmailDelivered)
	assert.Equal(t, 1, publisher.published(user.ID))
}

func TestDispatchRealtimeFailureDoesNotAffectOtherChannels(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	publisher := newStubPublisher()
	publisher.fail = true
	mailer := &stubMailer{}
	fanout := NewNotificationFanout(db, publisher, mailer)

	notification, err := fanout.Dispatch(context.Background(), certIssuedEvent(user.ID))
	require.NoError(t, err)

	assert.True(t, notification.Persisted)
	assert.False(t, notification.RealtimeDelivered)
	assert.True(t, notification.EmailDelivered)
	assert.Equal(t, 1, mailer.sentCount())
}

func TestDispatchWithoutConfiguredChannels(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	fanout := NewNotificationFanout(db, nil, nil)

	notification, err := fanout.Dispatch(context.Background(), certIssuedEvent(user.ID))
	require.NoError(t, err)

	assert.True(t, notification.Persisted)
	assert.False(t, notification.RealtimeDelivered)
	assert.False(t, notification.EmailDelivered)
}

func TestDispatchEmptyEmailBodySkipsEmail(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	mailer := &stubMailer{}
	fanout := NewNotificationFanout(db, nil, mailer)

	event := certIssuedEvent(user.ID)
	event.EmailBody = ""

	notification, err := fanout.Dispatch(context.Background(), event)
	require.NoError(t, err)

	assert.False(t, notification.EmailDelivered)
	assert.Equal(t, 0, mailer.sentCount())
}

func TestDispatchPersistenceFailureIsFatal(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Asha", "asha@example.com")
	publisher := newStubPublisher()
	mailer := &stubMailer{}
	fanout := NewNotificationFanout(db, publisher, mailer)

	require.NoError(t, db.Migrator().DropTable(&models.Notification{}))

	notification, err := fanout.Dispatch(context.Background(), certIssuedEvent(user.ID))
	require.ErrorIs(t, err, ErrPersistenceFailed)
	assert.Nil(t, notification)

	// No delivery ran for an event that was never persisted.
	assert.Equal(t, 0, publisher.published(user.ID))
	assert.Equal(t, 0, mailer.sentCount())
}

func TestDispatchBatchIsolatesPerSubjectFailures(t *testing.T) {
	db := setupTestDB(t)
	first := createTestUser(t, db, "Asha", "asha@example.com")
	second := createTestUser(t, db, "Bram", "bram@example.com")
	third := createTestUser(t, db, "Chen", "chen@example.com")
	publisher := newStubPublisher()
	mailer := &stubMailer{failTo: "bram@example.com"}
	fanout := NewNotificationFanout(db, publisher, mailer)

	event := certIssuedEvent(0)
	notifications := fanout.DispatchBatch(context.Background(), event, []uint{first.ID, second.ID, third.ID})

	// One subject's email failure never blocks the others, and every
	// subject still gets a persisted notification.
	require.Len(t, notifications, 3)
	assert.Equal(t, 2, mailer.sentCount())
	for _, n := range notifications {
		assert.True(t, n.Persisted)
		if n.UserID == second.ID {
			assert.False(t, n.EmailDelivered)
		} else {
			assert.True(t, n.EmailDelivered)
		}
	}

	var count int64
	db.Model(&models.Notification{}).Count(&count)
	assert.Equal(t, int64(3), count)
}
