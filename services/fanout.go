package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"lms/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RealtimePublisher pushes an event payload to a user's active channel.
// Fire-and-forget: no acknowledgment is expected.
type RealtimePublisher interface {
	Publish(userID uint, payload []byte) error
}

// Mailer delivers a single email within bounded time.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// DomainEvent is a closed description of something that happened, addressed
// to one subject. Any producer may dispatch one through the fanout.
type DomainEvent struct {
	SubjectID    uint
	Kind         string
	Payload      map[string]interface{}
	EmailSubject string
	EmailBody    string // HTML; empty skips the email channel
}

// NotificationFanout persists a notification for a domain event and then
// attempts best-effort delivery on the realtime and email channels.
// Persistence is the only fatal step; each delivery channel fails
// independently without affecting the others.
type NotificationFanout struct {
	db          *gorm.DB
	publisher   RealtimePublisher // nil means no realtime channel is configured
	mailer      Mailer            // nil disables the email channel
	mailTimeout time.Duration
}

// NewNotificationFanout builds a fanout. Either collaborator may be nil;
// "channel unavailable" is a normal state, not an error.
func NewNotificationFanout(db *gorm.DB, publisher RealtimePublisher, mailer Mailer) *NotificationFanout {
	return &NotificationFanout{
		db:          db,
		publisher:   publisher,
		mailer:      mailer,
		mailTimeout: 10 * time.Second,
	}
}

// Dispatch persists the event as a notification and attempts delivery on
// each channel. Once the row is saved the call always succeeds; delivery
// outcomes are recorded on the per-channel flags.
func (f *NotificationFanout) Dispatch(ctx context.Context, event DomainEvent) (*models.Notification, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload for kind %q: %v", ErrInvalidArgument, event.Kind, err)
	}

	notification := models.Notification{
		UserID:    event.SubjectID,
		Kind:      event.Kind,
		Payload:   datatypes.JSON(payload),
		Persisted: true,
	}
	if err := f.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("%w: save notification kind %q for user %d: %v", ErrPersistenceFailed, event.Kind, event.SubjectID, err)
	}

	realtime := f.pushRealtime(event.SubjectID, event.Kind, payload)
	email := f.sendEmail(ctx, event)

	if realtime || email {
		if err := f.db.WithContext(ctx).Model(&notification).Updates(map[string]interface{}{
			"realtime_delivered": realtime,
			"email_delivered":    email,
		}).Error; err != nil {
			log.Printf("[FANOUT] Failed to record delivery flags for notification %d (user %d): %v", notification.ID, event.SubjectID, err)
		}
	}
	notification.RealtimeDelivered = realtime
	notification.EmailDelivered = email

	return &notification, nil
}

// DispatchBatch dispatches the event to every subject independently. One
// subject's failure never blocks delivery to the others; only successfully
// persisted notifications are returned.
func (f *NotificationFanout) DispatchBatch(ctx context.Context, event DomainEvent, subjectIDs []uint) []*models.Notification {
	notifications := make([]*models.Notification, 0, len(subjectIDs))
	for _, subjectID := range subjectIDs {
		perSubject := event
		perSubject.SubjectID = subjectID
		n, err := f.Dispatch(ctx, perSubject)
		if err != nil {
			log.Printf("[FANOUT] Batch dispatch of %q to user %d failed: %v", event.Kind, subjectID, err)
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications
}

// pushRealtime publishes to the subject's channel. No configured publisher
// or no active connection is a no-op, not an error.
func (f *NotificationFanout) pushRealtime(userID uint, kind string, payload []byte) bool {
	if f.publisher == nil {
		return false
	}
	message, err := json.Marshal(map[string]interface{}{
		"kind":    kind,
		"payload": json.RawMessage(payload),
	})
	if err != nil {
		log.Printf("[FANOUT] Failed to encode realtime message kind %q for user %d: %v", kind, userID, err)
		return false
	}
	if err := f.publisher.Publish(userID, message); err != nil {
		log.Printf("[FANOUT] Realtime push of %q to user %d failed: %v", kind, userID, err)
		return false
	}
	return true
}

// sendEmail attempts the email channel within the fanout's mail timeout.
func (f *NotificationFanout) sendEmail(ctx context.Context, event DomainEvent) bool {
	if f.mailer == nil || event.EmailBody == "" {
		return false
	}

	var recipient models.User
	if err := f.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", event.SubjectID, false).First(&recipient).Error; err != nil {
		log.Printf("[FANOUT] No recipient for email %q to user %d: %v", event.Kind, event.SubjectID, err)
		return false
	}

	done := make(chan error, 1)
	go func() {
		done <- f.mailer.Send(recipient.Email, event.EmailSubject, event.EmailBody)
	}()

	timeout, cancel := context.WithTimeout(ctx, f.mailTimeout)
	defer cancel()

	select {
	case err := <-done:
		if err != nil {
			log.Printf("[FANOUT] Email %q to user %d failed: %v", event.Kind, event.SubjectID, err)
			return false
		}
		return true
	case <-timeout.Done():
		log.Printf("[FANOUT] Email %q to user %d timed out", event.Kind, event.SubjectID)
		return false
	}
}
