package utils

import (
	"encoding/json"
	"log"
	"time"

	"lms/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Mailer matches the fanout's mailer shape so the scheduler can reuse
// whichever transport the app was wired with.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// logRetry logs retry scheduler events with timestamp
func logRetry(message string) {
	log.Printf("[NOTIFY-RETRY %s] %s", time.Now().Format(time.RFC3339), message)
}

// retryPendingEmails re-attempts the email channel for recent certificate
// notifications whose email delivery failed. The notification row is the
// durable record; this is the convergence path for learners who never got
// the mail.
func retryPendingEmails(db *gorm.DB, mailer Mailer) {
	cutoff := time.Now().Add(-24 * time.Hour)

	var pending []models.Notification
	if err := db.Where("kind = ? AND email_delivered = ? AND is_deleted = ? AND created_at > ?",
		models.NotificationCertificateIssued, false, false, cutoff).
		Limit(50).Find(&pending).Error; err != nil {
		logRetry("Error fetching pending notifications: " + err.Error())
		return
	}

	for _, notification := range pending {
		if RetryNotificationEmail(db, mailer, &notification) {
			logRetry("Re-sent certificate email for notification " + notification.Kind)
		}
	}
}

// RetryNotificationEmail rebuilds and re-sends the email for a persisted
// certificate notification, updating its delivery flag on success. Also
// used by the admin re-send endpoint.
func RetryNotificationEmail(db *gorm.DB, mailer Mailer, notification *models.Notification) bool {
	if mailer == nil || notification.Kind != models.NotificationCertificateIssued {
		return false
	}

	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", notification.UserID, false).First(&user).Error; err != nil {
		logRetry("No recipient found for notification: " + err.Error())
		return false
	}

	var payload struct {
		CourseTitle    string `json:"course_title"`
		CertificateURL string `json:"certificate_url"`
	}
	if err := json.Unmarshal(notification.Payload, &payload); err != nil {
		logRetry("Bad payload on notification: " + err.Error())
		return false
	}

	subject, body := CertificateIssuedEmail(user.Name, payload.CourseTitle, payload.CertificateURL)
	if err := mailer.Send(user.Email, subject, body); err != nil {
		logRetry("Email retry failed for user " + user.Email + ": " + err.Error())
		return false
	}

	if err := db.Model(notification).Update("email_delivered", true).Error; err != nil {
		logRetry("Failed to record email retry flag: " + err.Error())
	}
	notification.EmailDelivered = true
	return true
}

// StartNotificationRetryScheduler runs the email retry sweep every 15
// minutes.
func StartNotificationRetryScheduler(db *gorm.DB, mailer Mailer) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("*/15 * * * *", func() {
		retryPendingEmails(db, mailer)
	})
	if err != nil {
		logRetry("Failed to schedule retry job: " + err.Error())
		return c
	}

	c.Start()
	logRetry("Notification retry scheduler started")
	return c
}
