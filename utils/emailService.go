package utils

import (
	"lms/config"
	"fmt"
	"net/smtp"
	"strings"
)

// Generic Send Email
func SendEmail(to []string, subject string, htmlBody string) error {
	smtpHost := "smtp.gmail.com"
	smtpPort := "587"

	from := config.AppConfig.EmailSender
	password := config.AppConfig.Password

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: LearnHub <%s>\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, password, smtpHost)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, to, []byte(msg))
	if err != nil {
		fmt.Println("Error sending email:", err)
		return err
	}
	return nil
}

// SMTPMailer adapts SendEmail to the single-recipient mailer shape the
// notification fanout expects.
type SMTPMailer struct{}

func (SMTPMailer) Send(to, subject, htmlBody string) error {
	return SendEmail([]string{to}, subject, htmlBody)
}

// HTML Wrapper (Professional Look)
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #00004D; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #00004D; line-height: 1.6; }
			.content h2 { color: #00004D; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.btn { display: inline-block; padding: 12px 24px; background-color: #d7b56d; color: #FFFFFF; text-decoration: none; border-radius: 4px; font-weight: bold; margin-top: 20px; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #d7b56d; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>LEARNHUB</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 LearnHub. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// --- Triggers ---

// 1. Welcome / Signup
func SendWelcomeEmail(email, name string) {
	subject := "Welcome to LearnHub"
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Welcome to <strong>LearnHub</strong>! We are thrilled to have you onboard.</p>
		<p>Your account has been successfully created. You can now enroll in courses and start learning.</p>
		<p>If you have any questions, feel free to reach out to our support team.</p>
	`, name)

	go SendEmail([]string{email}, subject, getEmailTemplate("Welcome Onboard!", body))
}

// 2. Certificate Issued
// CertificateIssuedEmail builds the subject and body for a certificate
// issuance mail. Callers decide how and when to send it.
func CertificateIssuedEmail(name, courseTitle, certificateURL string) (string, string) {
	subject := "Your Certificate: " + courseTitle
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations! You have completed <strong>%s</strong>.</p>
		<div class="info-box">
			Your certificate of completion has been issued and is ready to download.
		</div>
		<a href="%s" class="btn">Download Certificate</a>
	`, name, courseTitle, certificateURL)

	return subject, getEmailTemplate("Course Completed!", body)
}

// 3. Enrollment Confirmation
func SendEnrollmentEmail(email, name, courseTitle string) {
	subject := "Enrollment Confirmed: " + courseTitle
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>You have successfully enrolled in <strong>%s</strong>.</p>
		<div class="info-box">
			<strong>Next Steps:</strong> Head to your dashboard and start with the first module.
		</div>
	`, name, courseTitle)

	go SendEmail([]string{email}, subject, getEmailTemplate("Enrollment Successful", body))
}
