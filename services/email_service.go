package services

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/ismailsoloyt12-stack/zetsuserv/config"
	"github.com/ismailsoloyt12-stack/zetsuserv/logger"
	"github.com/ismailsoloyt12-stack/zetsuserv/models"
)

// Email is one outbound message with plain-text and HTML alternatives
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers email on a best-effort basis
type Mailer interface {
	Send(email *Email) error
}

var mailerInstance Mailer

// InitMailer initializes the SMTP mailer from configuration. When SMTP
// credentials are missing the mailer stays unset and sends become no-ops,
// so the app still works in local development.
func InitMailer(cfg *config.Config) Mailer {
	if !cfg.MailConfigured() {
		logger.Warnf("SMTP credentials not configured, outbound email disabled")
		return nil
	}
	mailerInstance = &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		sender: cfg.MailSender,
	}
	return mailerInstance
}

// GetMailer returns the mailer instance, nil when email is disabled
func GetMailer() Mailer {
	return mailerInstance
}

// SetMailer sets the mailer instance (primarily for testing)
func SetMailer(m Mailer) {
	mailerInstance = m
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	sender string
}

// Send delivers a single message
func (m *SMTPMailer) Send(email *Email) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.TextBody)
	if email.HTMLBody != "" {
		msg.AddAlternative("text/html", email.HTMLBody)
	}
	return m.dialer.DialAndSend(msg)
}

// sendEmail hands a message to the configured mailer. Delivery failure is
// never fatal: it is logged and swallowed, matching the guarantee that
// client-facing operations succeed even when notifications do not go out.
func sendEmail(email *Email) {
	mailer := GetMailer()
	if mailer == nil {
		logger.Debugf("mailer not configured, dropping email to %s (%s)", email.To, email.Subject)
		return
	}
	if err := mailer.Send(email); err != nil {
		logger.Warnf("failed to send email to %s (%s): %v", email.To, email.Subject, err)
	}
}

func trackingURL() string {
	cfg := config.GetConfig()
	if cfg == nil {
		return "/track"
	}
	return cfg.BaseURL + "/track"
}

// SendTrackingCodeEmail delivers the tracking code and access key issued at
// submission time
func SendTrackingCodeEmail(order *models.Order, trackingCode, accessKey string) {
	text := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Thank you for choosing ZetsuServ!\n\n"+
			"We have received your request for %s.\n\n"+
			"Your tracking code is: %s\n"+
			"Access key: %s\n\n"+
			"Track your order at: %s\n"+
			"You will need both the tracking code and access key to view your order.\n\n"+
			"Best regards,\nThe ZetsuServ Team",
		order.ClientName, order.ProjectTitle, trackingCode, accessKey, trackingURL())
	html := fmt.Sprintf(
		"<p>Dear %s,</p>"+
			"<p>We have received your request for <strong>%s</strong> and our team is already working on it!</p>"+
			"<p>Your tracking code: <strong>%s</strong><br>Access key: <code>%s</code></p>"+
			"<p>Keep this access key secure. You need both the tracking code and access key to view your order.</p>"+
			"<p><a href=\"%s\">Track Your Order</a></p>"+
			"<p>Best regards,<br><strong>The ZetsuServ Team</strong></p>",
		order.ClientName, order.ProjectTitle, trackingCode, accessKey, trackingURL())

	sendEmail(&Email{
		To:       order.ClientEmail,
		Subject:  fmt.Sprintf("Your ZetsuServ Order Tracking Code - %s", trackingCode),
		TextBody: text,
		HTMLBody: html,
	})
}

// SendQueueActivationEmail tells the client their turn has arrived and
// delivers the (re)issued access key
func SendQueueActivationEmail(order *models.Order, trackingCode, accessKey string) {
	text := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Great news - your turn has arrived! Work on %s is now active.\n\n"+
			"Your tracking code is: %s\n"+
			"Access key: %s\n\n"+
			"Track your order at: %s\n\n"+
			"Best regards,\nThe ZetsuServ Team",
		order.ClientName, order.ProjectTitle, trackingCode, accessKey, trackingURL())
	html := fmt.Sprintf(
		"<p>Dear %s,</p>"+
			"<p>Great news - your turn has arrived! Work on <strong>%s</strong> is now active.</p>"+
			"<p>Your tracking code: <strong>%s</strong><br>Access key: <code>%s</code></p>"+
			"<p><a href=\"%s\">Track Your Order</a></p>"+
			"<p>Best regards,<br><strong>The ZetsuServ Team</strong></p>",
		order.ClientName, order.ProjectTitle, trackingCode, accessKey, trackingURL())

	sendEmail(&Email{
		To:       order.ClientEmail,
		Subject:  "Your turn has arrived! Your project is now active - ZetsuServ",
		TextBody: text,
		HTMLBody: html,
	})
}

// SendProgressUpdateEmail notifies the client about a progress step change
func SendProgressUpdateEmail(order *models.Order, step *models.ProgressStep, action string) {
	var headline string
	switch action {
	case ProgressActionStart:
		headline = fmt.Sprintf("Work has started on: %s", step.StepName)
	case ProgressActionComplete:
		headline = fmt.Sprintf("%s has been completed!", step.StepName)
	default:
		headline = fmt.Sprintf("Progress update on: %s", step.StepName)
	}

	text := fmt.Sprintf(
		"Dear %s,\n\n%s\n\nProject: %s\nCurrent step progress: %d%%\n\n"+
			"Track your order at: %s\n\nBest regards,\nThe ZetsuServ Team",
		order.ClientName, headline, order.ProjectTitle, step.ProgressPercentage, trackingURL())
	html := fmt.Sprintf(
		"<p>Dear %s,</p><p>%s</p><p>Project: <strong>%s</strong><br>Current step progress: %d%%</p>"+
			"<p><a href=\"%s\">Track Your Order</a></p><p>Best regards,<br><strong>The ZetsuServ Team</strong></p>",
		order.ClientName, headline, order.ProjectTitle, step.ProgressPercentage, trackingURL())

	sendEmail(&Email{
		To:       order.ClientEmail,
		Subject:  fmt.Sprintf("Progress Update: %s - ZetsuServ", step.StepName),
		TextBody: text,
		HTMLBody: html,
	})
}

// SendClientMessageEmail notifies the client about a new admin message
func SendClientMessageEmail(order *models.Order, content string) {
	text := fmt.Sprintf(
		"Dear %s,\n\nYou have a new message about %s:\n\n%s\n\n"+
			"Reply via your tracking page: %s\n\nBest regards,\nThe ZetsuServ Team",
		order.ClientName, order.ProjectTitle, content, trackingURL())

	sendEmail(&Email{
		To:       order.ClientEmail,
		Subject:  fmt.Sprintf("New Message About Your Order - %s", order.ProjectTitle),
		TextBody: text,
	})
}

// SendAdminMessageEmail notifies the site admin that a client wrote in
func SendAdminMessageEmail(order *models.Order, content string) {
	cfg := config.GetConfig()
	if cfg == nil || cfg.AdminEmail == "" {
		return
	}
	text := fmt.Sprintf(
		"New client message on order #%d (%s) from %s <%s>:\n\n%s",
		order.ID, order.ProjectTitle, order.ClientName, order.ClientEmail, content)

	sendEmail(&Email{
		To:       cfg.AdminEmail,
		Subject:  fmt.Sprintf("New Client Message - Order #%d", order.ID),
		TextBody: text,
	})
}

// SendVerificationCodeEmail delivers the 6-digit email verification code
func SendVerificationCodeEmail(user *models.User, code string) {
	text := fmt.Sprintf(
		"Hi %s,\n\nYour ZetsuServ verification code is: %s\n\n"+
			"The code expires in 10 minutes. If you did not request it, you can ignore this email.\n\n"+
			"Best regards,\nThe ZetsuServ Team",
		user.Username, code)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your ZetsuServ verification code is:</p>"+
			"<h2 style=\"letter-spacing:4px\">%s</h2>"+
			"<p>The code expires in 10 minutes. If you did not request it, you can ignore this email.</p>",
		user.Username, code)

	sendEmail(&Email{
		To:       user.Email,
		Subject:  "Your ZetsuServ Verification Code",
		TextBody: text,
		HTMLBody: html,
	})
}
