package utils

import (
	"certmint/config"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService sends operator mail through SendGrid
type EmailService struct{}

// NewEmailService returns the mailer
func NewEmailService() *EmailService {
	return &EmailService{}
}

// SendEmail sends one HTML email
func (s *EmailService) SendEmail(to, subject, htmlBody string) error {
	cfg := config.AppConfig
	if cfg.SendgridAPIKey == "" {
		log.Printf("[EMAIL] SENDGRID_API_KEY not set, dropping mail %q to %s", subject, to)
		return nil
	}

	from := mail.NewEmail("CertMint Ops", cfg.AlertSender)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, "", wrapTemplate(subject, htmlBody))

	client := sendgrid.NewSendClient(cfg.SendgridAPIKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("[EMAIL] Failed to send %q: %v", subject, err)
		return err
	}
	if resp.StatusCode >= 300 {
		log.Printf("[EMAIL] SendGrid rejected %q: %d %s", subject, resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid rejected mail: %d", resp.StatusCode)
	}
	return nil
}

// SendReconciliationAlert mails the operator about chain/database divergence
func (s *EmailService) SendReconciliationAlert(subject, body string) error {
	return s.SendEmail(config.AppConfig.AlertRecipient, subject,
		fmt.Sprintf("<p>%s</p><p>Check the issue_attempts table for rows flagged needs_reconciliation.</p>", body))
}

// SendCertificateIssued notifies the learner that their certificate exists
// and where to verify it. Best effort: issuance never fails on mail.
func (s *EmailService) SendCertificateIssued(to, learnerName, courseTitle, certificateCode, verifyURL string) {
	body := fmt.Sprintf(
		`<p>Hi %s,</p>
		<p>Your certificate for <strong>%s</strong> has been issued.</p>
		<p>Certificate code: <strong>%s</strong></p>
		<p>Anyone can verify it at <a href="%s">%s</a>.</p>`,
		learnerName, courseTitle, certificateCode, verifyURL, verifyURL,
	)
	if err := s.SendEmail(to, "Your certificate has been issued", body); err != nil {
		log.Printf("[EMAIL] Failed to send issuance mail to %s: %v", to, err)
	}
}

func wrapTemplate(title, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1B2A4A; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1B2A4A; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>CERTMINT</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				Automated operator notice. Do not reply.
			</div>
		</div>
	</body>
	</html>`, title, bodyContent)
}
