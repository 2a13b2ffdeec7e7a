package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
)

var verificationTemplate = template.Must(template.New("verification").Parse(`<html>
<body>
    <h2>Welcome to Filevault</h2>
    <p>Hello {{.Username}},</p>
    <p>Thank you for signing up! Please click the link below to verify your email address:</p>
    <p><a href="{{.VerificationURL}}">Verify Email</a></p>
    <p>If you didn't sign up for this account, please ignore this email.</p>
</body>
</html>
`))

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer sends mail through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// sendMail is a seam for testing net/smtp.SendMail.
var sendMail = smtp.SendMail

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, username, verificationURL string) error {
	body, err := renderVerification(username, verificationURL)
	if err != nil {
		return err
	}

	msg := buildMessage(m.cfg.From, to, "Verify Your Email - Filevault", body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	if err := sendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func renderVerification(username, verificationURL string) (string, error) {
	var buf bytes.Buffer
	err := verificationTemplate.Execute(&buf, struct {
		Username        string
		VerificationURL string
	}{Username: username, VerificationURL: verificationURL})
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)
	return buf.Bytes()
}
