package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"log"

	"gopkg.in/gomail.v2"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Mailer handles sending emails
type Mailer struct {
	config Config
	dialer *gomail.Dialer
}

// New creates a new Mailer instance
func New(cfg Config) *Mailer {
	return &Mailer{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// SendPasswordReset sends a password reset code
func (m *Mailer) SendPasswordReset(toEmail, name, code string, expiryMinutes int) error {
	subject := "Finscale - Redefinição de senha"

	body, err := renderPasswordReset(name, code, expiryMinutes)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return m.send(toEmail, subject, body)
}

// send delivers an email via SMTP
func (m *Mailer) send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.config.From, m.config.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		log.Printf("❌ Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}

var passwordResetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#f4f6fb;font-family:'Segoe UI',Tahoma,Verdana,sans-serif;">
    <div style="max-width:480px;margin:40px auto;background:#ffffff;border-radius:12px;overflow:hidden;border:1px solid #e2e8f0;">
        <div style="background:#0f766e;padding:28px;text-align:center;">
            <h1 style="color:#fff;margin:0;font-size:26px;">Finscale</h1>
            <p style="color:rgba(255,255,255,0.85);margin:6px 0 0;font-size:14px;">Redefinição de senha</p>
        </div>
        <div style="padding:28px;">
            <p style="color:#1e293b;font-size:15px;margin:0 0 20px;">Olá <strong>{{.Name}}</strong>,</p>
            <p style="color:#475569;font-size:14px;margin:0 0 20px;">Use o código abaixo para redefinir sua senha:</p>
            <div style="background:#f0fdfa;border:2px dashed #14b8a6;border-radius:10px;padding:20px;text-align:center;margin:0 0 20px;">
                <span style="font-size:32px;font-weight:800;letter-spacing:8px;color:#0f766e;font-family:'Courier New',monospace;">{{.Code}}</span>
            </div>
            <p style="color:#64748b;font-size:13px;margin:0 0 8px;">O código expira em <strong>{{.ExpiryMinutes}} minutos</strong>.</p>
            <p style="color:#64748b;font-size:13px;margin:0;">Se você não solicitou a redefinição, ignore este e-mail.</p>
        </div>
    </div>
</body>
</html>`))

func renderPasswordReset(name, code string, expiryMinutes int) (string, error) {
	var buf bytes.Buffer
	err := passwordResetTmpl.Execute(&buf, map[string]interface{}{
		"Name":          name,
		"Code":          code,
		"ExpiryMinutes": expiryMinutes,
	})
	return buf.String(), err
}
