package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"

	settingsdomain "github.com/smallbiznis/glazeops/internal/settings/domain"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPProvider struct {
	settings settingsdomain.Accessor
	log      *zap.Logger
	send     sendFunc
}

func NewSMTP(settings settingsdomain.Accessor, log *zap.Logger) *SMTPProvider {
	return &SMTPProvider{
		settings: settings,
		log:      log.Named("email.smtp"),
		send:     smtp.SendMail,
	}
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	if len(to) == 0 || strings.TrimSpace(to[0]) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	creds, err := p.settings.Email(ctx)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if creds.Username != "" {
		auth = smtp.PlainAuth("", creds.Username, creds.Password, creds.Host)
	}
	addr := fmt.Sprintf("%s:%d", creds.Host, creds.Port)
	from := mail.Address{Name: creds.FromName, Address: creds.FromEmail}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(htmlBody)

	if err := p.send(addr, auth, creds.FromEmail, to, msg.Bytes()); err != nil {
		p.log.Warn("smtp send failed", zap.String("host", creds.Host), zap.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (p *SMTPProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	subject, _ := data["subject"].(string)
	if subject == "" {
		switch templateName {
		case "payment_received":
			subject = "Payment received"
			if company, ok := data["company_name"].(string); ok && company != "" {
				subject = "Payment received - " + company
			}
		default:
			subject = "Notification"
		}
	}
	return p.Send(ctx, to, subject, body.String())
}
