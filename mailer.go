package accounts

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/template/django/v3"
	"github.com/wneessen/go-mail"
)

// EmailKind selects the template used for an outgoing notification.
type EmailKind string

const (
	// EmailWelcome greets a freshly registered account.
	EmailWelcome EmailKind = "welcome"
	// EmailPasswordReset carries a reset link with the raw token.
	EmailPasswordReset EmailKind = "password_reset"
)

// DeliveryResult reports what happened to an outgoing email. Token is only
// populated by the degraded logging mailer so operators can recover the
// reset link without a mail provider.
type DeliveryResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// Mailer delivers account notifications. Implementations must not fail the
// calling workflow: errors degrade to an unsuccessful DeliveryResult.
type Mailer interface {
	Send(ctx context.Context, recipient string, kind EmailKind, data map[string]any) DeliveryResult
}

// SMTPConfig holds the mail provider settings. A zero Host means the
// provider is unconfigured and callers should fall back to LogMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

// Configured reports whether the provider settings are usable.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

var emailSubjects = map[EmailKind]string{
	EmailWelcome:       "Welcome to DailyFlow",
	EmailPasswordReset: "Reset Your DailyFlow Password",
}

// SMTPMailer renders django templates and delivers them over SMTP.
type SMTPMailer struct {
	client      *mail.Client
	engine      *django.Engine
	from        string
	frontendURL string
	logger      Logger
}

// NewSMTPMailer builds a mailer from provider settings. The frontend URL
// is used to compose reset links.
func NewSMTPMailer(cfg SMTPConfig, frontendURL string, logger Logger) (*SMTPMailer, error) {
	if logger == nil {
		logger = defLogger{}
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}

	engine := django.NewFileSystem(http.FS(GetTemplatesFS()), ".html")
	if err := engine.Load(); err != nil {
		return nil, err
	}

	return &SMTPMailer{
		client:      client,
		engine:      engine,
		from:        cfg.From,
		frontendURL: frontendURL,
		logger:      logger,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, recipient string, kind EmailKind, data map[string]any) DeliveryResult {
	binding := map[string]any{
		"frontend_url": m.frontendURL,
	}
	for k, v := range data {
		binding[k] = v
	}

	if token, ok := data["token"].(string); ok && token != "" {
		binding["reset_url"] = fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, token)
	}

	var body bytes.Buffer
	if err := m.engine.Render(&body, "emails/"+string(kind), binding); err != nil {
		m.logger.Error("mailer template render failed", "kind", kind, "error", err)
		return DeliveryResult{Message: "template render failed"}
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		m.logger.Error("mailer invalid from address", "error", err)
		return DeliveryResult{Message: "invalid from address"}
	}
	if err := msg.To(recipient); err != nil {
		m.logger.Error("mailer invalid recipient", "error", err)
		return DeliveryResult{Message: "invalid recipient"}
	}

	msg.Subject(emailSubjects[kind])
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("mailer delivery failed", "recipient", recipient, "error", err)
		return DeliveryResult{Message: "delivery failed"}
	}

	return DeliveryResult{Success: true, Message: "email sent"}
}

// LogMailer is the degraded mode used when the provider is unconfigured:
// it logs the notification, including the raw reset token, instead of
// failing the caller.
type LogMailer struct {
	logger      Logger
	frontendURL string
}

// NewLogMailer creates the logging fallback mailer.
func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

// WithFrontendURL sets the base URL used to print reset links.
func (m *LogMailer) WithFrontendURL(url string) *LogMailer {
	m.frontendURL = url
	return m
}

func (m *LogMailer) Send(_ context.Context, recipient string, kind EmailKind, data map[string]any) DeliveryResult {
	token, _ := data["token"].(string)

	if token != "" {
		m.logger.Warn("email service disabled, logging reset token",
			"recipient", recipient,
			"kind", kind,
			"token", token,
			"reset_url", fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, token),
		)
	} else {
		m.logger.Info("email service disabled, skipping notification",
			"recipient", recipient,
			"kind", kind,
		)
	}

	return DeliveryResult{Message: "email service disabled", Token: token}
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)

// NewMailer picks the SMTP mailer when the provider is configured and the
// logging fallback otherwise. Missing provider credentials degrade email
// delivery only, never core authentication.
func NewMailer(cfg SMTPConfig, frontendURL string, logger Logger) Mailer {
	if !cfg.Configured() {
		return NewLogMailer(logger).WithFrontendURL(frontendURL)
	}

	mailer, err := NewSMTPMailer(cfg, frontendURL, logger)
	if err != nil {
		if logger != nil {
			logger.Warn("smtp mailer unavailable, falling back to logging", "error", err)
		}
		return NewLogMailer(logger).WithFrontendURL(frontendURL)
	}

	return mailer
}
