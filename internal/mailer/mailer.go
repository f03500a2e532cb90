package mailer

import (
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/osteele/liquid"
	"github.com/rs/zerolog"
)

const (
	subjectTemplate = `Your certificate for {{ event_name }}`
	bodyTemplate    = `Hello {{ name | default: "there" }},

Thank you for taking part in {{ event_name }}{% if org_name != "" %}, organized by {{ org_name }}{% endif %}.

Your certificate has been issued. Anyone can confirm it is authentic at:
{{ verification_url }}

This link is also encoded in the QR code printed on your certificate.
`
)

type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Message is one certificate notification.
type Message struct {
	To              string
	Name            string
	EventName       string
	OrgName         string
	VerificationURL string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg     Config
	subject *liquid.Template
	body    *liquid.Template
	send    sendFunc
	log     *zerolog.Logger
}

func New(cfg Config, log *zerolog.Logger) (*Mailer, error) {
	engine := liquid.NewEngine()
	subject, err := engine.ParseString(subjectTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse subject template: %w", err)
	}
	body, err := engine.ParseString(bodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}
	if cfg.Enabled && (cfg.Host == "" || cfg.From == "") {
		return nil, fmt.Errorf("mail: host and from are required when enabled")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	return &Mailer{
		cfg:     cfg,
		subject: subject,
		body:    body,
		send:    smtp.SendMail,
		log:     log,
	}, nil
}

// Render returns the subject and plain-text body for msg.
func (m *Mailer) Render(msg Message) (string, string, error) {
	bindings := map[string]interface{}{
		"name":             msg.Name,
		"event_name":       msg.EventName,
		"org_name":         msg.OrgName,
		"verification_url": msg.VerificationURL,
	}
	subject, err := m.subject.RenderString(bindings)
	if err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	body, err := m.body.RenderString(bindings)
	if err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return strings.TrimSpace(subject), body, nil
}

func (m *Mailer) SendCertificateEmail(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("send email: empty recipient")
	}
	if strings.ContainsAny(msg.To, "\r\n") {
		return fmt.Errorf("send email: invalid recipient %q", msg.To)
	}
	subject, body, err := m.Render(msg)
	if err != nil {
		return err
	}
	if !m.cfg.Enabled {
		m.log.Info().Str("to", msg.To).Str("subject", subject).Msg("mail disabled, skipping certificate email")
		return nil
	}

	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.cfg.From, msg.To, encodeHeader(subject), strings.ReplaceAll(body, "\n", "\r\n"),
	)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{msg.To}, []byte(raw)); err != nil {
		m.log.Warn().Err(err).Str("to", msg.To).Msg("failed to send certificate email")
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("to", msg.To).Str("event", msg.EventName).Msg("certificate email sent")
	return nil
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// encodeHeader folds line breaks out of v and Q-encodes it when it is not plain ASCII.
func encodeHeader(v string) string {
	return mime.QEncoding.Encode("utf-8", headerBreaks.Replace(v))
}
