package mailer

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMailer(t *testing.T, cfg Config) *Mailer {
	t.Helper()
	log := zerolog.Nop()
	m, err := New(cfg, &log)
	require.NoError(t, err)
	return m
}

func TestRender(t *testing.T) {
	m := newTestMailer(t, Config{})

	subject, body, err := m.Render(Message{
		Name:            "Jane",
		EventName:       "AI Summit",
		OrgName:         "Acme",
		VerificationURL: "https://certs.example.com/verify/c/ai-summit/p",
	})
	require.NoError(t, err)
	assert.Equal(t, "Your certificate for AI Summit", subject)
	assert.Contains(t, body, "Hello Jane,")
	assert.Contains(t, body, "AI Summit, organized by Acme.")
	assert.Contains(t, body, "https://certs.example.com/verify/c/ai-summit/p")

	_, body, err = m.Render(Message{EventName: "Expo"})
	require.NoError(t, err)
	assert.Contains(t, body, "Hello there,")
	assert.NotContains(t, body, "organized by")
}

func TestSendDisabled(t *testing.T) {
	m := newTestMailer(t, Config{})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called when mail is disabled")
		return nil
	}
	assert.NoError(t, m.SendCertificateEmail(Message{To: "jane@example.com", EventName: "Expo"}))
}

func TestSendEnabled(t *testing.T) {
	m := newTestMailer(t, Config{Enabled: true, Host: "smtp.example.com", Port: 2525, From: "certs@example.com"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, m.SendCertificateEmail(Message{To: "jane@example.com", Name: "Jane", EventName: "Expo"}))
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "certs@example.com", gotFrom)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(string(gotMsg), "From: certs@example.com\r\nTo: jane@example.com\r\nSubject: Your certificate for Expo\r\n"))
}

func TestSendKeepsEventNameInsideSubject(t *testing.T) {
	m := newTestMailer(t, Config{Enabled: true, Host: "smtp.example.com", From: "certs@example.com"})
	var gotMsg []byte
	m.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	require.NoError(t, m.SendCertificateEmail(Message{To: "jane@example.com", EventName: "Fest\r\nReply-To: phish@evil.example"}))
	headers, _, found := strings.Cut(string(gotMsg), "\r\n\r\n")
	require.True(t, found)
	for _, line := range strings.Split(headers, "\r\n") {
		assert.False(t, strings.HasPrefix(line, "Reply-To:"), "header injected: %q", line)
	}
	assert.Contains(t, headers, "Subject: Your certificate for Fest Reply-To: phish@evil.example\r\n")

	require.NoError(t, m.SendCertificateEmail(Message{To: "jane@example.com", EventName: "Día de Código"}))
	assert.Contains(t, string(gotMsg), "Subject: =?utf-8?q?")
	assert.NotContains(t, string(gotMsg), "Subject: Your certificate for Día")

	assert.Error(t, m.SendCertificateEmail(Message{To: "jane@example.com\r\nBcc: x@evil.example", EventName: "Expo"}))
}

func TestSendFailure(t *testing.T) {
	m := newTestMailer(t, Config{Enabled: true, Host: "smtp.example.com", From: "certs@example.com"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	err := m.SendCertificateEmail(Message{To: "jane@example.com", EventName: "Expo"})
	assert.ErrorContains(t, err, "connection refused")
	assert.Error(t, m.SendCertificateEmail(Message{EventName: "Expo"}), "empty recipient")
}

func TestNewRequiresHostWhenEnabled(t *testing.T) {
	log := zerolog.Nop()
	_, err := New(Config{Enabled: true}, &log)
	assert.Error(t, err)
}
