package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certify/internal/dto"
	"certify/internal/mailer"
)

type fakeConsumer struct {
	mu      sync.Mutex
	handler func([]byte) error
	err     error
}

func (f *fakeConsumer) Consume(handler func([]byte) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return f.err
}

func (f *fakeConsumer) registered() func([]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler
}

type fakeNotifier struct {
	sent []mailer.Message
	err  error
}

func (f *fakeNotifier) SendCertificateEmail(msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newReader(c *fakeConsumer, n *fakeNotifier) *Reader {
	log := zerolog.Nop()
	return NewReader(c, n, &log)
}

func TestReaderSendsEmail(t *testing.T) {
	c, n := &fakeConsumer{}, &fakeNotifier{}
	r := newReader(c, n)
	r.Start(context.Background())
	defer r.Stop()

	body, err := json.Marshal(dto.CertificateIssuedMessage{
		RegistrationID:  "p-1",
		EventID:         "e-1",
		EventName:       "Expo",
		Name:            "Jane",
		Email:           "jane@example.com",
		VerificationURL: "https://certs.example.com/verify/c/expo/p-1",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return c.registered() != nil }, time.Second, 10*time.Millisecond)
	require.NoError(t, c.registered()(body))
	require.Len(t, n.sent, 1)
	assert.Equal(t, "jane@example.com", n.sent[0].To)
	assert.Equal(t, "https://certs.example.com/verify/c/expo/p-1", n.sent[0].VerificationURL)
}

func TestReaderHandleMalformedAndEmpty(t *testing.T) {
	n := &fakeNotifier{}
	r := newReader(&fakeConsumer{}, n)

	assert.NoError(t, r.handle([]byte("{not json")))
	assert.NoError(t, r.handle([]byte(`{"registration_id":"p-1"}`)))
	assert.Empty(t, n.sent)
}

func TestReaderHandleMailFailureRequeues(t *testing.T) {
	n := &fakeNotifier{err: errors.New("smtp down")}
	r := newReader(&fakeConsumer{}, n)

	err := r.handle([]byte(`{"registration_id":"p-1","email":"jane@example.com"}`))
	assert.ErrorContains(t, err, "smtp down")
}

func TestReaderStopsWhenConsumeFails(t *testing.T) {
	r := newReader(&fakeConsumer{err: errors.New("channel closed")}, &fakeNotifier{})
	r.Start(context.Background())
	r.Stop()
}
