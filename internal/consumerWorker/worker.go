package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"certify/internal/dto"
	"certify/internal/mailer"
)

type consumer interface {
	Consume(handler func([]byte) error) error
}

type notifier interface {
	SendCertificateEmail(msg mailer.Message) error
}

// Reader turns certificate-issued messages into participant emails.
type Reader struct {
	RMQ    consumer
	mail   notifier
	log    *zerolog.Logger
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq consumer, mail notifier, log *zerolog.Logger) *Reader {
	return &Reader{
		RMQ:  rmq,
		mail: mail,
		log:  log,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.log.Info().Msg("certificate mail reader started")

	go func() {
		defer close(r.done)

		if err := r.RMQ.Consume(r.handle); err != nil {
			r.log.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		r.log.Info().Msg("certificate mail reader stopped by context")
	}()
}

// handle acks malformed messages (nil error) since a retry cannot fix them.
func (r *Reader) handle(body []byte) error {
	var msg dto.CertificateIssuedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		r.log.Error().Err(err).Msgf("failed to unmarshal message: %s", string(body))
		return nil
	}
	if msg.Email == "" {
		r.log.Warn().Str("registration_id", msg.RegistrationID).Msg("certificate message without email, skipping")
		return nil
	}

	r.log.Info().
		Str("registration_id", msg.RegistrationID).
		Str("event_id", msg.EventID).
		Msg("received certificate message")

	if err := r.mail.SendCertificateEmail(mailer.Message{
		To:              msg.Email,
		Name:            msg.Name,
		EventName:       msg.EventName,
		OrgName:         msg.OrgName,
		VerificationURL: msg.VerificationURL,
	}); err != nil {
		r.log.Warn().Err(err).Str("registration_id", msg.RegistrationID).Msg("failed to send certificate email")
		return err
	}
	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
