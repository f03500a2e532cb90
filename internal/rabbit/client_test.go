package rabbit

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type outcome struct {
	tag     uint64
	acked   bool
	requeue bool
}

type recordingAcker struct {
	outcomes []outcome
}

func (a *recordingAcker) Ack(tag uint64, _ bool) error {
	a.outcomes = append(a.outcomes, outcome{tag: tag, acked: true})
	return nil
}

func (a *recordingAcker) Nack(tag uint64, _ bool, requeue bool) error {
	a.outcomes = append(a.outcomes, outcome{tag: tag, requeue: requeue})
	return nil
}

func (a *recordingAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestDispatchRequeuesOnce(t *testing.T) {
	acker := &recordingAcker{}
	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: []byte("ok")}
	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: []byte("fail")}
	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 3, Body: []byte("fail"), Redelivered: true}
	close(msgs)

	var seen []string
	dispatch(msgs, func(body []byte) error {
		seen = append(seen, string(body))
		if string(body) == "fail" {
			return errors.New("smtp down")
		}
		return nil
	})

	assert.Equal(t, []string{"ok", "fail", "fail"}, seen)
	assert.Equal(t, []outcome{
		{tag: 1, acked: true},
		{tag: 2, requeue: true},
		{tag: 3, requeue: false},
	}, acker.outcomes)
}
