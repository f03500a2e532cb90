package rabbit

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

const routingKey = "certificate.issued"

type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

type Rabbiter interface {
	Close()
	Publish(ctx context.Context, message []byte) error
	Consume(handler func([]byte) error) error
}

func NewRabbit(url, exchange, queue string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to connect to RabbitMQ")
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		zlog.Logger.Error().Err(err).Msg("failed to open RabbitMQ channel")
		return nil, err
	}

	client := &Client{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		queue:    queue,
	}

	if err := client.declare(); err != nil {
		client.Close()
		return nil, err
	}

	zlog.Logger.Info().Msgf("RabbitMQ initialized (exchange=%s, queue=%s)", exchange, queue)
	return client, nil
}

func (c *Client) declare() error {
	if err := c.channel.ExchangeDeclare(
		c.exchange,
		amqp.ExchangeDirect,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to declare exchange")
		return err
	}

	if _, err := c.channel.QueueDeclare(
		c.queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to declare queue")
		return err
	}

	if err := c.channel.QueueBind(
		c.queue,
		routingKey,
		c.exchange,
		false,
		nil,
	); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to bind queue")
		return err
	}

	// one unacked message per consumer keeps mail sending sequential
	return c.channel.Qos(1, 0, false)
}

func (c *Client) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	zlog.Logger.Info().Msg("RabbitMQ connection closed")
}

func (c *Client) Publish(ctx context.Context, message []byte) error {
	err := c.channel.PublishWithContext(
		ctx,
		c.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         message,
			Timestamp:    time.Now(),
		},
	)

	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to publish message to RabbitMQ")
	} else {
		zlog.Logger.Debug().Msgf("Message published to exchange=%s key=%s", c.exchange, routingKey)
	}
	return err
}

// Consume runs handler for every delivery in a background goroutine. A handler
// error requeues the message once; a redelivered message that fails again is dropped.
func (c *Client) Consume(handler func([]byte) error) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to start consuming messages")
		return err
	}

	go dispatch(msgs, handler)

	zlog.Logger.Info().Msgf("Started consuming from queue %s", c.queue)
	return nil
}

// dispatch acks every delivery the handler accepts. A failed first delivery is
// requeued; a failed redelivery is dropped.
func dispatch(msgs <-chan amqp.Delivery, handler func([]byte) error) {
	for d := range msgs {
		if err := handler(d.Body); err != nil {
			zlog.Logger.Warn().Bool("redelivered", d.Redelivered).Msgf("failed to process message: %v", err)
			if nerr := d.Nack(false, !d.Redelivered); nerr != nil {
				zlog.Logger.Error().Err(nerr).Msg("failed to nack message")
			}
			continue
		}
		if aerr := d.Ack(false); aerr != nil {
			zlog.Logger.Error().Err(aerr).Msg("failed to ack message")
		}
	}
}
