package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/madiallo/banque-backoffice/internal/notify"
	"github.com/streadway/amqp"
)

const (
	// queue for outbound notifications
	NotificationQueue = "notifications"
)

// handles RabbitMQ operations
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func NewRabbitMQ(uri string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		NotificationQueue, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare a queue: %w", err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		queue:   q,
	}, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

// publishes a notification to the queue
func (r *RabbitMQ) PublishNotification(ctx context.Context, n notify.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = r.channel.Publish(
		"",                // exchange
		NotificationQueue, // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // make message persistent
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}

	return nil
}

// Send implements notify.Sender on top of the queue
func (r *RabbitMQ) Send(ctx context.Context, n notify.Notification) error {
	return r.PublishNotification(ctx, n)
}

// consumes notifications from the queue
func (r *RabbitMQ) ConsumeNotifications(ctx context.Context) (<-chan notify.Notification, error) {
	msgs, err := r.channel.Consume(
		NotificationQueue, // queue
		"",                // consumer
		false,             // auto-ack
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	notifChan := make(chan notify.Notification)

	go func() {
		defer close(notifChan)

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var n notify.Notification
				if err := json.Unmarshal(msg.Body, &n); err != nil {
					fmt.Printf("failed to unmarshal notification: %v\n", err)
					msg.Reject(false) // Don't requeue
					continue
				}

				notifChan <- n
				msg.Ack(false)
			}
		}
	}()

	return notifChan, nil
}
