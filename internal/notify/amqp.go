package notify

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
)

const notifyQueueName = "prismy_jobs"

// AMQPNotifier publishes job-created events to a durable RabbitMQ queue
type AMQPNotifier struct {
	url string
}

// NewAMQPNotifier creates a notifier publishing to the broker at url
func NewAMQPNotifier(url string) *AMQPNotifier {
	return &AMQPNotifier{url: url}
}

// JobCreated publishes the job id as a persistent message. A fresh
// connection per publish keeps the notifier stateless; callers treat any
// returned error as non-fatal.
func (n *AMQPNotifier) JobCreated(_ context.Context, jobID string) error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		notifyQueueName, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare a queue: %w", err)
	}

	err = ch.Publish(
		"",     // exchange
		q.Name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "text/plain",
			Body:         []byte(jobID),
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("failed to publish job notification: %w", err)
	}
	return nil
}
