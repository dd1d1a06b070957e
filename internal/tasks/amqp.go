// internal/tasks/amqp.go
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/common/observability"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// amqpChannel is the subset of *amqp.Channel the dispatcher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQP publishes tasks to a durable queue and consumes them with manual
// acknowledgement, so a task is redelivered until a handler succeeds.
type AMQP struct {
	conn   *amqp.Connection
	ch     amqpChannel
	queue  string
	obs    *observability.Observability
	logger logger.Logger
}

// DialAMQP connects to the broker and declares queue.
func DialAMQP(url, queue string, prefetch int, obs *observability.Observability, log logger.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	a, err := newAMQP(ch, queue, prefetch, obs, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	a.conn = conn
	return a, nil
}

func newAMQP(ch amqpChannel, queue string, prefetch int, obs *observability.Observability, log logger.Logger) (*AMQP, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("set prefetch: %w", err)
		}
	}
	return &AMQP{
		ch:     ch,
		queue:  queue,
		obs:    obs,
		logger: logger.Component(log, "tasks.amqp").WithFields(map[string]interface{}{"queue": queue}),
	}, nil
}

func (a *AMQP) Dispatch(ctx context.Context, task ScoreTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = a.ch.PublishWithContext(ctx, "", a.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    task.ApplicantID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish task for %s: %w", task.ApplicantID, err)
	}
	return nil
}

// Consume delivers tasks to handler until ctx is done or the channel closes.
func (a *AMQP) Consume(ctx context.Context, handler HandlerFunc) error {
	deliveries, err := a.ch.Consume(a.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	a.logger.Info("consumer started", nil)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			a.handleDelivery(ctx, d, handler)
		}
	}
}

func (a *AMQP) handleDelivery(ctx context.Context, d amqp.Delivery, handler HandlerFunc) {
	var task ScoreTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		a.logger.Error("dropping malformed task", map[string]interface{}{"error": err, "messageId": d.MessageId})
		if err := d.Nack(false, false); err != nil {
			a.logger.Warn("nack failed", map[string]interface{}{"error": err})
		}
		return
	}

	if err := run(ctx, a.obs, handler, task); err != nil {
		a.logger.Warn("task failed, requeueing", map[string]interface{}{
			"applicantId": task.ApplicantID,
			"redelivered": d.Redelivered,
			"error":       err,
		})
		if err := d.Nack(false, true); err != nil {
			a.logger.Warn("nack failed", map[string]interface{}{"error": err})
		}
		return
	}

	if err := d.Ack(false); err != nil {
		a.logger.Warn("ack failed", map[string]interface{}{"error": err, "applicantId": task.ApplicantID})
	}
}

func (a *AMQP) Close() error {
	if err := a.ch.Close(); err != nil {
		a.logger.Warn("close channel", map[string]interface{}{"error": err})
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
