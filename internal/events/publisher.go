// Package events publishes domain events (limits changed, meal logged, ...)
// to RabbitMQ for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

const (
	LimitsUpdated  = "limits.updated"
	MealLogged     = "meal.logged"
	WeightLogged   = "weight.logged"
	ExerciseLogged = "exercise.logged"
)

// Event is the JSON envelope written to the queue.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	UserID     int         `json:"user_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// New stamps an event with a fresh ID and the current time.
func New(eventType string, userID int, payload interface{}) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// AMQPPublisher writes events to a durable RabbitMQ queue.
type AMQPPublisher struct {
	mu        sync.Mutex
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string
	cb        *gobreaker.CircuitBreaker
}

// NewAMQPPublisher dials url and declares queueName.
func NewAMQPPublisher(url, queueName string) (*AMQPPublisher, error) {
	if queueName == "" {
		queueName = "biteright.events"
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	log.Printf("[events] connected to RabbitMQ, queue %s", queueName)
	return &AMQPPublisher{
		conn:      conn,
		channel:   ch,
		queueName: queueName,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "rabbitmq",
			MaxRequests: 5,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
	}, nil
}

// Publish sends e as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := Encode(e)
	if err != nil {
		return err
	}
	_, err = p.cb.Execute(func() (interface{}, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return nil, p.channel.PublishWithContext(ctx, "", p.queueName, false, false, amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    e.ID.String(),
			Type:         e.Type,
			Timestamp:    e.OccurredAt,
			Body:         body,
		})
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Encode marshals an event envelope.
func Encode(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", e.Type, err)
	}
	return body, nil
}

// PublishAsync fires e in the background and only logs failures; a broker
// outage never fails the request that produced the event.
func PublishAsync(p Publisher, e Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, e); err != nil {
			log.Printf("[events] %v", err)
		}
	}()
}
