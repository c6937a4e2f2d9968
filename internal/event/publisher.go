package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"classroom-quiz-service/internal/models"

	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type Publisher interface {
	PublishQuizCreated(ctx context.Context, quiz *models.Quiz, moduleIDs []bson.ObjectID) error
	PublishQuizUpdated(ctx context.Context, quiz *models.Quiz, moduleIDs, orphaned []bson.ObjectID) error
	PublishQuizDeleted(ctx context.Context, quizID bson.ObjectID, orphaned []bson.ObjectID) error
	PublishSubmissionCreated(ctx context.Context, submission *models.Submission) error
	Close() error
}

type EventPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	enabled      bool
}

// NewEventPublisher connects to RabbitMQ and declares the topic exchange. An empty URI
// returns a disabled publisher that drops events.
func NewEventPublisher(rabbitURI, exchangeName string) (*EventPublisher, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{enabled: false}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		enabled:      true,
	}, nil
}

// NewDisabledPublisher returns a publisher that drops every event.
func NewDisabledPublisher() *EventPublisher {
	return &EventPublisher{enabled: false}
}

func (p *EventPublisher) publishEvent(ctx context.Context, routingKey string, event any) error {
	if p == nil || !p.enabled {
		log.Printf("Event publishing is disabled, skipping event: %s", routingKey)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Printf("Published event: %s", routingKey)
	return nil
}

func (p *EventPublisher) PublishQuizCreated(ctx context.Context, quiz *models.Quiz, moduleIDs []bson.ObjectID) error {
	return p.publishEvent(ctx, EventTypeQuizCreated, NewQuizEvent(EventTypeQuizCreated, quiz, moduleIDs, nil))
}

func (p *EventPublisher) PublishQuizUpdated(ctx context.Context, quiz *models.Quiz, moduleIDs, orphaned []bson.ObjectID) error {
	return p.publishEvent(ctx, EventTypeQuizUpdated, NewQuizEvent(EventTypeQuizUpdated, quiz, moduleIDs, orphaned))
}

func (p *EventPublisher) PublishQuizDeleted(ctx context.Context, quizID bson.ObjectID, orphaned []bson.ObjectID) error {
	quiz := &models.Quiz{ID: quizID}
	return p.publishEvent(ctx, EventTypeQuizDeleted, NewQuizEvent(EventTypeQuizDeleted, quiz, nil, orphaned))
}

func (p *EventPublisher) PublishSubmissionCreated(ctx context.Context, submission *models.Submission) error {
	return p.publishEvent(ctx, EventTypeSubmissionCreated, NewSubmissionEvent(submission))
}

func (p *EventPublisher) Close() error {
	if p == nil || !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Printf("Error closing RabbitMQ channel: %v", err)
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}

	return nil
}
