package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"classroom-quiz-service/internal/apperror"

	"github.com/rabbitmq/amqp091-go"
)

type Consumer interface {
	Start() error
	Close() error
}

// ModuleLinkRemover drops the quiz links of a deleted module.
type ModuleLinkRemover interface {
	RemoveModuleLinks(ctx context.Context, moduleID string) (int64, error)
}

// EventConsumer keeps quiz to module links in step with module deletions in the course service.
type EventConsumer struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string
	remover   ModuleLinkRemover
	enabled   bool
}

func NewEventConsumer(rabbitURI, exchangeName, queueName string, remover ModuleLinkRemover) (*EventConsumer, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event consumption is disabled")
		return &EventConsumer{enabled: false}, nil
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

	queue, err := channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range []string{EventTypeModuleDeleted, EventTypeGroupDeleted} {
		if err := channel.QueueBind(queue.Name, key, exchangeName, false, nil); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}

	return &EventConsumer{
		conn:      conn,
		channel:   channel,
		queueName: queue.Name,
		remover:   remover,
		enabled:   true,
	}, nil
}

func (c *EventConsumer) Start() error {
	if !c.enabled {
		log.Println("Event consumption is disabled")
		return nil
	}

	if err := c.channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			if err := c.processMessage(msg); err != nil {
				log.Printf("Failed to process message: %v", err)
				msg.Nack(false, true)
			} else {
				msg.Ack(false)
			}
		}
	}()

	log.Println("Event consumer started, waiting for course events...")
	return nil
}

func (c *EventConsumer) processMessage(msg amqp091.Delivery) error {
	log.Printf("Received message with routing key: %s", msg.RoutingKey)

	switch msg.RoutingKey {
	case EventTypeModuleDeleted:
		return c.handleModuleDeleted(msg.Body)
	case EventTypeGroupDeleted:
		// module.deleted arrives for every module of the group
		log.Printf("Ignoring %s, links are removed per module", msg.RoutingKey)
		return nil
	default:
		log.Printf("Unknown routing key: %s", msg.RoutingKey)
		return nil
	}
}

func (c *EventConsumer) handleModuleDeleted(body []byte) error {
	var event CourseEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// a malformed message would be redelivered forever
		log.Printf("Dropping malformed module event: %v", err)
		return nil
	}
	if event.ModuleID == "" {
		log.Println("Dropping module event without moduleId")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := c.remover.RemoveModuleLinks(ctx, event.ModuleID)
	if apperror.Is(err, apperror.InvalidPayload) {
		log.Printf("Dropping module event with invalid moduleId %q", event.ModuleID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove links for module %s: %w", event.ModuleID, err)
	}

	log.Printf("Removed %d quiz links for deleted module %s", removed, event.ModuleID)
	return nil
}

func (c *EventConsumer) Close() error {
	if !c.enabled {
		return nil
	}

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			log.Printf("Error closing RabbitMQ channel: %v", err)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}

	return nil
}
