package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DeclareBindAndConsume binds an exclusive, server-named queue to the topic exchange.
func DeclareBindAndConsume(ch *amqp.Channel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	name := getName(prefix, topic)
	if err := DefineTopic(ch, prefix, topic); err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	if err := ch.QueueBind(q.Name, name, name, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(
		q.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
}

// ListenToTopic decodes every delivery into V and hands it to handle in a background
// goroutine. Deliveries that fail to decode or handle are rejected without requeue.
func ListenToTopic[V any](ch *amqp.Channel, prefix string, topic ChangeTopic, logger *log.Logger, handle func(V) error) error {
	deliveries, err := DeclareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}

	go func() {
		defer ch.Close()
		for d := range deliveries {
			if err := Decode(d.Body, handle); err != nil {
				logger.Error("error processing message", "topic", topic, "err", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}()
	return nil
}

// Decode unmarshals body into V and calls handle.
func Decode[V any](body []byte, handle func(V) error) error {
	var v V
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return handle(v)
}
