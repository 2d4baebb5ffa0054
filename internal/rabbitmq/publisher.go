package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/credoria/credit-repair/internal/models"
)

// DisputePublisher публикует задачи обработки диспутов в очередь.
type DisputePublisher struct {
	ch *amqp.Channel
}

// NewDisputePublisher создает издателя задач обработки диспутов.
func NewDisputePublisher(ch *amqp.Channel) *DisputePublisher {
	return &DisputePublisher{ch: ch}
}

// PublishDisputeTask публикует задачу обработки диспута.
func (p *DisputePublisher) PublishDisputeTask(task models.DisputeTask) error {
	return PublishMessage(p.ch, DisputeExchange, DisputeRoutingKey, task)
}

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
