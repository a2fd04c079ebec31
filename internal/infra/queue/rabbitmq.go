package queue

import (
	"context"
	"encoding/json"
	"time"

	"app/internal/domain/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

const orderEventsQueue = "order_events"

// 注文イベントをRabbitMQに流す。
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQPublisher(url string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	//キュー宣言（durable）
	if _, err := ch.QueueDeclare(
		orderEventsQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQPublisher{conn: conn, channel: ch}, nil
}

func (p *RabbitMQPublisher) PublishOrderEvent(ctx context.Context, ev model.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Body:         body,
	}

	return p.channel.PublishWithContext(
		ctx,
		"", // default exchange
		orderEventsQueue,
		false, // mandatory
		false, // immediate
		msg,
	)
}

func (p *RabbitMQPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// RABBITMQ_URL未設定のときの差し替え。何もしない。
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(ctx context.Context, ev model.OrderEvent) error {
	return nil
}
