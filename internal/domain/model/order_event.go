package model

import "time"

type OrderEventType string

const (
	OrderEventCreated          OrderEventType = "created"
	OrderEventPaymentCompleted OrderEventType = "payment_completed"
	OrderEventStatusUpdated    OrderEventType = "status_updated"
)

// 注文の状態変化を通知するイベント（RabbitMQへ流す）
type OrderEvent struct {
	OrderID       int64          `json:"order_id"`
	OrderNumber   string         `json:"order_number"`
	UserID        int64          `json:"user_id"`
	Type          OrderEventType `json:"type"`
	Status        OrderStatus    `json:"status"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	Total         float64        `json:"total"`
	Occurred      time.Time      `json:"occurred"`
}
