package model

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodDebitCard      PaymentMethod = "debit_card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodQRTransfer     PaymentMethod = "qr_transfer"
)

// 配送先。Orderに埋め込み（住所帳は持たない）
type ShippingAddress struct {
	RecipientName string `gorm:"type:varchar(255);not null" json:"recipient_name"`
	Phone         string `gorm:"type:varchar(50);not null" json:"phone"`
	Address       string `gorm:"type:varchar(255);not null" json:"address"`
	City          string `gorm:"type:varchar(100);not null" json:"city"`
	Country       string `gorm:"type:varchar(100);not null" json:"country"`
	PostalCode    string `gorm:"type:varchar(20);not null" json:"postal_code"`
}

// 支払い確定時に入るゲートウェイ情報
type PaymentDetails struct {
	TransactionID string `gorm:"type:varchar(255)" json:"transaction_id,omitempty"`
	PaymentNote   string `gorm:"type:varchar(255)" json:"payment_note,omitempty"`
}

type Order struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	//作成時刻から採番。以後変わらない
	OrderNumber     string          `gorm:"type:varchar(50);not null;uniqueIndex" json:"order_number"`
	UserID          int64           `gorm:"not null;index" json:"user_id"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalAmount     float64         `gorm:"not null" json:"total_amount"`
	CouponCode      string          `gorm:"type:varchar(50)" json:"coupon_code,omitempty"`
	DiscountAmount  float64         `gorm:"not null;default:0" json:"discount_amount"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(30);not null" json:"payment_method"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	PaymentDetails  PaymentDetails  `gorm:"embedded;embeddedPrefix:payment_" json:"payment_details"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// NewOrderNumber は作成時刻（ミリ秒）から注文番号を作ります。
// 同一ミリ秒の衝突はここでは防げない（uniqueIndexで弾かれる）。
func NewOrderNumber(t time.Time) string {
	return fmt.Sprintf("ORD%d", t.UnixMilli())
}

// 有効なステータス値か（cancelledを含む）
func IsValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func IsValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func IsValidPaymentMethod(s string) bool {
	switch PaymentMethod(s) {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodBankTransfer,
		PaymentMethodCashOnDelivery, PaymentMethodQRTransfer:
		return true
	}
	return false
}
