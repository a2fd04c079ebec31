package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page          int
	Limit         int
	Status        string
	PaymentStatus string
	UserID        *int64
	From          *time.Time
	To            *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//status/payment_statusの無条件上書き（管理者のPUT用）
	Overwrite(ctx context.Context, orderID int64, status model.OrderStatus, paymentStatus model.PaymentStatus) error

	//支払い確定。payment_statusがpendingの行だけ更新し、更新できたかを返す
	MarkPaymentCompleted(ctx context.Context, orderID int64, paidAt time.Time, details model.PaymentDetails) (bool, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
