package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type OrderUsecase struct {
	tx        repo.TransactionManager
	publisher EventPublisher
}

func NewOrderUsecase(tx repo.TransactionManager, publisher EventPublisher) *OrderUsecase {
	return &OrderUsecase{tx: tx, publisher: publisher}
}

type CheckoutItemInput struct {
	ProductID int64
	Quantity  int64
	//注文時点の単価。商品カタログとの再照合はしない
	UnitPrice float64
}

type ShippingAddressInput struct {
	RecipientName string
	Phone         string
	Address       string
	City          string
	Country       string
	PostalCode    string
}

type CheckoutInput struct {
	Items           []CheckoutItemInput
	ShippingAddress ShippingAddressInput
	PaymentMethod   string
	CouponCode      string
}

type OrderItemOutput struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

type OrderOutput struct {
	ID              int64                 `json:"id"`
	OrderNumber     string                `json:"order_number"`
	UserID          int64                 `json:"user_id"`
	Status          string                `json:"status"`
	PaymentMethod   string                `json:"payment_method"`
	PaymentStatus   string                `json:"payment_status"`
	TotalAmount     float64               `json:"total_amount"`
	CouponCode      string                `json:"coupon_code,omitempty"`
	DiscountAmount  float64               `json:"discount_amount"`
	FinalAmount     float64               `json:"final_amount"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	Items           []OrderItemOutput     `json:"items"`
}

func (in ShippingAddressInput) validate() error {
	if strings.TrimSpace(in.RecipientName) == "" {
		return NewHTTPError(http.StatusBadRequest, "recipient_name required")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return NewHTTPError(http.StatusBadRequest, "phone required")
	}
	if strings.TrimSpace(in.Address) == "" {
		return NewHTTPError(http.StatusBadRequest, "address required")
	}
	if strings.TrimSpace(in.City) == "" {
		return NewHTTPError(http.StatusBadRequest, "city required")
	}
	if strings.TrimSpace(in.Country) == "" {
		return NewHTTPError(http.StatusBadRequest, "country required")
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return NewHTTPError(http.StatusBadRequest, "postal_code required")
	}
	return nil
}

// Checkout は注文を作成する。
// 合計は送られてきた単価×数量の合計。在庫の減算や価格の再照合はしない。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(in.Items) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "items required")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if it.Quantity <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be > 0")
		}
		if it.UnitPrice < 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "price must be >= 0")
		}
	}
	if err := in.ShippingAddress.validate(); err != nil {
		return OrderOutput{}, err
	}
	if !model.IsValidPaymentMethod(in.PaymentMethod) {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}

	//小計（割引前）
	var subtotal float64
	for _, it := range in.Items {
		subtotal += it.UnitPrice * float64(it.Quantity)
	}
	subtotal = model.RoundAmount(subtotal)

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//クーポン（任意）。注文作成時は評価だけ、used_countは支払い確定で加算
		var discount float64
		couponCode := model.NormalizeCouponCode(in.CouponCode)
		if couponCode != "" {
			coupon, err := r.Coupons().FindByCode(ctx, couponCode)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "coupon does not exist")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			ev := coupon.Evaluate(subtotal, time.Now())
			if !ev.Applicable {
				return NewHTTPError(http.StatusBadRequest, ev.Reason)
			}
			discount = ev.Discount
		}

		//商品名のスナップショット用に商品を引く（価格は再照合しない）
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "invalid product")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "invalid product")
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID:           it.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   it.UnitPrice,
				Quantity:            it.Quantity,
			})
		}

		now := time.Now()
		order := model.Order{
			OrderNumber: model.NewOrderNumber(now),
			UserID:      userID,
			Status:      model.OrderStatusPending,
			TotalAmount: subtotal,
			CouponCode:  couponCode,
			//割引は作成時のスナップショット。以後再計算しない
			DiscountAmount: discount,
			ShippingAddress: model.ShippingAddress{
				RecipientName: strings.TrimSpace(in.ShippingAddress.RecipientName),
				Phone:         strings.TrimSpace(in.ShippingAddress.Phone),
				Address:       strings.TrimSpace(in.ShippingAddress.Address),
				City:          strings.TrimSpace(in.ShippingAddress.City),
				Country:       strings.TrimSpace(in.ShippingAddress.Country),
				PostalCode:    strings.TrimSpace(in.ShippingAddress.PostalCode),
			},
			PaymentMethod: model.PaymentMethod(in.PaymentMethod),
			PaymentStatus: model.PaymentStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	//イベント発行は失敗しても注文は成立している
	_ = u.publisher.PublishOrderEvent(ctx, model.OrderEvent{
		OrderID:       out.ID,
		OrderNumber:   out.OrderNumber,
		UserID:        userID,
		Type:          model.OrderEventCreated,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		Total:         out.TotalAmount,
		Occurred:      time.Now(),
	})

	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ページングはまず固定で取る
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			Subtotal:  model.RoundAmount(it.UnitPriceSnapshot * float64(it.Quantity)),
		})
	}

	return OrderOutput{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		TotalAmount:     o.TotalAmount,
		CouponCode:      o.CouponCode,
		DiscountAmount:  o.DiscountAmount,
		FinalAmount:     model.RoundAmount(o.TotalAmount - o.DiscountAmount),
		ShippingAddress: o.ShippingAddress,
		PaidAt:          o.PaidAt,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
	}
}
