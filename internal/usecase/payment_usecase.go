package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

// QRの表示期限。期限切れでも注文は自動キャンセルされない
const qrValidity = 15 * time.Minute

type PaymentUsecase struct {
	tx        repo.TransactionManager
	cache     CouponCache
	publisher EventPublisher
	//simulate許可フラグ（prodではfalse）
	allowSimulate bool
}

func NewPaymentUsecase(tx repo.TransactionManager, cache CouponCache, publisher EventPublisher, allowSimulate bool) *PaymentUsecase {
	return &PaymentUsecase{
		tx:            tx,
		cache:         cache,
		publisher:     publisher,
		allowSimulate: allowSimulate,
	}
}

type PaymentStatusOutput struct {
	Paid          bool       `json:"paid"`
	PaymentStatus string     `json:"payment_status"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type PaymentQROutput struct {
	OrderNumber string    `json:"order_number"`
	Amount      float64   `json:"amount"`
	QRPayload   string    `json:"qr_payload"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Status はポーリング用の軽い応答を返す。
func (u *PaymentUsecase) Status(ctx context.Context, userID int64, orderID int64) (PaymentStatusOutput, error) {
	o, err := u.findOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return PaymentStatusOutput{}, err
	}

	return PaymentStatusOutput{
		Paid:          o.PaymentStatus == model.PaymentStatusCompleted,
		PaymentStatus: string(o.PaymentStatus),
		Status:        string(o.Status),
		PaidAt:        o.PaidAt,
	}, nil
}

// QR はqr_transfer注文の振込QRペイロードを返す。
func (u *PaymentUsecase) QR(ctx context.Context, userID int64, orderID int64) (PaymentQROutput, error) {
	o, err := u.findOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return PaymentQROutput{}, err
	}

	if o.PaymentMethod != model.PaymentMethodQRTransfer {
		return PaymentQROutput{}, NewHTTPError(http.StatusBadRequest, "order is not a qr_transfer order")
	}
	if o.PaymentStatus != model.PaymentStatusPending {
		return PaymentQROutput{}, NewHTTPError(http.StatusBadRequest, "payment is not pending")
	}

	amount := model.RoundAmount(o.TotalAmount - o.DiscountAmount)
	expiresAt := o.CreatedAt.Add(qrValidity)

	return PaymentQROutput{
		OrderNumber: o.OrderNumber,
		Amount:      amount,
		QRPayload:   fmt.Sprintf("PAY|%s|%.2f|%d", o.OrderNumber, amount, expiresAt.Unix()),
		ExpiresAt:   expiresAt,
	}, nil
}

// Simulate はゲートウェイなしで支払いを確定させるデモ用の入口。
// prodでは無効。pendingの注文だけ確定でき、二回目は400になる。
// クーポン付き注文なら、ここでused_countを1回だけ加算する。
func (u *PaymentUsecase) Simulate(ctx context.Context, userID int64, orderID int64) (PaymentStatusOutput, error) {
	if !u.allowSimulate {
		return PaymentStatusOutput{}, NewHTTPError(http.StatusForbidden, "payment simulation is disabled")
	}
	if userID <= 0 {
		return PaymentStatusOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return PaymentStatusOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var (
		order       model.Order
		paidAt      time.Time
		couponCode  string
		finalStatus model.OrderStatus
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		order = o

		paidAt = time.Now()
		details := model.PaymentDetails{
			TransactionID: "SIM-" + uuid.NewString(),
			PaymentNote:   "simulated payment",
		}

		//pendingの行だけ更新されるので二重確定はここで弾ける
		updated, err := r.Orders().MarkPaymentCompleted(ctx, orderID, paidAt, details)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !updated {
			return NewHTTPError(http.StatusBadRequest, "payment is not pending")
		}

		//入金されたらpendingの注文はconfirmedへ
		finalStatus = o.Status
		if o.Status == model.OrderStatusPending {
			if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusConfirmed); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			finalStatus = model.OrderStatusConfirmed
		}

		//クーポンの消化。支払い確定1回につき1回だけ
		if o.CouponCode != "" {
			coupon, err := r.Coupons().FindByCode(ctx, o.CouponCode)
			if err == repo.ErrNotFound {
				//クーポンが後から消されていても支払いは通す
				return nil
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := r.Coupons().IncrementUsedCount(ctx, coupon.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			couponCode = coupon.Code
		}

		return nil
	})

	if err != nil {
		return PaymentStatusOutput{}, err
	}

	//used_countが変わったのでキャッシュを落とす
	if couponCode != "" && u.cache != nil {
		_ = u.cache.Invalidate(ctx, couponCode)
	}

	_ = u.publisher.PublishOrderEvent(ctx, model.OrderEvent{
		OrderID:       orderID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Type:          model.OrderEventPaymentCompleted,
		Status:        finalStatus,
		PaymentStatus: model.PaymentStatusCompleted,
		Total:         order.TotalAmount,
		Occurred:      time.Now(),
	})

	return PaymentStatusOutput{
		Paid:          true,
		PaymentStatus: string(model.PaymentStatusCompleted),
		Status:        string(finalStatus),
		PaidAt:        &paidAt,
	}, nil
}

// 所有者チェック付きの注文取得。他人の注文は404扱い
func (u *PaymentUsecase) findOwnedOrder(ctx context.Context, userID int64, orderID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var order model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		order = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}
