package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
	publisher EventPublisher
}

func NewAdminOrderUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository, publisher EventPublisher) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, auditRepo: auditRepo, publisher: publisher}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminOverwriteOrderInput struct {
	Status        string
	PaymentStatus string
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
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

// UpdateStatus はPATCH用。cancelled以外の4値だけ受け付ける。
// 現在値からの遷移チェックはせず上書きする（巻き戻しも通る）。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := strings.TrimSpace(in.Status)
	switch model.OrderStatus(newStatus) {
	case model.OrderStatusPending, model.OrderStatusConfirmed, model.OrderStatusShipped, model.OrderStatusDelivered:
		// OK。cancelledはPUTの上書きでのみ受ける
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var before model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		before = o

		// すでに同じなら何もしない（200）
		if string(o.Status) == newStatus {
			return nil
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatus(newStatus)); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON := fmt.Sprintf(`{"status":%q}`, string(o.Status))
		afterJSON := fmt.Sprintf(`{"status":%q}`, newStatus)
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})

	if err != nil {
		return err
	}

	if string(before.Status) != newStatus {
		_ = u.publisher.PublishOrderEvent(ctx, model.OrderEvent{
			OrderID:       orderID,
			OrderNumber:   before.OrderNumber,
			UserID:        before.UserID,
			Type:          model.OrderEventStatusUpdated,
			Status:        model.OrderStatus(newStatus),
			PaymentStatus: before.PaymentStatus,
			Total:         before.TotalAmount,
			Occurred:      time.Now(),
		})
	}

	return nil
}

// Overwrite はPUT用。status/payment_statusを無条件に上書きする。
// cancelledへの変更やpaidからの巻き戻しもここでは通る。
func (u *AdminOrderUsecase) Overwrite(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminOverwriteOrderInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := strings.TrimSpace(in.Status)
	newPayment := strings.TrimSpace(in.PaymentStatus)
	if !model.IsValidOrderStatus(newStatus) {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if !model.IsValidPaymentStatus(newPayment) {
		return NewHTTPError(http.StatusBadRequest, "invalid payment_status")
	}

	var before model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		before = o

		if err := r.Orders().Overwrite(ctx, orderID, model.OrderStatus(newStatus), model.PaymentStatus(newPayment)); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		beforeJSON := fmt.Sprintf(`{"status":%q,"payment_status":%q}`, string(o.Status), string(o.PaymentStatus))
		afterJSON := fmt.Sprintf(`{"status":%q,"payment_status":%q}`, newStatus, newPayment)
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionOverwriteOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})

	if err != nil {
		return err
	}

	_ = u.publisher.PublishOrderEvent(ctx, model.OrderEvent{
		OrderID:       orderID,
		OrderNumber:   before.OrderNumber,
		UserID:        before.UserID,
		Type:          model.OrderEventStatusUpdated,
		Status:        model.OrderStatus(newStatus),
		PaymentStatus: model.PaymentStatus(newPayment),
		Total:         before.TotalAmount,
		Occurred:      time.Now(),
	})

	return nil
}
