package unit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func qrOrder() model.Order {
	return model.Order{
		ID:             1,
		OrderNumber:    "ORD1700000000000",
		UserID:         5,
		Status:         model.OrderStatusPending,
		TotalAmount:    100,
		DiscountAmount: 20,
		PaymentMethod:  model.PaymentMethodQRTransfer,
		PaymentStatus:  model.PaymentStatusPending,
		CreatedAt:      time.Now(),
	}
}

func TestPaymentStatus_Pending(t *testing.T) {
	ctx := context.Background()

	tm := newTxManagerStub()
	tm.repos.orders.On("FindByID", mock.Anything, int64(1)).Return(qrOrder(), nil)

	uc := usecase.NewPaymentUsecase(tm, nil, noopPublisher(), true)

	out, err := uc.Status(ctx, 5, 1)
	assert.NoError(t, err)
	assert.False(t, out.Paid)
	assert.Equal(t, "pending", out.PaymentStatus)
}

func TestPaymentStatus_ForeignOrderIs404(t *testing.T) {
	ctx := context.Background()

	tm := newTxManagerStub()
	tm.repos.orders.On("FindByID", mock.Anything, int64(1)).Return(qrOrder(), nil)

	uc := usecase.NewPaymentUsecase(tm, nil, noopPublisher(), true)

	_, err := uc.Status(ctx, 999, 1)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

func TestPaymentQR_PayloadAndExpiry(t *testing.T) {
	ctx := context.Background()

	o := qrOrder()
	tm := newTxManagerStub()
	tm.repos.orders.On("FindByID", mock.Anything, int64(1)).Return(o, nil)

	uc := usecase.NewPaymentUsecase(tm, nil, noopPublisher(), true)

	out, err := uc.QR(ctx, 5, 1)
	assert.NoError(t, err)
	assert.Equal(t, 80.0, out.Amount)
	assert.Equal(t, o.CreatedAt.Add(15*time.Minute).Unix(), out.ExpiresAt.Unix())
	assert.Equal(t,
		fmt.Sprintf("PAY|%s|80.00|%d", o.OrderNumber, out.ExpiresAt.Unix()),
		out.QRPayload)
}

func TestPaymentQR_RejectsNonQROrder(t *testing.T) {
	ctx := context.Background()

	o := qrOrder()
	o.PaymentMethod = model.PaymentMethodCreditCard

	tm := newTxManagerStub()
	tm.repos.orders.On("FindByID", mock.Anything, int64(1)).Return(o, nil)

	uc := usecase.NewPaymentUsecase(tm, nil, noopPublisher(), true)

	_, err := uc.QR(ctx, 5, 1)
	assertErrContains(t, err, "not a qr_transfer order")
}

func TestPaymentQR_RejectsAlreadyPaid(t *testing.T) {
	ctx := context.Background()

	o := qrOrder()
	o.PaymentStatus = model.PaymentStatusCompleted

	tm := newTxManagerStub()
	tm.repos.orders.On("FindByID", mock.Anything, int64(1)).Return(o, nil)

	uc := usecase.NewPaymentUsecase(tm, nil, noopPublisher(), true)

	_, err := uc.QR(ctx, 5, 1)
	assertErrContains(t, err, "payment is not pending")
}

func TestSimulate_DisabledInProd(t *testing.T) {
	uc := usecase.NewPaymentUsecase(newTxManagerStub(), nil, noopPublisher(), false)

	_, err := uc.Simulate(context.Background(), 5, 1)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 403, he.Status)
	assertErrContains(t, err, "payment simulation is disabled")
}

func TestSimulate_Success_ConfirmsAndConsumesCoupon(t *testing.T) {
	ctx := context.Background()

	o := qrOrder()
	o.CouponCode = "SALE20"

	tm := newTxManagerStub()
	tm.repos.orders.On("FindByID", mock.Anything, int64(1)).Return(o, nil)
	tm.repos.orders.On("MarkPaymentCompleted", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return(true, nil)
	tm.repos.orders.On("UpdateStatus", mock.Anything, int64(1), model.OrderStatusConfirmed).Return(nil)
	tm.repos.coupons.On("FindByCode", mock.Anything, "SALE20").Return(validSale20(), nil)
	tm.repos.coupons.On("IncrementUsedCount", mock.Anything, int64(1)).Return(nil)

	cache := new(CacheMock)
	cache.On("Invalidate", mock.Anything, "SALE20").Return(nil)

	pub := new(PublisherMock)
	pub.On("PublishOrderEvent", mock.Anything, mock.MatchedBy(func(ev model.OrderEvent) bool {
		return ev.Type == model.OrderEventPaymentCompleted &&
			ev.Status == model.OrderStatusConfirmed &&
			ev.PaymentStatus == model.PaymentStatusCompleted
	})).Return(nil)

	uc := usecase.NewPaymentUsecase(tm, cache, pub, true)

	out, err := uc.Simulate(ctx, 5, 1)
	assert.NoError(t, err)
	assert.True(t, out.Paid)
	assert.Equal(t, "completed", out.PaymentStatus)
	assert.Equal(t, "confirmed", out.Status)
	assert.NotNil(t, out.PaidAt)

	tm.repos.orders.AssertExpectations(t)
	tm.repos.coupons.AssertExpectations(t)
	cache.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSimulate_SecondCompleteIs400(t *testing.T) {
	ctx := context.Background()

	o := qrOrder()
	o.PaymentStatus = model.PaymentStatusCompleted

	tm := newTxManagerStub()
	tm.repos.orders.On("FindByID", mock.Anything, int64(1)).Return(o, nil)
	// pending行だけ更新されるので二重確定は更新0件
	tm.repos.orders.On("MarkPaymentCompleted", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return(false, nil)

	uc := usecase.NewPaymentUsecase(tm, nil, noopPublisher(), true)

	_, err := uc.Simulate(ctx, 5, 1)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assertErrContains(t, err, "payment is not pending")

	// 失敗時はused_countを増やさない
	tm.repos.coupons.AssertNotCalled(t, "IncrementUsedCount", mock.Anything, mock.Anything)
}

func TestSimulate_ToleratesDeletedCoupon(t *testing.T) {
	ctx := context.Background()

	o := qrOrder()
	o.CouponCode = "GONE"

	tm := newTxManagerStub()
	tm.repos.orders.On("FindByID", mock.Anything, int64(1)).Return(o, nil)
	tm.repos.orders.On("MarkPaymentCompleted", mock.Anything, int64(1), mock.Anything, mock.Anything).
		Return(true, nil)
	tm.repos.orders.On("UpdateStatus", mock.Anything, int64(1), model.OrderStatusConfirmed).Return(nil)
	tm.repos.coupons.On("FindByCode", mock.Anything, "GONE").
		Return(model.Coupon{}, repo.ErrNotFound)

	uc := usecase.NewPaymentUsecase(tm, nil, noopPublisher(), true)

	out, err := uc.Simulate(ctx, 5, 1)
	assert.NoError(t, err)
	assert.True(t, out.Paid)
}
