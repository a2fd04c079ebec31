package unit

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func validAddress() usecase.ShippingAddressInput {
	return usecase.ShippingAddressInput{
		RecipientName: "Taro Yamada",
		Phone:         "090-0000-0000",
		Address:       "1-2-3 Chuo",
		City:          "Tokyo",
		Country:       "JP",
		PostalCode:    "100-0001",
	}
}

func noopPublisher() *PublisherMock {
	p := new(PublisherMock)
	p.On("PublishOrderEvent", mock.Anything, mock.Anything).Return(nil)
	return p
}

func TestCheckout_Success(t *testing.T) {
	ctx := context.Background()

	tm := newTxManagerStub()
	tm.repos.products.On("FindByID", mock.Anything, int64(10)).
		Return(model.Product{ID: 10, Name: "Coffee Beans", IsActive: true}, nil)
	tm.repos.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID == int64(5) &&
			o.Status == model.OrderStatusPending &&
			o.PaymentStatus == model.PaymentStatusPending &&
			o.TotalAmount == 25.0
	})).Return(int64(100), nil)
	tm.repos.orderItems.On("CreateBulk", mock.Anything, int64(100), mock.Anything).Return(nil)

	pub := noopPublisher()
	uc := usecase.NewOrderUsecase(tm, pub)

	// 2 x 12.50 = 25.00
	out, err := uc.Checkout(ctx, 5, usecase.CheckoutInput{
		Items: []usecase.CheckoutItemInput{
			{ProductID: 10, Quantity: 2, UnitPrice: 12.50},
		},
		ShippingAddress: validAddress(),
		PaymentMethod:   "qr_transfer",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(100), out.ID)
	assert.Equal(t, 25.0, out.TotalAmount)
	assert.Equal(t, 25.0, out.FinalAmount)
	assert.Equal(t, "pending", out.Status)
	assert.Equal(t, "pending", out.PaymentStatus)
	assert.Equal(t, "Coffee Beans", out.Items[0].Name)

	tm.repos.orders.AssertExpectations(t)
	tm.repos.orderItems.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCheckout_AppliesCouponSnapshot(t *testing.T) {
	ctx := context.Background()

	tm := newTxManagerStub()
	tm.repos.coupons.On("FindByCode", mock.Anything, "SALE20").Return(validSale20(), nil)
	tm.repos.products.On("FindByID", mock.Anything, int64(10)).
		Return(model.Product{ID: 10, Name: "Coffee Beans", IsActive: true}, nil)
	tm.repos.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		// 100 * 20% = 20 のスナップショット
		return o.CouponCode == "SALE20" && o.DiscountAmount == 20.0 && o.TotalAmount == 100.0
	})).Return(int64(101), nil)
	tm.repos.orderItems.On("CreateBulk", mock.Anything, int64(101), mock.Anything).Return(nil)

	uc := usecase.NewOrderUsecase(tm, noopPublisher())

	out, err := uc.Checkout(ctx, 5, usecase.CheckoutInput{
		Items: []usecase.CheckoutItemInput{
			{ProductID: 10, Quantity: 4, UnitPrice: 25},
		},
		ShippingAddress: validAddress(),
		PaymentMethod:   "credit_card",
		CouponCode:      "sale20",
	})
	assert.NoError(t, err)
	assert.Equal(t, 20.0, out.DiscountAmount)
	assert.Equal(t, 80.0, out.FinalAmount)

	// used_countは注文作成では増えない
	tm.repos.coupons.AssertNotCalled(t, "IncrementUsedCount", mock.Anything, mock.Anything)
}

func TestCheckout_CouponNotApplicableIs400(t *testing.T) {
	ctx := context.Background()

	c := validSale20()
	c.MinPurchaseAmount = 500

	tm := newTxManagerStub()
	tm.repos.coupons.On("FindByCode", mock.Anything, "SALE20").Return(c, nil)

	uc := usecase.NewOrderUsecase(tm, noopPublisher())

	_, err := uc.Checkout(ctx, 5, usecase.CheckoutInput{
		Items: []usecase.CheckoutItemInput{
			{ProductID: 10, Quantity: 1, UnitPrice: 100},
		},
		ShippingAddress: validAddress(),
		PaymentMethod:   "credit_card",
		CouponCode:      "SALE20",
	})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assertErrContains(t, err, "minimum purchase")
}

func TestCheckout_EmptyItems(t *testing.T) {
	uc := usecase.NewOrderUsecase(newTxManagerStub(), noopPublisher())

	_, err := uc.Checkout(context.Background(), 5, usecase.CheckoutInput{
		ShippingAddress: validAddress(),
		PaymentMethod:   "credit_card",
	})
	assertErrContains(t, err, "items required")
}

func TestCheckout_InvalidPaymentMethod(t *testing.T) {
	uc := usecase.NewOrderUsecase(newTxManagerStub(), noopPublisher())

	_, err := uc.Checkout(context.Background(), 5, usecase.CheckoutInput{
		Items: []usecase.CheckoutItemInput{
			{ProductID: 10, Quantity: 1, UnitPrice: 10},
		},
		ShippingAddress: validAddress(),
		PaymentMethod:   "paypal",
	})
	assertErrContains(t, err, "invalid payment_method")
}

func TestCheckout_InactiveProduct(t *testing.T) {
	ctx := context.Background()

	tm := newTxManagerStub()
	tm.repos.products.On("FindByID", mock.Anything, int64(10)).
		Return(model.Product{ID: 10, Name: "Old", IsActive: false}, nil)

	uc := usecase.NewOrderUsecase(tm, noopPublisher())

	_, err := uc.Checkout(ctx, 5, usecase.CheckoutInput{
		Items: []usecase.CheckoutItemInput{
			{ProductID: 10, Quantity: 1, UnitPrice: 10},
		},
		ShippingAddress: validAddress(),
		PaymentMethod:   "credit_card",
	})
	assertErrContains(t, err, "invalid product")
}

func TestGetMyOrderDetail_ForeignOrderIs404(t *testing.T) {
	ctx := context.Background()

	tm := newTxManagerStub()
	tm.repos.orders.On("FindByID", mock.Anything, int64(7)).
		Return(model.Order{ID: 7, UserID: 99}, nil)

	uc := usecase.NewOrderUsecase(tm, noopPublisher())

	_, err := uc.GetMyOrderDetail(ctx, 5, 7)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

func TestGetMyOrderDetail_NotFound(t *testing.T) {
	ctx := context.Background()

	tm := newTxManagerStub()
	tm.repos.orders.On("FindByID", mock.Anything, int64(7)).
		Return(model.Order{}, repo.ErrNotFound)

	uc := usecase.NewOrderUsecase(tm, noopPublisher())

	_, err := uc.GetMyOrderDetail(ctx, 5, 7)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

func TestListMyOrders_IncludesItems(t *testing.T) {
	ctx := context.Background()

	tm := newTxManagerStub()
	tm.repos.orders.On("ListByUserID", mock.Anything, int64(5), 1, 50).
		Return([]model.Order{{ID: 1, UserID: 5, TotalAmount: 30, DiscountAmount: 5}}, int64(1), nil)
	tm.repos.orderItems.On("ListByOrderID", mock.Anything, int64(1)).
		Return([]model.OrderItem{{ProductID: 10, ProductNameSnapshot: "A", UnitPriceSnapshot: 15, Quantity: 2}}, nil)

	uc := usecase.NewOrderUsecase(tm, noopPublisher())

	out, err := uc.ListMyOrders(ctx, 5)
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, 25.0, out[0].FinalAmount)
	assert.Equal(t, 30.0, out[0].Items[0].Subtotal)
}
