package usecase

import (
	"context"

	"app/internal/domain/model"
)

// クーポンのread-throughキャッシュの約束。
// ミスはErrCacheMiss相当のエラーで返し、usecaseはDBへフォールバックする。
type CouponCache interface {
	Get(ctx context.Context, code string) (model.Coupon, error)
	Set(ctx context.Context, coupon model.Coupon) error
	Invalidate(ctx context.Context, code string) error
}

// 注文イベント発行の約束（RabbitMQ実装 or noop）。
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev model.OrderEvent) error
}
