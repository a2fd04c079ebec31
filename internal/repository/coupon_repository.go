package repository

import (
	"context"

	"app/internal/domain/model"
)

type CouponListQuery struct {
	Page  int
	Limit int
	//空なら全件
	ActiveOnly bool
}

type CouponRepository interface {
	//codeは正規化（大文字）済みを渡す
	FindByCode(ctx context.Context, code string) (model.Coupon, error)
	FindByID(ctx context.Context, id int64) (model.Coupon, error)
	List(ctx context.Context, q CouponListQuery) ([]model.Coupon, int64, error)

	Create(ctx context.Context, c model.Coupon) (model.Coupon, error)
	Update(ctx context.Context, c model.Coupon) error
	SoftDelete(ctx context.Context, id int64) error

	//used_countを+1する（支払い確定ごとに1回だけ呼ぶ）
	IncrementUsedCount(ctx context.Context, id int64) error
}
