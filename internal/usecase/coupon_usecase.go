package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type CouponUsecase struct {
	coupons   repo.CouponRepository
	cache     CouponCache // nilならキャッシュなし
	auditRepo repo.AuditLogRepository
}

// DI
func NewCouponUsecase(coupons repo.CouponRepository, cache CouponCache, auditRepo repo.AuditLogRepository) *CouponUsecase {
	return &CouponUsecase{
		coupons:   coupons,
		cache:     cache,
		auditRepo: auditRepo,
	}
}

type CouponDTO struct {
	Code          string  `json:"code"`
	DiscountType  string  `json:"discount_type"`
	DiscountValue float64 `json:"discount_value"`
}

type ValidateCouponOutput struct {
	Success     bool      `json:"success"`
	Coupon      CouponDTO `json:"coupon"`
	Discount    float64   `json:"discount"`
	Subtotal    float64   `json:"subtotal"`
	FinalAmount float64   `json:"final_amount"`
}

// Validate はクーポンの適用可否と割引額を返す。評価だけで副作用はない。
func (u *CouponUsecase) Validate(ctx context.Context, code string, subtotal float64) (ValidateCouponOutput, error) {
	normalized := model.NormalizeCouponCode(code)
	if normalized == "" {
		return ValidateCouponOutput{}, NewHTTPError(http.StatusBadRequest, "code required")
	}
	if subtotal <= 0 {
		return ValidateCouponOutput{}, NewHTTPError(http.StatusBadRequest, "subtotal must be > 0")
	}

	coupon, err := u.findCoupon(ctx, normalized)
	if err == repo.ErrNotFound {
		return ValidateCouponOutput{}, NewHTTPError(http.StatusNotFound, "coupon does not exist")
	}
	if err != nil {
		return ValidateCouponOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	ev := coupon.Evaluate(subtotal, time.Now())
	if !ev.Applicable {
		return ValidateCouponOutput{}, NewHTTPError(http.StatusBadRequest, ev.Reason)
	}

	return ValidateCouponOutput{
		Success: true,
		Coupon: CouponDTO{
			Code:          coupon.Code,
			DiscountType:  string(coupon.DiscountType),
			DiscountValue: coupon.DiscountValue,
		},
		Discount:    ev.Discount,
		Subtotal:    subtotal,
		FinalAmount: model.RoundAmount(subtotal - ev.Discount),
	}, nil
}

// キャッシュ→DBの順で取得。キャッシュ障害はDBフォールバックで握る
func (u *CouponUsecase) findCoupon(ctx context.Context, code string) (model.Coupon, error) {
	if u.cache != nil {
		if c, err := u.cache.Get(ctx, code); err == nil {
			return c, nil
		}
	}

	c, err := u.coupons.FindByCode(ctx, code)
	if err != nil {
		return model.Coupon{}, err
	}

	if u.cache != nil {
		_ = u.cache.Set(ctx, c)
	}
	return c, nil
}

type AdminCouponInput struct {
	Code              string
	DiscountType      string
	DiscountValue     float64
	MinPurchaseAmount float64
	MaxDiscountAmount *float64
	UsageLimit        *int64
	ValidFrom         time.Time
	ValidUntil        time.Time
	IsActive          bool
}

func (in AdminCouponInput) validate() error {
	if model.NormalizeCouponCode(in.Code) == "" {
		return NewHTTPError(http.StatusBadRequest, "code required")
	}
	switch model.DiscountType(in.DiscountType) {
	case model.DiscountTypePercentage:
		if in.DiscountValue < 0 || in.DiscountValue > 100 {
			return NewHTTPError(http.StatusBadRequest, "discount_value must be between 0 and 100")
		}
	case model.DiscountTypeFixed:
		if in.DiscountValue < 0 {
			return NewHTTPError(http.StatusBadRequest, "discount_value must be >= 0")
		}
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid discount_type")
	}
	if in.MinPurchaseAmount < 0 {
		return NewHTTPError(http.StatusBadRequest, "min_purchase_amount must be >= 0")
	}
	if in.MaxDiscountAmount != nil && *in.MaxDiscountAmount <= 0 {
		return NewHTTPError(http.StatusBadRequest, "max_discount_amount must be > 0")
	}
	if in.UsageLimit != nil && *in.UsageLimit <= 0 {
		return NewHTTPError(http.StatusBadRequest, "usage_limit must be > 0")
	}
	if in.ValidFrom.IsZero() || in.ValidUntil.IsZero() {
		return NewHTTPError(http.StatusBadRequest, "valid_from and valid_until required")
	}
	if in.ValidUntil.Before(in.ValidFrom) {
		return NewHTTPError(http.StatusBadRequest, "valid_until must not be before valid_from")
	}
	return nil
}

type CouponListOutput struct {
	Items []model.Coupon `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func (u *CouponUsecase) AdminListCoupons(ctx context.Context, page int, limit int) (CouponListOutput, error) {
	if page < 1 {
		return CouponListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return CouponListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	items, total, err := u.coupons.List(ctx, repo.CouponListQuery{Page: page, Limit: limit})
	if err != nil {
		return CouponListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return CouponListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (u *CouponUsecase) AdminCreateCoupon(ctx context.Context, adminUserID int64, in AdminCouponInput) (model.Coupon, error) {
	if adminUserID <= 0 {
		return model.Coupon{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := in.validate(); err != nil {
		return model.Coupon{}, err
	}

	code := model.NormalizeCouponCode(in.Code)

	//重複コードは409
	if _, err := u.coupons.FindByCode(ctx, code); err == nil {
		return model.Coupon{}, NewHTTPError(http.StatusConflict, "coupon code already exists")
	} else if err != repo.ErrNotFound {
		return model.Coupon{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	created, err := u.coupons.Create(ctx, model.Coupon{
		Code:              code,
		DiscountType:      model.DiscountType(in.DiscountType),
		DiscountValue:     in.DiscountValue,
		MinPurchaseAmount: in.MinPurchaseAmount,
		MaxDiscountAmount: in.MaxDiscountAmount,
		UsageLimit:        in.UsageLimit,
		ValidFrom:         in.ValidFrom,
		ValidUntil:        in.ValidUntil,
		IsActive:          in.IsActive,
	})
	if err != nil {
		return model.Coupon{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.writeAudit(ctx, adminUserID, model.AuditActionCreateCoupon, created.ID, "{}", couponAuditJSON(created))

	return created, nil
}

func (u *CouponUsecase) AdminUpdateCoupon(ctx context.Context, adminUserID int64, couponID int64, in AdminCouponInput) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if couponID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := in.validate(); err != nil {
		return err
	}

	before, err := u.coupons.FindByID(ctx, couponID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	updated := before
	updated.Code = model.NormalizeCouponCode(in.Code)
	updated.DiscountType = model.DiscountType(in.DiscountType)
	updated.DiscountValue = in.DiscountValue
	updated.MinPurchaseAmount = in.MinPurchaseAmount
	updated.MaxDiscountAmount = in.MaxDiscountAmount
	updated.UsageLimit = in.UsageLimit
	updated.ValidFrom = in.ValidFrom
	updated.ValidUntil = in.ValidUntil
	updated.IsActive = in.IsActive

	if err := u.coupons.Update(ctx, updated); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//旧コード・新コード両方のキャッシュを落とす
	if u.cache != nil {
		_ = u.cache.Invalidate(ctx, before.Code)
		_ = u.cache.Invalidate(ctx, updated.Code)
	}

	u.writeAudit(ctx, adminUserID, model.AuditActionUpdateCoupon, couponID, couponAuditJSON(before), couponAuditJSON(updated))

	return nil
}

func (u *CouponUsecase) AdminDeleteCoupon(ctx context.Context, adminUserID int64, couponID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if couponID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	before, err := u.coupons.FindByID(ctx, couponID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.coupons.SoftDelete(ctx, couponID); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if u.cache != nil {
		_ = u.cache.Invalidate(ctx, before.Code)
	}

	u.writeAudit(ctx, adminUserID, model.AuditActionDeleteCoupon, couponID, couponAuditJSON(before), "{}")

	return nil
}

// 監査ログ。失敗しても操作自体は成功扱い
func (u *CouponUsecase) writeAudit(ctx context.Context, actorID int64, action model.AuditAction, couponID int64, beforeJSON string, afterJSON string) {
	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceCoupon,
		ResourceID:   couponID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	})
}

func couponAuditJSON(c model.Coupon) string {
	return fmt.Sprintf(`{"code":%q,"discount_type":%q,"discount_value":%g,"is_active":%t}`,
		c.Code, string(c.DiscountType), c.DiscountValue, c.IsActive)
}
