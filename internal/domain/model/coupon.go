package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID                int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Code              string       `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	DiscountType      DiscountType `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue     float64      `gorm:"not null" json:"discount_value"`
	MinPurchaseAmount float64      `gorm:"not null;default:0" json:"min_purchase_amount"`
	//percentage型の割引上限。未設定なら上限なし
	MaxDiscountAmount *float64 `json:"max_discount_amount,omitempty"`
	//未設定なら無制限
	UsageLimit *int64         `json:"usage_limit,omitempty"`
	UsedCount  int64          `gorm:"not null;default:0" json:"used_count"`
	ValidFrom  time.Time      `gorm:"not null" json:"valid_from"`
	ValidUntil time.Time      `gorm:"not null" json:"valid_until"`
	IsActive   bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// クーポンコードは大文字で統一
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type CouponEvaluation struct {
	Applicable bool
	Discount   float64
	Reason     string
}

// 小数2桁へ丸める（100倍して四捨五入）
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

// Evaluate は subtotal に対するクーポンの適用可否と割引額を判定します。
// チェックは順番に行い、最初に落ちたところの理由を返します。
// 評価だけで副作用はなし（used_count は支払い確定時に加算）。
func (c *Coupon) Evaluate(subtotal float64, now time.Time) CouponEvaluation {
	if !c.IsActive {
		return CouponEvaluation{Reason: "coupon is deactivated"}
	}
	if now.Before(c.ValidFrom) {
		return CouponEvaluation{Reason: fmt.Sprintf("coupon is not yet valid, effective from %s", c.ValidFrom.Format("2006-01-02"))}
	}
	if now.After(c.ValidUntil) {
		return CouponEvaluation{Reason: "coupon has expired"}
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return CouponEvaluation{Reason: "coupon usage limit reached"}
	}
	if subtotal < c.MinPurchaseAmount {
		return CouponEvaluation{Reason: fmt.Sprintf("subtotal below the minimum purchase amount of %.2f", c.MinPurchaseAmount)}
	}

	var discount float64
	switch c.DiscountType {
	case DiscountTypePercentage:
		discount = subtotal * c.DiscountValue / 100
		if c.MaxDiscountAmount != nil && discount > *c.MaxDiscountAmount {
			discount = *c.MaxDiscountAmount
		}
	case DiscountTypeFixed:
		discount = c.DiscountValue
		//割引は対象のsubtotalを超えない
		if discount > subtotal {
			discount = subtotal
		}
	default:
		return CouponEvaluation{Reason: "unknown discount type"}
	}

	return CouponEvaluation{
		Applicable: true,
		Discount:   RoundAmount(discount),
	}
}
