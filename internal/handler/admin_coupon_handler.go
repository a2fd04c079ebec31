package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin/coupons の管理API
type AdminCouponHandler struct {
	uc *usecase.CouponUsecase
}

// DI
func NewAdminCouponHandler(uc *usecase.CouponUsecase) *AdminCouponHandler {
	return &AdminCouponHandler{uc: uc}
}

// CouponRequest は作成と更新で共用します。
type CouponRequest struct {
	Code              string   `json:"code"`
	DiscountType      string   `json:"discount_type"`
	DiscountValue     float64  `json:"discount_value"`
	MinPurchaseAmount float64  `json:"min_purchase_amount"`
	MaxDiscountAmount *float64 `json:"max_discount_amount"`
	UsageLimit        *int64   `json:"usage_limit"`
	ValidFrom         string   `json:"valid_from"`
	ValidUntil        string   `json:"valid_until"`
	IsActive          bool     `json:"is_active"`
}

// adminグループにぶら下げる（JWT+ADMINガードはグループ側）
func (h *AdminCouponHandler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/coupons", h.list)
	admin.POST("/coupons", h.create)
	admin.PUT("/coupons/:id", h.update)
	admin.DELETE("/coupons/:id", h.delete)
}

func (h *AdminCouponHandler) list(c echo.Context) error {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = p
	}

	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	out, err := h.uc.AdminListCoupons(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminCouponHandler) create(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	in, err := toCouponInput(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	coupon, uerr := h.uc.AdminCreateCoupon(c.Request().Context(), adminID, in)
	if uerr != nil {
		return writeError(c, uerr)
	}

	return c.JSON(http.StatusCreated, coupon)
}

func (h *AdminCouponHandler) update(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req CouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	in, err := toCouponInput(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	if uerr := h.uc.AdminUpdateCoupon(c.Request().Context(), adminID, id, in); uerr != nil {
		return writeError(c, uerr)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminCouponHandler) delete(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if uerr := h.uc.AdminDeleteCoupon(c.Request().Context(), adminID, id); uerr != nil {
		return writeError(c, uerr)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// RFC3339の日時文字列をパースしてusecaseの入力に変換する
func toCouponInput(req CouponRequest) (usecase.AdminCouponInput, error) {
	validFrom, err := time.Parse(time.RFC3339, req.ValidFrom)
	if err != nil {
		return usecase.AdminCouponInput{}, errors.New("invalid valid_from")
	}
	validUntil, err := time.Parse(time.RFC3339, req.ValidUntil)
	if err != nil {
		return usecase.AdminCouponInput{}, errors.New("invalid valid_until")
	}

	return usecase.AdminCouponInput{
		Code:              req.Code,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MinPurchaseAmount: req.MinPurchaseAmount,
		MaxDiscountAmount: req.MaxDiscountAmount,
		UsageLimit:        req.UsageLimit,
		ValidFrom:         validFrom,
		ValidUntil:        validUntil,
		IsActive:          req.IsActive,
	}, nil
}
