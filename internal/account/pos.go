package account

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cnoloyalty/internal/api"
	"cnoloyalty/internal/coupon"
	"cnoloyalty/internal/logger"
)

// EmailLookup finds where to tell a customer their coupon was used.
type EmailLookup interface {
	EmailForAccount(ctx context.Context, accountID string) (string, error)
}

type RedeemedNotifier interface {
	SendCouponRedeemed(ctx context.Context, to, code string, redeemedAt time.Time) error
}

type POSHandler struct {
	coupons  coupon.Repository
	emails   EmailLookup
	notifier RedeemedNotifier
}

// NewPOSHandler builds the till-side handler. emails and notifier may be nil
// to skip the confirmation message.
func NewPOSHandler(coupons coupon.Repository, emails EmailLookup, notifier RedeemedNotifier) *POSHandler {
	return &POSHandler{coupons: coupons, emails: emails, notifier: notifier}
}

// RedeemCoupon godoc
// @Summary      Redeem a coupon at the till
// @Description  Marks the coupon used. Each coupon can be redeemed once.
// @Tags         pos
// @Security     APIKeyAuth
// @Produce      json
// @Param        code  path      string  true  "Coupon code"
// @Success      200   {object}  coupon.Coupon
// @Failure      401   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Failure      409   {object}  api.ErrorResponse
// @Failure      500   {object}  api.ErrorResponse
// @Router       /pos/coupons/{code}/redeem [post]
func (h *POSHandler) RedeemCoupon(c *gin.Context) {
	code := coupon.Normalize(c.Param("code"))

	cp, err := h.coupons.MarkRedeemed(c.Request.Context(), code)
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Coupon not found"})
		return
	case errors.Is(err, coupon.ErrAlreadyRedeemed):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Coupon already redeemed"})
		return
	case errors.Is(err, coupon.ErrExpired):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Coupon expired"})
		return
	case err != nil:
		logger.Error("Failed to redeem coupon", "code", code, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to redeem coupon"})
		return
	}

	logger.Info("Coupon redeemed at POS", "code", cp.Code, "account_id", cp.AccountID, "reward_id", cp.RewardID)
	h.notify(c.Request.Context(), cp)

	c.JSON(http.StatusOK, cp)
}

func (h *POSHandler) notify(ctx context.Context, cp *coupon.Coupon) {
	if h.emails == nil || h.notifier == nil || cp.RedeemedAt == nil {
		return
	}

	to, err := h.emails.EmailForAccount(ctx, cp.AccountID)
	if err != nil {
		logger.Warn("Could not look up email for redeemed coupon", "account_id", cp.AccountID, "error", err)
		return
	}
	if to == "" {
		return
	}

	if err := h.notifier.SendCouponRedeemed(ctx, to, cp.Code, *cp.RedeemedAt); err != nil {
		logger.Warn("Failed to queue coupon redeemed email", "code", cp.Code, "error", err)
	}
}
