// Package account serves the signed-in customer's own balance, history and
// coupons, and the point-of-sale coupon redemption.
package account

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cnoloyalty/internal/api"
	"cnoloyalty/internal/auth"
	"cnoloyalty/internal/balance"
	"cnoloyalty/internal/coupon"
	"cnoloyalty/internal/ledger"
	"cnoloyalty/internal/logger"
)

const defaultLedgerLimit = 50

type BalanceResponse struct {
	Points    int64      `json:"points"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type CouponView struct {
	coupon.Coupon
	Status string `json:"status"`
}

type CouponsResponse struct {
	Active []CouponView `json:"active"`
	Past   []CouponView `json:"past"`
}

type Handler struct {
	balances balance.Repository
	ledger   ledger.Repository
	coupons  coupon.Repository
	now      func() time.Time
}

func NewHandler(balances balance.Repository, ledgerRepo ledger.Repository, coupons coupon.Repository) *Handler {
	return &Handler{
		balances: balances,
		ledger:   ledgerRepo,
		coupons:  coupons,
		now:      time.Now,
	}
}

// GetBalance godoc
// @Summary      Current point balance
// @Tags         account
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  BalanceResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /me/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}

	b, err := h.balances.Get(c.Request.Context(), accountID)
	if err != nil {
		logger.Error("Failed to load balance", "account_id", accountID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{Points: b.Points, UpdatedAt: b.UpdatedAt})
}

// ListLedger godoc
// @Summary      Point history
// @Description  Ledger entries for the caller, newest first
// @Tags         account
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size (max 200)"
// @Param        offset  query     int  false  "Entries to skip"
// @Success      200     {array}   ledger.Entry
// @Failure      401     {object}  api.ErrorResponse
// @Failure      500     {object}  api.ErrorResponse
// @Router       /me/ledger [get]
func (h *Handler) ListLedger(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		limit = defaultLedgerLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		offset = 0
	}

	entries, err := h.ledger.ListByAccount(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		logger.Error("Failed to list ledger", "account_id", accountID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// ListCoupons godoc
// @Summary      Issued coupons
// @Description  Active coupons and past (redeemed or expired) ones
// @Tags         account
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  CouponsResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /me/coupons [get]
func (h *Handler) ListCoupons(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}

	coupons, err := h.coupons.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		logger.Error("Failed to list coupons", "account_id", accountID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load coupons"})
		return
	}

	now := h.now()
	resp := CouponsResponse{Active: []CouponView{}, Past: []CouponView{}}
	for _, cp := range coupons {
		view := CouponView{Coupon: cp, Status: cp.Status(now)}
		if view.Status == coupon.StatusActive {
			resp.Active = append(resp.Active, view)
		} else {
			resp.Past = append(resp.Past, view)
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetCoupon godoc
// @Summary      One coupon
// @Tags         account
// @Security     BearerAuth
// @Produce      json
// @Param        couponID  path      string  true  "Coupon ID"
// @Success      200       {object}  CouponView
// @Failure      401       {object}  api.ErrorResponse
// @Failure      404       {object}  api.ErrorResponse
// @Failure      500       {object}  api.ErrorResponse
// @Router       /me/coupons/{couponID} [get]
func (h *Handler) GetCoupon(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("couponID"))
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Coupon not found"})
		return
	}

	cp, err := h.coupons.GetForAccount(c.Request.Context(), accountID, id)
	if errors.Is(err, coupon.ErrNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Coupon not found"})
		return
	}
	if err != nil {
		logger.Error("Failed to load coupon", "account_id", accountID, "coupon_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load coupon"})
		return
	}

	c.JSON(http.StatusOK, CouponView{Coupon: *cp, Status: cp.Status(h.now())})
}

func requireAccount(c *gin.Context) (string, bool) {
	accountID, ok := auth.GetAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
	}
	return accountID, ok
}
