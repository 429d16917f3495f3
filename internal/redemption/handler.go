package redemption

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cnoloyalty/internal/api"
	"cnoloyalty/internal/auth"
	"cnoloyalty/internal/balance"
	"cnoloyalty/internal/logger"
	"cnoloyalty/internal/rewards"
)

const IdempotencyHeader = "Idempotency-Key"

type RedeemBody struct {
	RewardID string `json:"reward_id" binding:"required"`
}

type CouponResponse struct {
	ID        uuid.UUID `json:"id"`
	RewardID  string    `json:"reward_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Redeem godoc
// @Summary      Redeem reward
// @Description  Exchanges points for a coupon. The account comes from the bearer token.
// @Tags         rewards
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      RedeemBody  true  "Reward to redeem"
// @Success      200   {object}  CouponResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      500   {object}  api.ErrorResponse
// @Router       /rewards/redeem [post]
func (h *Handler) Redeem(c *gin.Context) {
	accountID, ok := auth.GetAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var body RedeemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "reward_id is required"})
		return
	}

	issued, err := h.service.Redeem(c.Request.Context(), RedeemRequest{
		AccountID:      accountID,
		Email:          auth.GetEmail(c),
		RewardID:       body.RewardID,
		IdempotencyKey: c.GetHeader(IdempotencyHeader),
	})
	if err != nil {
		switch {
		case errors.Is(err, rewards.ErrUnknownReward):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Unknown reward"})
		case errors.Is(err, balance.ErrInsufficientFunds):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Not enough points"})
		default:
			logger.Error("Redemption failed", "account_id", accountID, "reward_id", body.RewardID, "error", err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to redeem reward"})
		}
		return
	}

	c.JSON(http.StatusOK, CouponResponse{
		ID:        issued.ID,
		RewardID:  issued.RewardID,
		Code:      issued.Code,
		CreatedAt: issued.CreatedAt,
		ExpiresAt: issued.ExpiresAt,
	})
}
