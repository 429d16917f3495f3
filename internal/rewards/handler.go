package rewards

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

type RewardResponse struct {
	Definition
	DiscountDisplay string `json:"discount_display"`
}

// @Summary      List rewards
// @Tags         rewards
// @Produce      json
// @Success      200 {array} rewards.RewardResponse
// @Router       /rewards [get]
func (h *Handler) List(c *gin.Context) {
	defs := h.catalog.All()
	out := make([]RewardResponse, 0, len(defs))
	for _, d := range defs {
		out = append(out, RewardResponse{Definition: d, DiscountDisplay: d.Discount.Display()})
	}
	c.JSON(http.StatusOK, out)
}
