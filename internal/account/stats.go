package account

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cnoloyalty/internal/api"
	"cnoloyalty/internal/ledger"
	"cnoloyalty/internal/logger"
)

const (
	dayLayout       = "2006-01-02"
	defaultStatDays = 7
	maxStatDays     = 92
)

type StatsReader interface {
	StatsByDay(ctx context.Context, from, to time.Time) ([]ledger.DailyStats, error)
}

type StatsHandler struct {
	stats StatsReader
	now   func() time.Time
}

func NewStatsHandler(stats StatsReader) *StatsHandler {
	return &StatsHandler{stats: stats, now: time.Now}
}

// Daily godoc
// @Summary      Daily ledger activity
// @Description  Points earned and redeemed per day. Both bounds are inclusive days (UTC).
// @Tags         pos
// @Security     APIKeyAuth
// @Produce      json
// @Param        from  query     string  false  "First day, YYYY-MM-DD (default: 6 days before to)"
// @Param        to    query     string  false  "Last day, YYYY-MM-DD (default: today)"
// @Success      200   {array}   ledger.DailyStats
// @Failure      400   {object}  api.ErrorResponse
// @Failure      500   {object}  api.ErrorResponse
// @Router       /pos/stats [get]
func (h *StatsHandler) Daily(c *gin.Context) {
	today := h.now().UTC().Truncate(24 * time.Hour)

	to, err := parseDay(c.Query("to"), today)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "to must be YYYY-MM-DD"})
		return
	}
	from, err := parseDay(c.Query("from"), to.AddDate(0, 0, -(defaultStatDays-1)))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "from must be YYYY-MM-DD"})
		return
	}
	if from.After(to) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "from is after to"})
		return
	}
	if to.Sub(from) >= maxStatDays*24*time.Hour {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "range is limited to 92 days"})
		return
	}

	stats, err := h.stats.StatsByDay(c.Request.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		logger.Error("Failed to load ledger stats", "from", from, "to", to, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func parseDay(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation(dayLayout, raw, time.UTC)
}
