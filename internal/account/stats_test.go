package account

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"cnoloyalty/internal/ledger"
)

type MockStats struct{ mock.Mock }

func (m *MockStats) StatsByDay(ctx context.Context, from, to time.Time) ([]ledger.DailyStats, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.DailyStats), args.Error(1)
}

func getStats(stats StatsReader, query string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	h := NewStatsHandler(stats)
	h.now = func() time.Time { return fixedNow }

	router := gin.New()
	router.GET("/pos/stats", h.Daily)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pos/stats"+query, nil))
	return w
}

func day(s string) time.Time {
	t, _ := time.Parse(dayLayout, s)
	return t
}

func TestDailyStats_DefaultsToLastWeek(t *testing.T) {
	stats := new(MockStats)
	stats.On("StatsByDay", mock.Anything, day("2026-10-08"), day("2026-10-15")).
		Return([]ledger.DailyStats{{Day: "2026-10-14", PointsEarned: 12}}, nil)

	w := getStats(stats, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"points_earned":12`)
	stats.AssertExpectations(t)
}

func TestDailyStats_ExplicitRange(t *testing.T) {
	stats := new(MockStats)
	stats.On("StatsByDay", mock.Anything, day("2026-09-01"), day("2026-10-01")).Return([]ledger.DailyStats{}, nil)

	w := getStats(stats, "?from=2026-09-01&to=2026-09-30")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDailyStats_BadInput(t *testing.T) {
	for name, query := range map[string]string{
		"bad from": "?from=yesterday",
		"bad to":   "?to=10/14/2026",
		"reversed": "?from=2026-10-10&to=2026-10-01",
		"too long": "?from=2026-01-01&to=2026-10-01",
	} {
		t.Run(name, func(t *testing.T) {
			stats := new(MockStats)
			assert.Equal(t, http.StatusBadRequest, getStats(stats, query).Code)
			stats.AssertNotCalled(t, "StatsByDay", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDailyStats_StorageFailure(t *testing.T) {
	stats := new(MockStats)
	stats.On("StatsByDay", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	assert.Equal(t, http.StatusInternalServerError, getStats(stats, "").Code)
}
