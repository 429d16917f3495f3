package rewards

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	d, err := c.Lookup("free-espresso-shot")
	require.NoError(t, err)
	assert.Equal(t, int64(50), d.CostPoints)
	assert.Equal(t, "$4.00 off", d.Discount.Display())

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, "free-espresso-shot", all[0].ID)
	assert.Equal(t, "merch-5-off", all[2].ID)
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Default().Lookup("free-croissant")
	assert.ErrorIs(t, err, ErrUnknownReward)
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
rewards:
  - id: pastry-10
    name: 10% Off Pastry
    cost_points: 30
    discount:
      type: percent
      percent: 10
  - id: free-drip
    cost_points: 40
    discount:
      type: amount
      amount_cents: 350
`))
	require.NoError(t, err)

	d, err := c.Lookup("pastry-10")
	require.NoError(t, err)
	assert.Equal(t, "10% off", d.Discount.Display())

	drip, err := c.Lookup("free-drip")
	require.NoError(t, err)
	assert.Equal(t, "free-drip", drip.Name)
	assert.Equal(t, "$3.50 off", drip.Discount.Display())
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"zero cost":     "rewards:\n  - id: a\n    cost_points: 0\n    discount: {type: amount, amount_cents: 100}\n",
		"bad discount":  "rewards:\n  - id: a\n    cost_points: 10\n    discount: {type: bogo}\n",
		"percent > 100": "rewards:\n  - id: a\n    cost_points: 10\n    discount: {type: percent, percent: 150}\n",
		"duplicate":     "rewards:\n  - id: a\n    cost_points: 10\n    discount: {type: amount, amount_cents: 1}\n  - id: a\n    cost_points: 20\n    discount: {type: amount, amount_cents: 1}\n",
		"empty":         "rewards: []\n",
		"not yaml":      "rewards: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewards.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rewards:\n  - id: a\n    cost_points: 5\n    discount: {type: amount, amount_cents: 100}\n"), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, c.All(), 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHandler_List(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/rewards", NewHandler(Default()).List)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rewards", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 3)
	assert.Equal(t, "free-espresso-shot", body[0]["reward_id"])
	assert.Equal(t, "$4.00 off", body[0]["discount_display"])
}
