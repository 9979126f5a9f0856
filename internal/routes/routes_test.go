package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rm-hull/fuel-price-dashboard/internal/dashboard"
	"github.com/rm-hull/fuel-price-dashboard/internal/history"
	"github.com/rm-hull/fuel-price-dashboard/internal/models"
	"github.com/rm-hull/fuel-price-dashboard/internal/selection"
	"github.com/rm-hull/fuel-price-dashboard/internal/stations"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type fakeClient struct{}

func (fakeClient) FetchAll(ctx context.Context, query string, params map[string]string) ([]models.Row, error) {
	if params["station_id"] == "" {
		return []models.Row{
			{"station_id": "a1", "name": "ARAL Tankstelle", "address": "Kölner Straße 12, Düsseldorf"},
			{"station_id": "s1", "name": "Shell", "address": "Hauptstraße 3, Essen"},
		}, nil
	}
	ts := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	return []models.Row{{"ts": ts, "diesel": 1.759}}, nil
}

func (fakeClient) Ping(ctx context.Context) error {
	return nil
}

type memoryStore map[string]string

func (s memoryStore) Get(key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

func (s memoryStore) Set(key, value string) error {
	s[key] = value
	return nil
}

func setupRouter(t *testing.T) (*gin.Engine, memoryStore) {
	gin.SetMode(gin.TestMode)

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	store := memoryStore{}
	controller := dashboard.NewController(
		stations.NewDirectory(fakeClient{}),
		selection.NewManager(store),
		history.NewAggregator(fakeClient{}, berlin),
		berlin,
	)
	require.NoError(t, controller.Start(context.Background(), nil))

	r := gin.New()
	Register(r.Group("/v1/fuel-prices"), controller)
	return r, store
}

func perform(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var view map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func TestSearch(t *testing.T) {
	r, _ := setupRouter(t)

	t.Run("Matches by name", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/v1/fuel-prices/stations/search?q=aral", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.SearchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "aral", resp.Term)
		require.NotEmpty(t, resp.Results)
		assert.Equal(t, "a1", resp.Results[0].Id)
	})

	t.Run("Missing term", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/v1/fuel-prices/stations/search?q=%20", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "missing search term")
	})

	t.Run("Invalid limit", func(t *testing.T) {
		for _, limit := range []string{"0", "-1", "abc", "51"} {
			w := perform(r, http.MethodGet, "/v1/fuel-prices/stations/search?q=aral&limit="+limit, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, limit)
		}
	})
}

func TestSelectionEndpoints(t *testing.T) {
	r, store := setupRouter(t)

	w := perform(r, http.MethodPost, "/v1/fuel-prices/selection/stations", `{"id": "a1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeView(t, w)
	assert.Equal(t, "fuels=diesel%2Ce5%2Ce10&stations=a1&time=all", view["share_query"])
	assert.Equal(t, `["a1"]`, store[selection.KEY_STATIONS])

	w = perform(r, http.MethodPut, "/v1/fuel-prices/selection/fuels", `{"fuels": ["diesel"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	view = decodeView(t, w)
	assert.Equal(t, []any{"diesel"}, view["fuel_types"])
	assert.Contains(t, view["cheapest"], "diesel")

	w = perform(r, http.MethodPut, "/v1/fuel-prices/selection/window", `{"window": "7d"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7d", decodeView(t, w)["window"])

	w = perform(r, http.MethodPut, "/v1/fuel-prices/selection/zoom", `{"start": "2025-03-04T22:00:00.987Z", "end": "2025-03-01T06:30:15.123Z"}`)
	require.Equal(t, http.StatusOK, w.Code)
	view = decodeView(t, w)
	assert.Equal(t, true, view["zoomed"])
	assert.Equal(t, "2025-03-01T06:30:15.123Z;2025-03-04T22:00:00.987Z", view["window"])
	assert.Equal(t, "2025-03-01T06:30:15.123Z;2025-03-04T22:00:00.987Z", store[selection.KEY_TIME_RANGE])

	w = perform(r, http.MethodDelete, "/v1/fuel-prices/selection/zoom", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "all", decodeView(t, w)["window"])

	w = perform(r, http.MethodDelete, "/v1/fuel-prices/selection/stations/a1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeView(t, w)["stations"])

	w = perform(r, http.MethodPost, "/v1/fuel-prices/selection/restore?stations=s1,a1&fuels=", "")
	require.Equal(t, http.StatusOK, w.Code)
	view = decodeView(t, w)
	assert.Len(t, view["stations"], 2)
	assert.Empty(t, view["fuel_types"])
	assert.Equal(t, "No fuel type selected.", view["status"])

	w = perform(r, http.MethodGet, "/v1/fuel-prices/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeView(t, w)["stations"], 2)
}

func TestSelectionValidation(t *testing.T) {
	r, _ := setupRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"Unknown station", http.MethodPost, "/selection/stations", `{"id": "nope"}`, http.StatusNotFound},
		{"Missing station id", http.MethodPost, "/selection/stations", `{}`, http.StatusBadRequest},
		{"Malformed body", http.MethodPost, "/selection/stations", `{"id":`, http.StatusBadRequest},
		{"Unknown fuel", http.MethodPut, "/selection/fuels", `{"fuels": ["lpg"]}`, http.StatusBadRequest},
		{"Missing fuels", http.MethodPut, "/selection/fuels", `{}`, http.StatusBadRequest},
		{"Empty fuels", http.MethodPut, "/selection/fuels", `{"fuels": []}`, http.StatusOK},
		{"Unknown window", http.MethodPut, "/selection/window", `{"window": "3 weeks"}`, http.StatusBadRequest},
		{"Missing zoom end", http.MethodPut, "/selection/zoom", `{"start": "2025-03-01T00:00:00Z"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(r, tt.method, "/v1/fuel-prices"+tt.path, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.code != http.StatusOK {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}
