package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propcache-backend/application/services"
	"propcache-backend/infrastructure/cache"
	"propcache-backend/infrastructure/config"
	memorystore "propcache-backend/infrastructure/persistence/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Environment:         "test",
		CacheBackend:        config.CacheBackendMemory,
		StoreBackend:        config.StoreBackendMemory,
		CacheTTLSeconds:     3600,
		ViewCacheTTLSeconds: 900,
		EnableMetrics:       false,
		EnableCORS:          false,
	}

	logger := zap.NewNop()
	kv := cache.NewMemoryCache(logger)
	store := memorystore.NewPropertyStore(logger)

	listings := services.NewCachedListingService(store, kv, cfg.CacheTTL(), nil, logger)
	hook := services.NewInvalidationHook(listings, kv, logger)
	hook.Register(store)

	router := NewRouter(listings, store, services.NewCacheMetricsService(kv), kv, nil, cfg, logger)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return server
}

func createProperty(t *testing.T, server *httptest.Server, title string, price float64) map[string]interface{} {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"title":    title,
		"price":    price,
		"location": "Accra",
	})
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/properties", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created
}

func listProperties(t *testing.T, server *httptest.Server) (map[string]interface{}, *http.Response) {
	t.Helper()

	resp, err := http.Get(server.URL + "/properties")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload, resp
}

func TestListProperties_ItemsPlusCountShape(t *testing.T) {
	server := newTestServer(t)

	createProperty(t, server, "A", 100)
	createProperty(t, server, "B", 200)

	payload, _ := listProperties(t, server)
	assert.Equal(t, float64(2), payload["count"])
	items := payload["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].(map[string]interface{})["title"])
}

func TestListProperties_ResponseCacheInvalidatedByMutation(t *testing.T) {
	server := newTestServer(t)

	createProperty(t, server, "A", 100)

	_, first := listProperties(t, server)
	assert.Equal(t, "MISS", first.Header.Get("X-Cache"))

	_, second := listProperties(t, server)
	assert.Equal(t, "HIT", second.Header.Get("X-Cache"))

	// A mutation clears the response cache along with the snapshot
	createProperty(t, server, "B", 200)

	payload, third := listProperties(t, server)
	assert.Equal(t, "MISS", third.Header.Get("X-Cache"))
	assert.Equal(t, float64(2), payload["count"])
}

func TestUpdateAndDeleteProperty(t *testing.T) {
	server := newTestServer(t)
	client := server.Client()

	created := createProperty(t, server, "A", 100)
	id := created["id"].(string)

	body, _ := json.Marshal(map[string]interface{}{"price": 250})
	req, err := http.NewRequest(http.MethodPut, server.URL+"/properties/"+id, bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload, _ := listProperties(t, server)
	items := payload["items"].([]interface{})
	assert.Equal(t, float64(250), items[0].(map[string]interface{})["price"])

	req, err = http.NewRequest(http.MethodDelete, server.URL+"/properties/"+id, nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	payload, _ = listProperties(t, server)
	assert.Equal(t, float64(0), payload["count"])
}

func TestDeleteProperty_NotFound(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/properties/missing", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateProperty_ValidationRejected(t *testing.T) {
	server := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"title": "", "price": -5, "location": ""})
	resp, err := http.Post(server.URL+"/properties", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBulkCreate_SingleInvalidation(t *testing.T) {
	server := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{
		"items": []map[string]interface{}{
			{"title": "A", "price": 1, "location": "Accra"},
			{"title": "B", "price": 2, "location": "Accra"},
		},
	})
	resp, err := http.Post(server.URL+"/properties/bulk", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload, _ := listProperties(t, server)
	assert.Equal(t, float64(2), payload["count"])
}

func TestCacheStatusEndpoint(t *testing.T) {
	server := newTestServer(t)

	createProperty(t, server, "A", 100)

	resp, err := http.Get(server.URL + "/properties/cache-status")
	require.NoError(t, err)
	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, false, status["is_cached"])

	listProperties(t, server)

	resp, err = http.Get(server.URL + "/properties/cache-status")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()
	assert.Equal(t, true, status["is_cached"])
	assert.Equal(t, float64(1), status["cached_count"])
}

func TestCacheMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	createProperty(t, server, "A", 100)
	listProperties(t, server)
	listProperties(t, server)

	resp, err := http.Get(server.URL + "/properties/cache-metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))

	total := snapshot["total_ops"].(float64)
	hits := snapshot["hits"].(float64)
	misses := snapshot["misses"].(float64)
	assert.Equal(t, total, hits+misses)

	ratio := snapshot["hit_ratio"].(float64)
	assert.GreaterOrEqual(t, ratio, float64(0))
	assert.LessOrEqual(t, ratio, float64(100))
}
