package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guluwater/navadmin/pkg/analytics"
	"github.com/guluwater/navadmin/pkg/audit"
	"github.com/guluwater/navadmin/pkg/httputil"
	"github.com/guluwater/navadmin/pkg/observability"
	"github.com/guluwater/navadmin/pkg/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewMemoryStore(&store.SeedData{})
	require.NoError(t, err)

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	agg := analytics.NewAggregator(st, logger, nil)
	recorder := analytics.NewRecorder(st, agg, logger, nil)
	stats := analytics.NewService(st, logger)
	activity := audit.NewLogger(st, logger)
	return NewServer(st, recorder, stats, activity, logger), st
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) httputil.Envelope {
	t.Helper()
	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func dataMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	env := envelope(t, rec)
	m, ok := env.Data.(map[string]interface{})
	require.True(t, ok, "data is not an object: %v", env.Data)
	return m
}

func TestSiteCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/categories", map[string]interface{}{
		"name": "Tools", "status": "active",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	catID := int64(dataMap(t, rec)["id"].(float64))

	rec = doJSON(t, srv, "POST", "/api/sites", map[string]interface{}{
		"name":        "Example",
		"url":         "https://example.com",
		"category_id": catID,
		"status":      "active",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	site := dataMap(t, rec)
	siteID := int64(site["id"].(float64))
	assert.Equal(t, "Example", site["name"])

	rec = doJSON(t, srv, "GET", fmt.Sprintf("/api/sites/%d", siteID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, "PUT", fmt.Sprintf("/api/sites/%d", siteID), map[string]interface{}{
		"description": "demo site",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := dataMap(t, rec)
	assert.Equal(t, "demo site", updated["description"])
	assert.Equal(t, "Example", updated["name"], "absent fields stay unchanged")

	rec = doJSON(t, srv, "GET", "/api/sites?page=1&pageSize=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := dataMap(t, rec)
	assert.Equal(t, float64(1), page["total"])

	rec = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/sites/%d", siteID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, "GET", fmt.Sprintf("/api/sites/%d", siteID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSiteValidationError(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/sites", map[string]interface{}{
		"name": "no url",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := envelope(t, rec)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)
}

func TestSiteBadPathID(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, "GET", "/api/sites/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryDeleteGuard(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/categories", map[string]interface{}{"name": "Dev"})
	require.Equal(t, http.StatusCreated, rec.Code)
	catID := int64(dataMap(t, rec)["id"].(float64))

	rec = doJSON(t, srv, "POST", "/api/sites", map[string]interface{}{
		"name": "A", "url": "https://a.example", "category_id": catID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	siteID := int64(dataMap(t, rec)["id"].(float64))

	rec = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/categories/%d", catID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/sites/%d", siteID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/categories/%d", catID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDuplicateCategoryName(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/categories", map[string]interface{}{"name": "News"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, srv, "POST", "/api/categories", map[string]interface{}{"name": "News"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClickEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/sites", map[string]interface{}{
		"name": "Clicky", "url": "https://clicky.example", "status": "active",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	siteID := int64(dataMap(t, rec)["id"].(float64))

	for i := 0; i < 3; i++ {
		rec = doJSON(t, srv, "POST", fmt.Sprintf("/api/sites/%d/click", siteID), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, "GET", fmt.Sprintf("/api/sites/%d", siteID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), dataMap(t, rec)["click_count"])

	rec = doJSON(t, srv, "GET", "/api/stats/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := dataMap(t, rec)
	assert.Equal(t, float64(3), overview["today_visits"])
}

func TestClickInactiveSite(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/sites", map[string]interface{}{
		"name": "Hidden", "url": "https://hidden.example", "status": "inactive",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	siteID := int64(dataMap(t, rec)["id"].(float64))

	rec = doJSON(t, srv, "POST", fmt.Sprintf("/api/sites/%d/click", siteID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/users", map[string]interface{}{
		"username":      "alice",
		"email":         "alice@example.com",
		"password_hash": "$2a$12$abcdefghijklmnopqrstuv",
		"role":          "editor",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	u := dataMap(t, rec)
	userID := int64(u["id"].(float64))
	assert.Equal(t, "editor", u["role"])
	assert.NotContains(t, rec.Body.String(), "$2a$12$", "hash never leaves the API")

	rec = doJSON(t, srv, "PUT", fmt.Sprintf("/api/users/%d", userID), map[string]interface{}{
		"status": "inactive",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inactive", dataMap(t, rec)["status"])

	rec = doJSON(t, srv, "POST", "/api/users", map[string]interface{}{
		"username":      "alice",
		"email":         "other@example.com",
		"password_hash": "$2a$12$abcdefghijklmnopqrstuv",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "PUT", "/api/settings/site_name", map[string]interface{}{
		"value": "My Nav", "type": "string",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, "PUT", "/api/settings/per_page", map[string]interface{}{
		"value": "24", "type": "number",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(24), dataMap(t, rec)["decoded_value"])

	// Second put on the same key replaces, not conflicts.
	rec = doJSON(t, srv, "PUT", "/api/settings/per_page", map[string]interface{}{
		"value": "48", "type": "number",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, "GET", "/api/settings/per_page", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(48), dataMap(t, rec)["decoded_value"])

	rec = doJSON(t, srv, "DELETE", "/api/settings/per_page", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, "GET", "/api/settings/per_page", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{
		"/api/stats/overview",
		"/api/stats/trends?days=7",
		"/api/stats/ranking?type=recent&limit=5",
		"/api/stats/categories",
	} {
		rec := doJSON(t, srv, "GET", path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, envelope(t, rec).Success, path)
	}
}

func TestActivityTrail(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/categories", map[string]interface{}{"name": "Logs"})
	require.Equal(t, http.StatusCreated, rec.Code)
	catID := int64(dataMap(t, rec)["id"].(float64))
	rec = doJSON(t, srv, "PUT", fmt.Sprintf("/api/categories/%d", catID), map[string]interface{}{
		"description": "x",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, "GET", "/api/activity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := dataMap(t, rec)
	items, ok := page["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 2)

	// Newest first: the update entry precedes the create entry.
	first := items[0].(map[string]interface{})
	assert.Equal(t, "update", first["action_type"])
	assert.Equal(t, float64(1), first["user_id"], "attributed via X-User-ID")

	rec = doJSON(t, srv, "GET", "/api/activity?actionType=create", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items = dataMap(t, rec)["items"].([]interface{})
	assert.Len(t, items, 1)

	rec = doJSON(t, srv, "GET", "/api/activity?actionType=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
