package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guluwater/navadmin/pkg/nav"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteData(rec, http.StatusCreated, map[string]string{"name": "x"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.NotNil(t, env.Data)
}

func TestWritePage(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WritePage(rec, []string{"a", "b"}, 12, 2, 10))

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(12), data["total"])
	assert.Equal(t, float64(2), data["page"])
	assert.Equal(t, float64(10), data["pageSize"])
}

func TestWriteStoreError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", nav.NotFoundf("site 9 not found"), http.StatusNotFound},
		{"conflict", nav.Conflictf("name taken"), http.StatusConflict},
		{"validation", nav.Validationf("bad url"), http.StatusBadRequest},
		{"transient", nav.TransientStore("db down", errors.New("conn refused")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteStoreError(rec, tt.err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestWriteStoreErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteStoreError(rec, nav.TransientStore("database write failed", errors.New("secret dsn details")))
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "database write failed", env.Message)
	assert.NotContains(t, rec.Body.String(), "secret")
}
