package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureLogger_RedactsSensitiveData(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := SecureLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/user/reset-password/alice@example.com?token=abc&page=2", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.Equal(t, float64(4), entry["bytes"])

	path, _ := entry["path"].(string)
	assert.NotContains(t, path, "alice@example.com")
	assert.NotContains(t, path, "abc")
	assert.Contains(t, path, "page=2")
}

func TestSecureLogger_ServerErrorsLogAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := SecureLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/user/list", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
}
