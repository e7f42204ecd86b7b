package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"http://localhost:4200"}))(okHandler())

	t.Run("allowed origin can read the token header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
		req.Header.Set("Origin", "http://localhost:4200")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Jwt-Token")
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin gets no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/user/login", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("preflight is answered without reaching the handler", func(t *testing.T) {
		reached := false
		preflight := CORS(DefaultCORSConfig([]string{"http://localhost:4200"}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
		}))

		req := httptest.NewRequest(http.MethodOptions, "/user/add", nil)
		req.Header.Set("Origin", "http://localhost:4200")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		preflight.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, reached)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
		assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
	})
}
