package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	t.Run("should generate request ID if missing", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, GetRequestID(r.Context()))
		})

		req := httptest.NewRequest("GET", "http://example.com/", nil)
		rec := httptest.NewRecorder()

		RequestID(next).ServeHTTP(rec, req)

		assert.Regexp(t, `^[0-9a-f-]{36}$`, rec.Header().Get("X-Request-ID"))
	})

	t.Run("should preserve existing valid request ID", func(t *testing.T) {
		existingID := "trace-123:abc"
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, existingID, GetRequestID(r.Context()))
		})

		req := httptest.NewRequest("GET", "http://example.com/", nil)
		req.Header.Set("X-Request-ID", existingID)
		rec := httptest.NewRecorder()

		RequestID(next).ServeHTTP(rec, req)

		assert.Equal(t, existingID, rec.Header().Get("X-Request-ID"))
	})

	t.Run("should replace invalid request ID", func(t *testing.T) {
		for _, invalid := range []string{strings.Repeat("a", 129), "bad-id-<script>"} {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id := GetRequestID(r.Context())
				assert.NotEqual(t, invalid, id)
				assert.Regexp(t, `^[0-9a-f-]{36}$`, id)
			})

			req := httptest.NewRequest("GET", "http://example.com/", nil)
			req.Header.Set("X-Request-ID", invalid)

			RequestID(next).ServeHTTP(httptest.NewRecorder(), req)
		}
	})
}

func TestRequestIDLoggingIntegration(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := RequestID(RequestLogging(logger)(final))

	req := httptest.NewRequest("GET", "http://example.com/trips", nil)
	req.Header.Set("X-Request-ID", "integration-test-id-999")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	out := logBuf.String()
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, out, "integration-test-id-999")
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"path":"/trips"`)
}
