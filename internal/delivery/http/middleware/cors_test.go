package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		_, _ = w.Write([]byte("ok"))
	})

	tests := []struct {
		name            string
		allowed         []string
		method          string
		origin          string
		wantStatus      int
		wantAllowOrigin string
		wantCredentials string
		wantNext        bool
	}{
		{
			name:            "preflight from allowed origin",
			allowed:         []string{" https://portal.school.test/ ", ""},
			method:          http.MethodOptions,
			origin:          "https://portal.school.test",
			wantStatus:      http.StatusNoContent,
			wantAllowOrigin: "https://portal.school.test",
			wantCredentials: "true",
		},
		{
			name:       "preflight from unknown origin",
			allowed:    []string{"https://portal.school.test"},
			method:     http.MethodOptions,
			origin:     "https://evil.test",
			wantStatus: http.StatusNoContent,
		},
		{
			name:            "simple request from allowed origin",
			allowed:         []string{"https://portal.school.test"},
			method:          http.MethodGet,
			origin:          "https://portal.school.test",
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "https://portal.school.test",
			wantCredentials: "true",
			wantNext:        true,
		},
		{
			name:       "simple request from unknown origin still served",
			allowed:    []string{"https://portal.school.test"},
			method:     http.MethodGet,
			origin:     "https://evil.test",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:            "wildcard admits any origin without credentials",
			allowed:         []string{"*"},
			method:          http.MethodGet,
			origin:          "https://kiosk.school.test",
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "*",
			wantNext:        true,
		},
		{
			name:       "no origin header",
			allowed:    []string{"*"},
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled = false
			req := httptest.NewRequest(tt.method, "/events", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()

			CORS(tt.allowed, next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantNext, nextCalled)
			assert.Equal(t, tt.wantAllowOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredentials, rr.Header().Get("Access-Control-Allow-Credentials"))
			if tt.origin != "" {
				assert.Equal(t, "Origin", rr.Header().Get("Vary"))
			}
			if tt.wantAllowOrigin != "" && tt.method == http.MethodOptions {
				assert.Equal(t, corsAllowMethods, rr.Header().Get("Access-Control-Allow-Methods"))
			}
			if tt.wantAllowOrigin != "" && tt.method != http.MethodOptions {
				assert.Equal(t, corsExposeHeaders, rr.Header().Get("Access-Control-Expose-Headers"))
			}
		})
	}
}
