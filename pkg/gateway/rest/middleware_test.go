package rest

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func newTestServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		config:      config,
		rateLimiter: rate.NewLimiter(config.RateLimit, config.RateLimitBurst),
		logger:      slog.New(slog.DiscardHandler),
	}
}

func TestRequestIDMiddleware_GeneratesNewID(t *testing.T) {
	s := newTestServer(nil)

	var capturedRequestID string
	handler := s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
		capturedRequestID = RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if _, err := uuid.Parse(capturedRequestID); err != nil {
		t.Errorf("expected valid UUID, got: %s", capturedRequestID)
	}
	if rec.Header().Get("X-Request-Id") != capturedRequestID {
		t.Errorf("X-Request-Id = %s, want %s", rec.Header().Get("X-Request-Id"), capturedRequestID)
	}
}

func TestRequestIDMiddleware_UsesProvidedID(t *testing.T) {
	s := newTestServer(nil)

	providedID := uuid.New().String()
	var capturedRequestID string
	handler := s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
		capturedRequestID = RequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", providedID)
	handler(httptest.NewRecorder(), req)

	if capturedRequestID != providedID {
		t.Errorf("request ID = %s, want %s", capturedRequestID, providedID)
	}
}

func TestRequestIDMiddleware_ReplacesInvalidID(t *testing.T) {
	s := newTestServer(nil)

	var capturedRequestID string
	handler := s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
		capturedRequestID = RequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", "not-a-uuid")
	handler(httptest.NewRecorder(), req)

	if capturedRequestID == "not-a-uuid" {
		t.Error("invalid request ID should be replaced")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	config := DefaultConfig()
	config.RateLimit = 1
	config.RateLimitBurst = 1
	s := newTestServer(config)

	handler := s.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("first request status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("X-RateLimit-Limit = %q, want 1", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	s := newTestServer(nil)

	handler := s.panicRecoveryMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestVersionMiddleware(t *testing.T) {
	s := newTestServer(nil)

	handler := s.versionMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		accept string
		status int
	}{
		{"", http.StatusOK},
		{"application/cbor", http.StatusOK},
		{"application/vnd.snamp.v1+json", http.StatusOK},
		{"application/vnd.snamp.v7+json", http.StatusNotAcceptable},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Accept", tt.accept)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != tt.status {
			t.Errorf("Accept %q: status = %d, want %d", tt.accept, rec.Code, tt.status)
		}
		if rec.Header().Get("X-API-Version") != "1.0" {
			t.Errorf("Accept %q: X-API-Version = %q, want 1.0", tt.accept, rec.Header().Get("X-API-Version"))
		}
	}
}

func signToken(t *testing.T, secret []byte, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	secret := []byte("s3cret")
	config := DefaultConfig()
	config.JWTSecret = secret
	config.JWTIssuer = "snamp"
	s := newTestServer(config)

	var subject string
	handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		subject = Subject(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	valid := jwt.RegisteredClaims{
		Subject:   "ops",
		Issuer:    "snamp",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	foreign := valid
	foreign.Issuer = "other"

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, valid), http.StatusOK},
		{"expired", "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, expired), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, foreign), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, []byte("other"), jwt.SigningMethodHS256, valid), http.StatusUnauthorized},
		{"wrong method", "Bearer " + signToken(t, secret, jwt.SigningMethodHS512, valid), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && subject != "ops" {
				t.Errorf("subject = %q, want ops", subject)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	s := newTestServer(nil)

	handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)
	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusTeapot)
	if rw.Status() != http.StatusAccepted {
		t.Errorf("Status() = %d, want %d", rw.Status(), http.StatusAccepted)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("recorded code = %d, want %d", rec.Code, http.StatusAccepted)
	}
}
