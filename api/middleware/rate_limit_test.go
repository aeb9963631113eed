package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sitewrap/sitewrap-backend/pkg/enums"
)

type stubLimitStore struct {
	counts  map[string]int64
	ttl     time.Duration
	incrErr error
}

func (s *stubLimitStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.incrErr != nil {
		return 0, s.incrErr
	}
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *stubLimitStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.ttl, nil
}

func (s *stubLimitStore) RateLimitKey(parts ...string) string {
	return "sw:ratelimit:" + strings.Join(parts, ":")
}

func okHandler(hits *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.WriteHeader(http.StatusNoContent)
	})
}

func limitedRequest() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/generate", nil)
	r.RemoteAddr = "203.0.113.7:51334"
	return r
}

func TestRateLimit_BlocksOverBudget(t *testing.T) {
	store := &stubLimitStore{ttl: 42 * time.Second}
	var hits int
	handler := RateLimit(store, nil, nil, Policy{
		Name:   "general",
		Window: time.Minute,
		Limit:  2,
	})(okHandler(&hits))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, limitedRequest())
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d, want 204", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest())
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rec.Code)
	}
	if hits != 2 {
		t.Fatalf("handler reached %d times, want 2", hits)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("Retry-After = %q, want 42", got)
	}

	var envelope struct {
		Error struct {
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Details["retry_after_seconds"] != float64(42) {
		t.Fatalf("retry_after_seconds = %v, want 42", envelope.Error.Details["retry_after_seconds"])
	}
}

func TestRateLimit_FailsOpenOnStoreError(t *testing.T) {
	store := &stubLimitStore{incrErr: fmt.Errorf("connection refused")}
	var hits int
	handler := RateLimit(store, nil, nil, Policy{
		Name:   "general",
		Window: time.Minute,
		Limit:  1,
	})(okHandler(&hits))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, limitedRequest())
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d, want 204", i+1, rec.Code)
		}
	}
	if hits != 5 {
		t.Fatalf("handler reached %d times, want 5", hits)
	}
}

func TestRateLimit_UserIdentityBucketsPerAccount(t *testing.T) {
	store := &stubLimitStore{ttl: time.Minute}
	var hits int
	handler := RateLimit(store, nil, nil, Policy{
		Name:     "generate-user",
		Window:   time.Hour,
		Limit:    1,
		Identity: IdentityUser,
	})(okHandler(&hits))

	first, second := uuid.New(), uuid.New()
	send := func(userID uuid.UUID) int {
		r := limitedRequest()
		r = r.WithContext(WithActor(r.Context(), userID, enums.UserRoleUser))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	if code := send(first); code != http.StatusNoContent {
		t.Fatalf("first user initial request: status %d", code)
	}
	if code := send(first); code != http.StatusTooManyRequests {
		t.Fatalf("first user second request: status %d, want 429", code)
	}
	// A different account has its own window.
	if code := send(second); code != http.StatusNoContent {
		t.Fatalf("second user: status %d, want 204", code)
	}

	// Anonymous requests carry no user identity and skip the policy.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, limitedRequest())
	if rec.Code != http.StatusNoContent {
		t.Fatalf("anonymous request: status %d, want 204", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name string
		prep func(r *http.Request)
		want string
	}{
		{
			name: "remote addr fallback",
			prep: func(r *http.Request) {},
			want: "203.0.113.7",
		},
		{
			name: "forwarded-for takes the first hop",
			prep: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.2")
			},
			want: "198.51.100.9",
		},
		{
			name: "real-ip when no forwarded-for",
			prep: func(r *http.Request) {
				r.Header.Set("X-Real-IP", "198.51.100.20")
			},
			want: "198.51.100.20",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := limitedRequest()
			tc.prep(r)
			if got := ClientIP(r); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
