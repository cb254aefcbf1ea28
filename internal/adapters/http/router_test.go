package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/dkeye/avatarstream/internal/config"
	"github.com/dkeye/avatarstream/internal/domain"
	"github.com/dkeye/avatarstream/internal/remote"
)

type fakeIssuer struct {
	token string
	err   error
	calls int
}

func (f *fakeIssuer) CreateToken(context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

func (f *fakeIssuer) ListAvatars(context.Context) ([]domain.StreamingAvatar, error) {
	return []domain.StreamingAvatar{{AvatarID: "Wayne", IsPublic: true}}, f.err
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{Mode: "release", StaticPath: t.TempDir(), Secret: "test-secret", TokenRateLimit: 2, TokenRateInterval: time.Minute}
}

func TestAccessToken(t *testing.T) {
	issuer := &fakeIssuer{token: "eph"}
	r := SetupRouter(testConfig(t), issuer)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/get-access-token", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token != "eph" {
		t.Fatalf("resp = %+v, %v", resp, err)
	}
}

func TestAccessTokenRateLimited(t *testing.T) {
	issuer := &fakeIssuer{token: "eph"}
	r := SetupRouter(testConfig(t), issuer)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/get-access-token", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
	if issuer.calls != 2 {
		t.Fatalf("issuer called %d times", issuer.calls)
	}
}

func TestAccessTokenUpstreamUnauthorized(t *testing.T) {
	issuer := &fakeIssuer{err: &remote.Error{Code: remote.CodeUnauthorized, Message: "Unauthorized"}}
	r := SetupRouter(testConfig(t), issuer)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/get-access-token", nil))
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Unauthorized") {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
}

func TestAvatars(t *testing.T) {
	r := SetupRouter(testConfig(t), &fakeIssuer{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/avatars", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"avatar_id":"Wayne"`) {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || rl.Allow("a") {
		t.Fatal("limit of one not enforced")
	}
	if !rl.Allow("b") {
		t.Fatal("keys must be independent")
	}
	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("bucket did not refill")
	}
}

func TestClientSessionCookie(t *testing.T) {
	r := SetupRouter(testConfig(t), &fakeIssuer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/avatars", nil))
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "AvatarSessions" || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/avatars", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Result().Cookies(); len(got) != 0 {
		t.Fatalf("known client got a new cookie: %+v", got)
	}
}

func TestRateLimiterDropsIdleCallers(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if !rl.Allow(ip) {
			t.Fatalf("first request from %s refused", ip)
		}
	}
	if n := rl.size(); n != 3 {
		t.Fatalf("tracked callers = %d", n)
	}

	now = now.Add(30 * time.Second)
	rl.Allow("10.0.0.1")
	now = now.Add(45 * time.Second)
	if !rl.Allow("10.0.0.4") {
		t.Fatal("new caller refused")
	}
	if n := rl.size(); n != 2 {
		t.Fatalf("tracked callers after sweep = %d, want 2", n)
	}
}
