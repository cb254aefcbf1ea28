package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/dkeye/avatarstream/internal/domain"
)

func TestLifecycleScenario(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathNew, func(w http.ResponseWriter, r *http.Request) {
		var req domain.NewSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode new: %v", err)
		}
		if req.Quality != domain.QualityMedium {
			t.Errorf("quality = %q", req.Quality)
		}
		_, _ = io.WriteString(w, `{"code":100,"message":"success","data":{"session_id":"s1","sdp":{"type":"offer","sdp":"v=0"}}}`)
	})
	mux.HandleFunc(pathStart, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":100,"message":"success","data":{"status":"connected"}}`)
	})
	mux.HandleFunc(pathTask, func(w http.ResponseWriter, r *http.Request) {
		var req domain.TaskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.SessionID != "s1" || req.Text != "hi" || req.TaskMode != domain.TaskModeSync || req.TaskType != domain.TaskTypeRepeat {
			t.Errorf("unexpected task %+v", req)
		}
		_, _ = io.WriteString(w, `{"code":100,"message":"success","data":{"task_id":"t1","duration_ms":1000}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithToken("tok"))
	ctx := context.Background()

	created, err := c.Create(ctx, domain.NewSessionRequest{Quality: domain.QualityMedium})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.SessionID != "s1" || created.SDP.Type != domain.SDPTypeOffer {
		t.Fatalf("unexpected create response %+v", created)
	}

	started, err := c.Start(ctx, domain.StartSessionRequest{SessionID: "s1"})
	if err != nil || started.Status != "connected" {
		t.Fatalf("Start: %+v, %v", started, err)
	}

	res, err := c.SendTask(ctx, domain.TaskRequest{SessionID: "s1", Text: "hi", TaskMode: domain.TaskModeSync, TaskType: domain.TaskTypeRepeat})
	if err != nil {
		t.Fatalf("SendTask: %v", err)
	}
	if res.TaskID != "t1" || res.DurationMs != 1000 {
		t.Fatalf("unexpected task result %+v", res)
	}
}

func TestSessionScopedCallsRequireSession(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	ctx := context.Background()

	calls := map[string]func() error{
		"start": func() error {
			_, err := c.Start(ctx, domain.StartSessionRequest{})
			return err
		},
		"task": func() error {
			_, err := c.SendTask(ctx, domain.TaskRequest{Text: "x"})
			return err
		},
		"ice":       func() error { return c.SubmitICE(ctx, domain.SubmitICERequest{}) },
		"interrupt": func() error { return c.Interrupt(ctx, "") },
		"stop":      func() error { return c.Close(ctx, "") },
	}
	for op, call := range calls {
		err := call()
		if !errors.Is(err, ErrSessionNotStarted) {
			t.Fatalf("%s: err = %v", op, err)
		}
		var pe *PreconditionError
		if !errors.As(err, &pe) || pe.Op != op {
			t.Fatalf("%s: expected precondition error naming op, got %v", op, err)
		}
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("server hit %d times", n)
	}
}

func TestAuthAsymmetry(t *testing.T) {
	headers := map[string]http.Header{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers[r.URL.Path] = r.Header.Clone()
		switch r.URL.Path {
		case pathCreateToken:
			_, _ = io.WriteString(w, `{"error":null,"data":{"token":"eph"}}`)
		default:
			_, _ = io.WriteString(w, `{"code":100,"data":null}`)
		}
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithAPIKey("key"))
	ctx := context.Background()

	tok, err := c.CreateToken(ctx)
	if err != nil || tok != "eph" {
		t.Fatalf("CreateToken: %q, %v", tok, err)
	}
	if err := c.WithSessionToken(tok).Interrupt(ctx, "s1"); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}

	if got := headers[pathCreateToken].Get("X-Api-Key"); got != "key" {
		t.Fatalf("token issuance key header = %q", got)
	}
	if got := headers[pathCreateToken].Get("Authorization"); got != "" {
		t.Fatalf("token issuance must not send bearer, got %q", got)
	}
	if got := headers[pathInterrupt].Get("Authorization"); got != "Bearer eph" {
		t.Fatalf("interrupt auth = %q", got)
	}
	if got := headers[pathInterrupt].Get("X-Api-Key"); got != "" {
		t.Fatalf("interrupt must not send api key, got %q", got)
	}
}

func TestListings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		switch r.URL.Path {
		case pathList:
			_, _ = io.WriteString(w, `{"code":100,"data":{"sessions":[{"session_id":"a","status":"new","created_at":1}]}}`)
		case pathAvatarList:
			_, _ = io.WriteString(w, `{"code":100,"data":[{"avatar_id":"av","is_public":true,"status":"ACTIVE"}]}`)
		}
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithAPIKey("key"))
	sessions, err := c.List(context.Background())
	if err != nil || len(sessions) != 1 || sessions[0].Status != domain.SessionStatusNew {
		t.Fatalf("List: %+v, %v", sessions, err)
	}
	avatars, err := c.ListAvatars(context.Background())
	if err != nil || len(avatars) != 1 || avatars[0].AvatarID != "av" || !avatars[0].IsPublic {
		t.Fatalf("ListAvatars: %+v, %v", avatars, err)
	}
}

func TestSubmitICE(t *testing.T) {
	var got domain.SubmitICERequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathICE || r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"code":100,"message":"success"}`)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL), WithToken("tok"))
	cand := domain.ICECandidate{Candidate: "candidate:1 1 udp 2130706431 10.0.0.1 5000 typ host", SDPMid: "0"}
	if err := c.SubmitICE(context.Background(), domain.SubmitICERequest{SessionID: "s1", Candidate: cand}); err != nil {
		t.Fatalf("SubmitICE: %v", err)
	}
	if got.SessionID != "s1" || got.Candidate != cand {
		t.Fatalf("server got %+v", got)
	}
}
