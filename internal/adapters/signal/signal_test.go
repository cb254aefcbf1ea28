package signal

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dkeye/avatarstream/internal/core"
	"github.com/dkeye/avatarstream/internal/events"
	"github.com/dkeye/avatarstream/internal/frames"
)

func TestBuildURL(t *testing.T) {
	got, err := BuildURL(Params{BaseURL: "https://api.example.com", SessionID: "s1", Token: "tok", SilenceResponse: true, STTLanguage: "en"})
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	u, _ := url.Parse(got)
	if u.Scheme != "wss" || u.Host != "api.example.com" || u.Path != "/v1/ws/streaming.chat" {
		t.Fatalf("url = %s", got)
	}
	q := u.Query()
	if q.Get("session_id") != "s1" || q.Get("session_token") != "tok" || q.Get("silence_response") != "true" || q.Get("stt_language") != "en" {
		t.Fatalf("query = %v", q)
	}

	got, _ = BuildURL(Params{SessionID: "s1", Token: "tok"})
	if strings.Contains(got, "stt_language") || !strings.HasPrefix(got, "wss://api.heygen.com/") {
		t.Fatalf("url = %s", got)
	}
}

type server struct {
	*httptest.Server
	conns chan *websocket.Conn
	query chan url.Values
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{conns: make(chan *websocket.Conn, 1), query: make(chan url.Values, 1)}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		s.query <- r.URL.Query()
		s.conns <- ws
	}))
	t.Cleanup(s.Close)
	return s
}

func collect() (func(events.Event), chan events.Event) {
	ch := make(chan events.Event, 16)
	return func(e events.Event) { ch <- e }, ch
}

func next(t *testing.T, ch chan events.Event) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	return events.Event{}
}

func TestSocketInboundMessages(t *testing.T) {
	srv := newServer(t)
	schema, err := frames.Load()
	if err != nil {
		t.Fatal(err)
	}
	emit, got := collect()
	sock := NewSocket(emit, WithSchema(schema))
	if err := sock.Open(context.Background(), Params{BaseURL: srv.URL, SessionID: "s1", Token: "tok"}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sock.Close()

	if q := <-srv.query; q.Get("session_id") != "s1" || q.Get("silence_response") != "false" {
		t.Fatalf("query = %v", q)
	}
	ws := <-srv.conns
	defer ws.Close()

	_ = ws.WriteMessage(websocket.TextMessage, []byte(`{oops`))
	_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"user_start"}`))
	_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"user_silence","silence_times":2,"count_down":5}`))
	frame, _ := schema.EncodeTranscription("hello there", "u1", "")
	_ = ws.WriteMessage(websocket.BinaryMessage, frame)

	if e := next(t, got); e.Type != events.UserStart {
		t.Fatalf("first event = %s (malformed message should be dropped)", e.Type)
	}
	e := next(t, got)
	d, ok := e.Detail.(events.SilenceDetail)
	if e.Type != events.UserSilence || !ok || d.SilenceTimes != 2 || d.CountDown != 5 {
		t.Fatalf("silence event = %+v", e)
	}
	e = next(t, got)
	if m, ok := e.Detail.(events.MessageDetail); e.Type != events.UserTalkingMessage || !ok || m.Message != "hello there" {
		t.Fatalf("transcription event = %+v", e)
	}
}

func TestSocketSendAndClose(t *testing.T) {
	srv := newServer(t)
	emit, _ := collect()
	sock := NewSocket(emit)
	if err := sock.Open(context.Background(), Params{BaseURL: srv.URL, SessionID: "s1", Token: "tok"}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	ws := <-srv.conns
	defer ws.Close()

	if err := sock.Send(core.Frame{1, 2, 3}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := ws.ReadMessage()
	if err != nil || kind != websocket.BinaryMessage || len(data) != 3 {
		t.Fatalf("server read: kind=%d data=%v err=%v", kind, data, err)
	}

	if err := sock.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sock.IsOpen() {
		t.Fatal("socket still open after Close")
	}
	if err := sock.Send(core.Frame{4}); err != nil {
		t.Fatalf("send after close should be a silent no-op, got %v", err)
	}
	if err := sock.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSocketRemoteCloseClearsHandle(t *testing.T) {
	srv := newServer(t)
	emit, _ := collect()
	sock := NewSocket(emit)
	if err := sock.Open(context.Background(), Params{BaseURL: srv.URL, SessionID: "s1", Token: "tok"}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	ws := <-srv.conns
	ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for sock.IsOpen() {
		if time.Now().After(deadline) {
			t.Fatal("handle not cleared after remote close")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := sock.Send(core.Frame{1}); err != nil {
		t.Fatalf("send after remote close: %v", err)
	}
}

func TestSocketOpenFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	emit, _ := collect()
	sock := NewSocket(emit)
	err := sock.Open(context.Background(), Params{BaseURL: srv.URL, SessionID: "s1", Token: "tok"})
	if err == nil {
		t.Fatal("expected open error")
	}
	if sock.IsOpen() {
		t.Fatal("failed open left a handle")
	}
	if err := sock.Close(); err != nil {
		t.Fatalf("Close after failed open: %v", err)
	}
}

func TestSocketForwardsUnknownEventTypes(t *testing.T) {
	var buf bytes.Buffer
	emit, got := collect()
	sock := NewSocket(emit)
	sock.logger = zerolog.New(&buf).Level(zerolog.DebugLevel)

	sock.handleMessage(websocket.TextMessage, []byte(`{"event_type":"avatar_wave","message":"hi"}`))
	if e := next(t, got); e.Type != "avatar_wave" {
		t.Fatalf("event = %+v", e)
	}
	if !strings.Contains(buf.String(), "unknown socket event type") {
		t.Fatalf("log = %q", buf.String())
	}

	buf.Reset()
	sock.handleMessage(websocket.TextMessage, []byte(`{"event_type":"user_stop"}`))
	next(t, got)
	if buf.Len() != 0 {
		t.Fatalf("known type logged: %q", buf.String())
	}
}
