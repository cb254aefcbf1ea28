package remote

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

type payload struct {
	SessionID string `json:"session_id"`
}

func serve(t *testing.T, status int, body string) Endpoint {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return Endpoint{BaseURL: srv.URL, Key: "k"}
}

func TestDoDecodesBothEnvelopes(t *testing.T) {
	cases := map[string]string{
		"v1": `{"code":100,"message":"success","data":{"session_id":"s1"}}`,
		"v2": `{"error":null,"data":{"session_id":"s1"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			ep := serve(t, http.StatusOK, body)
			var out payload
			if err := Do(context.Background(), ep, Request{Path: "/x"}, &out); err != nil {
				t.Fatalf("Do: %v", err)
			}
			if out.SessionID != "s1" {
				t.Fatalf("session id = %q, want s1", out.SessionID)
			}
		})
	}
}

func TestDoWellKnownCodesOverrideServerMessage(t *testing.T) {
	for code, want := range knownMessages {
		body := `{"code":` + strconv.FormatInt(code, 10) + `,"message":"something else entirely"}`
		ep := serve(t, http.StatusBadRequest, body)
		err := Do(context.Background(), ep, Request{Path: "/x"}, nil)
		e, ok := AsError(err)
		if !ok {
			t.Fatalf("code %d: expected *Error, got %v", code, err)
		}
		if e.Message != want || e.Code != code {
			t.Fatalf("code %d: got (%d, %q), want %q", code, e.Code, e.Message, want)
		}
	}
}

func TestDoV2ErrorUsesTable(t *testing.T) {
	ep := serve(t, http.StatusTooManyRequests, `{"error":{"code":400123,"message":"slow down"},"data":null}`)
	err := Do(context.Background(), ep, Request{Path: "/x"}, nil)
	e, ok := AsError(err)
	if !ok || e.Message != "Exceed rate limit" || !e.IsRateLimit() {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDoUnknownCodeKeepsServerMessage(t *testing.T) {
	ep := serve(t, http.StatusBadRequest, `{"code":123,"message":"avatar busy"}`)
	err := Do(context.Background(), ep, Request{Path: "/x"}, nil)
	if err == nil || err.Error() != "avatar busy" {
		t.Fatalf("err = %v, want avatar busy", err)
	}

	ep = serve(t, http.StatusBadRequest, `{"code":123}`)
	err = Do(context.Background(), ep, Request{Path: "/x"}, nil)
	if err == nil || err.Error() != "Unknown error" {
		t.Fatalf("err = %v, want Unknown error", err)
	}
}

func TestDoNonJSONFailureCarriesStatus(t *testing.T) {
	ep := serve(t, http.StatusBadGateway, "<html>bad gateway</html>")
	err := Do(context.Background(), ep, Request{Path: "/x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v, want status 502 in message", err)
	}
}

func TestDoUnrecognizedShape(t *testing.T) {
	ep := serve(t, http.StatusOK, `{"result":"ok"}`)
	err := Do(context.Background(), ep, Request{Path: "/x"}, nil)
	if err == nil || err.Error() != "Unknown error" {
		t.Fatalf("err = %v, want Unknown error", err)
	}
}

func TestDoV2NullErrorOnFailureStatus(t *testing.T) {
	ep := serve(t, http.StatusInternalServerError, `{"error":null}`)
	err := Do(context.Background(), ep, Request{Path: "/x"}, nil)
	e, ok := AsError(err)
	if !ok || e.Message != "Unknown error" || !e.Retryable() {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDoMalformedSuccessBody(t *testing.T) {
	ep := serve(t, http.StatusOK, `{"code":`)
	err := Do(context.Background(), ep, Request{Path: "/x"}, nil)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if _, ok := AsError(err); ok {
		t.Fatalf("decode failure should not be a service error: %v", err)
	}
}

func TestDoNetworkErrorPropagates(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	err = Do(context.Background(), Endpoint{BaseURL: "http://" + addr}, Request{Path: "/x"}, nil)
	if err == nil {
		t.Fatal("expected network error")
	}
	var urlErr interface{ Timeout() bool }
	if !errors.As(err, &urlErr) {
		t.Fatalf("expected transport error, got %T", err)
	}
	if _, ok := AsError(err); ok {
		t.Fatal("network error must not be classified")
	}
}

func TestDoAuthHeaders(t *testing.T) {
	var gotKey, gotBearer, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotBearer = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_, _ = io.WriteString(w, `{"code":100,"data":null}`)
	}))
	defer srv.Close()

	ep := Endpoint{BaseURL: srv.URL, Key: "api-key"}
	if err := Do(context.Background(), ep, Request{Method: http.MethodPost, Path: "/x", Body: map[string]string{"a": "b"}}, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotKey != "api-key" || gotBearer != "" || gotType != "application/json" {
		t.Fatalf("key auth headers: key=%q bearer=%q type=%q", gotKey, gotBearer, gotType)
	}

	ep = ep.WithAuth(AuthBearer, "tok")
	if err := Do(context.Background(), ep, Request{Method: http.MethodPost, Path: "/x", Raw: []byte{1, 2}, ContentType: "image/png"}, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotKey != "" || gotBearer != "Bearer tok" || gotType != "image/png" {
		t.Fatalf("bearer headers: key=%q bearer=%q type=%q", gotKey, gotBearer, gotType)
	}
}
