package http

import (
	"AskBot/backend/go/internal/config"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewServer_WithAddress(t *testing.T) {
	srv := NewServer(http.NotFoundHandler(), WithAddress(":9999"))
	if srv.Addr() != ":9999" {
		t.Errorf("expected address %s, got %s", ":9999", srv.Addr())
	}
	if NewServer(http.NotFoundHandler()).Addr() != ":8000" {
		t.Errorf("expected default address :8000")
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := NewServer(handler, WithShutdownTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("expected body 'ok', got %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestClient_CircuitBreakerOpensOnServerErrors(t *testing.T) {
	var hits int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer backend.Close()

	client, err := NewClient(time.Second, config.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          "1m",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, backend.URL, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("request %d: expected 502, got %d", i, resp.StatusCode)
		}
		resp.Body.Close()
	}

	req, _ := http.NewRequest(http.MethodGet, backend.URL, nil)
	if _, err := client.Do(req); err == nil {
		t.Fatal("expected circuit open error")
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("expected backend to be hit 2 times, got %d", got)
	}
}

func TestClient_InvalidBreakerTimeout(t *testing.T) {
	_, err := NewClient(time.Second, config.CircuitBreakerConfig{Enabled: true, Timeout: "later"})
	if err == nil {
		t.Fatal("expected error for invalid timeout")
	}
}

func TestClient_WithoutBreaker(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	client, err := NewClient(time.Second, config.CircuitBreakerConfig{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	for i := 0; i < 5; i++ {
		req, _ := http.NewRequest(http.MethodGet, backend.URL, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()
	}
}
