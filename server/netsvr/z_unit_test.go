package netsvr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewChiServerDefaults(t *testing.T) {
	c := NewChiServer("")
	if !c.Ready() {
		t.Fatal("server from NewChiServer should be ready")
	}
	if c.Address() != defaultAddr {
		t.Fatalf("addr %q, want %q", c.Address(), defaultAddr)
	}
	if c.server.WriteTimeout != 60*time.Second {
		t.Fatalf("write timeout %v", c.server.WriteTimeout)
	}
}

func TestOptions(t *testing.T) {
	c := NewChiServer(":0", WithWriteTimeout(2*time.Minute), WithReadTimeout(0))
	if c.server.WriteTimeout != 2*time.Minute {
		t.Fatalf("write timeout %v", c.server.WriteTimeout)
	}
	if c.server.ReadTimeout != 10*time.Second {
		t.Fatalf("zero read timeout must keep the default, got %v", c.server.ReadTimeout)
	}
}

func TestGroupAndParam(t *testing.T) {
	c := NewChiServer("")
	c.Group("/v1", func(r NetRouter) {
		if sub, ok := r.(*ChiAdapter); !ok || sub.Ready() {
			t.Fatal("group router must not be a runnable server")
		}
		r.Get("/tables/{table}", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, Param(r, "table"))
		})
	})
	ts := httptest.NewServer(c.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/v1/tables/coinbox")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "coinbox" {
		t.Fatalf("param %q", body)
	}
}

func TestRunReturnsNilAfterShutdown(t *testing.T) {
	c := NewChiServer("127.0.0.1:0")
	done := make(chan error, 1)
	go func() { done <- c.Run() }()
	time.Sleep(50 * time.Millisecond)
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return")
	}
}
