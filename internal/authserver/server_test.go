package authserver

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestServerDeliversSuccessCallback(t *testing.T) {
	s, err := Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Serve(ctx)

	url := fmt.Sprintf("http://127.0.0.1:%d/callback?key=abc123&tenant_id=t1&tenant_name=Acme", s.Port())
	go func() {
		resp, err := http.Get(url)
		if err != nil {
			t.Logf("callback GET failed: %v", err)
			return
		}
		resp.Body.Close()
	}()

	res, err := s.Await(ctx, 2*time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if res.Key != "abc123" || res.TenantID != "t1" || res.TenantName != "Acme" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Err != "" {
		t.Fatalf("expected no error, got %q", res.Err)
	}
}

func TestServerDeliversErrorCallback(t *testing.T) {
	s, err := Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Serve(ctx)

	url := fmt.Sprintf("http://127.0.0.1:%d/callback?error=access_denied", s.Port())
	go func() {
		resp, err := http.Get(url)
		if err != nil {
			t.Logf("callback GET failed: %v", err)
			return
		}
		resp.Body.Close()
	}()

	res, err := s.Await(ctx, 2*time.Second)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if res.Err != "access_denied" {
		t.Fatalf("expected error result, got %+v", res)
	}
}

func TestAwaitTimesOutWithoutCallback(t *testing.T) {
	s, err := Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Serve(ctx)

	if _, err := s.Await(ctx, 50*time.Millisecond); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}
