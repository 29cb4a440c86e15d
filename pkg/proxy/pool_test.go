package proxy

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPool_AddAndNext(t *testing.T) {
	p := NewPool(Config{})
	if err := p.Add("http://p1.example:8080", "p2.example:8080"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	first := p.Next()
	if first == nil {
		t.Fatal("expected a proxy")
	}
	if first.Host != "p1.example:8080" {
		t.Errorf("expected p1 first, got %s", first.Host)
	}

	second := p.Next()
	if second == nil || second.Host != "p2.example:8080" {
		t.Errorf("expected p2 second, got %v", second)
	}
	// Missing scheme defaults to http
	if second.Scheme != "http" {
		t.Errorf("expected http scheme, got %s", second.Scheme)
	}

	// Wraps around
	third := p.Next()
	if third == nil || third.Host != "p1.example:8080" {
		t.Errorf("expected rotation back to p1, got %v", third)
	}
}

func TestPool_EmptyReturnsNil(t *testing.T) {
	p := NewPool(Config{})
	if got := p.Next(); got != nil {
		t.Errorf("expected nil from empty pool, got %v", got)
	}
}

func TestPool_DisableAfterFailures(t *testing.T) {
	p := NewPool(Config{MaxFailures: 2, Cooldown: time.Hour})
	if err := p.Add("http://bad.example:3128"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	u := p.Next()
	if u == nil {
		t.Fatal("expected a proxy")
	}

	if err := p.MarkFailure(u); err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}
	if got := p.Next(); got == nil {
		t.Fatal("one failure should not disable the proxy")
	}

	if err := p.MarkFailure(u); err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}
	if got := p.Next(); got != nil {
		t.Errorf("expected nil after hitting failure limit, got %v", got)
	}
}

func TestPool_RevivalAfterCooldown(t *testing.T) {
	p := NewPool(Config{MaxFailures: 1, Cooldown: 10 * time.Millisecond})
	if err := p.Add("http://flaky.example:3128"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	u := p.Next()
	if err := p.MarkFailure(u); err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}
	if got := p.Next(); got != nil {
		t.Fatal("expected proxy disabled")
	}

	time.Sleep(20 * time.Millisecond)

	if got := p.Next(); got == nil {
		t.Error("expected proxy revived after cooldown")
	}
}

func TestPool_MarkSuccessReducesFailures(t *testing.T) {
	p := NewPool(Config{MaxFailures: 2, Cooldown: time.Hour})
	if err := p.Add("http://ok.example:3128"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	u := p.Next()
	if err := p.MarkFailure(u); err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}
	if err := p.MarkSuccess(u); err != nil {
		t.Fatalf("MarkSuccess failed: %v", err)
	}
	// Failure count was reset by the success, one more failure must not disable
	if err := p.MarkFailure(u); err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}
	if got := p.Next(); got == nil {
		t.Error("proxy should still be healthy")
	}
}

func TestPool_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := "# comment\nhttp://a.example:8080\n\nb.example:8080\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	p := NewPool(Config{})
	if err := p.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	first := p.Next()
	second := p.Next()
	if first == nil || second == nil {
		t.Fatal("expected two proxies loaded")
	}
	if first.Host != "a.example:8080" || second.Host != "b.example:8080" {
		t.Errorf("unexpected proxies: %v %v", first, second)
	}
}

func TestPool_MarkUnknownProxy(t *testing.T) {
	p := NewPool(Config{})
	if err := p.Add("http://known.example:1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	unknown, err := url.Parse("http://other.example:2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := p.MarkFailure(unknown); err == nil {
		t.Error("expected error for unknown proxy")
	}
}
