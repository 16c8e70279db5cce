package transcript

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcripts/call-42" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("Speaker 1: Hello.\nSpeaker 2: Hi there.\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	text, err := c.Fetch(context.Background(), "call-42")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(text, "Speaker 2: Hi there.") {
		t.Errorf("got %q", text)
	}
	if strings.HasSuffix(text, "\n") {
		t.Error("trailing whitespace should be trimmed")
	}
}

func TestFetch_escapesID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	if _, err := c.Fetch(context.Background(), "a/b c"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/transcripts/a%2Fb%20c" {
		t.Errorf("request path = %q", gotPath)
	}
}

func TestFetch_notFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Fetch(context.Background(), "missing"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestFetch_emptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  \n "))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Fetch(context.Background(), "blank"); err == nil {
		t.Error("expected error for empty transcript")
	}
}

func TestFetch_timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte("too late"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Millisecond)
	if _, err := c.Fetch(context.Background(), "slow"); err == nil {
		t.Error("expected timeout error")
	}
}
