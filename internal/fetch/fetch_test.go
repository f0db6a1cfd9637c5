package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fcanata061/pbuild/internal/pkgerr"
)

func TestHTTPFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.tar.xz")

	f := &HTTPFetcher{Client: srv.Client(), MaxRetries: 1}
	if err := f.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "archive-bytes" {
		t.Fatalf("got %q", data)
	}
}

func TestHTTPFetcherNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.tar.xz")

	f := &HTTPFetcher{Client: srv.Client(), MaxRetries: 1}
	err := f.Fetch(context.Background(), srv.URL, dest)
	if !pkgerr.Is(err, pkgerr.FetchFailed) {
		t.Fatalf("expected FetchFailed, got %v", err)
	}
}

func TestIsHTTPURL(t *testing.T) {
	if !IsHTTPURL("https://example.com/a.tar.xz") {
		t.Fatal("expected true for https")
	}
	if IsHTTPURL("git://example.com/a.git") {
		t.Fatal("expected false for git URL")
	}
}
