package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalArchiver_Archive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/v.mp4" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("fake video bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	archiver, err := NewLocalArchiver(dir, "https://assets.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := archiver.Archive(context.Background(), "jobs/abc/0.mp4", server.URL+"/assets/v.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://assets.example.com/jobs/abc/0.mp4" {
		t.Errorf("unexpected url %q", url)
	}

	stored, err := os.ReadFile(filepath.Join(dir, "jobs", "abc", "0.mp4"))
	if err != nil {
		t.Fatalf("expected archived file: %v", err)
	}
	if string(stored) != "fake video bytes" {
		t.Errorf("unexpected file contents %q", stored)
	}
}

func TestLocalArchiver_Archive_FileURLWithoutBase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	dir := t.TempDir()
	archiver, err := NewLocalArchiver(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := archiver.Archive(context.Background(), "jobs/abc/0.png", server.URL+"/a.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "file://" + filepath.Join(dir, "jobs", "abc", "0.png")
	if url != want {
		t.Errorf("expected %q, got %q", want, url)
	}
}

func TestLocalArchiver_Archive_DownloadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	archiver, err := NewLocalArchiver(t.TempDir(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = archiver.Archive(context.Background(), "jobs/abc/0.png", server.URL+"/gone.png")
	if !errors.Is(err, ErrDownloadFailed) {
		t.Errorf("expected ErrDownloadFailed, got %v", err)
	}
}

func TestLocalArchiver_Archive_KeyTraversalIsContained(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	dir := t.TempDir()
	archiver, err := NewLocalArchiver(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = archiver.Archive(context.Background(), "../escape.bin", server.URL+"/a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "escape.bin")); statErr == nil {
		t.Error("expected traversal key to stay inside the archive directory")
	}
}
