package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskStorePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir, "http://localhost:8080/media/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := s.Put(context.Background(), "properties/p1/a.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://localhost:8080/media/properties/p1/a.jpg" {
		t.Errorf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "properties", "p1", "a.jpg"))
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("object = %q, want %q", data, "jpeg-bytes")
	}

	name, ok := s.NameFromURL(url)
	if !ok || name != "properties/p1/a.jpg" {
		t.Errorf("NameFromURL = %q, %v", name, ok)
	}

	if err := s.Delete(context.Background(), name); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(context.Background(), name); err != nil {
		t.Errorf("second delete should be a no-op: %v", err)
	}
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), "http://x")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	for _, name := range []string{"../escape.jpg", "/etc/passwd", "..", "."} {
		if _, err := s.Put(context.Background(), name, "image/jpeg", strings.NewReader("x")); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func TestNewName(t *testing.T) {
	a := NewName("properties/p1", ".png")
	b := NewName("properties/p1", ".png")
	if a == b {
		t.Error("expected unique names")
	}
	if !strings.HasPrefix(a, "properties/p1/") || !strings.HasSuffix(a, ".png") {
		t.Errorf("name = %q", a)
	}
}

func TestHTTPStore(t *testing.T) {
	var gotBody, gotType, gotAuth, gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewHTTPStore(srv.URL+"/bucket", "https://cdn.example.com", "secret")

	url, err := s.Put(context.Background(), "a.png", "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "https://cdn.example.com/a.png" {
		t.Errorf("url = %q", url)
	}
	if gotMethod != http.MethodPut || gotPath != "/bucket/a.png" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotType != "image/png" || gotAuth != "Bearer secret" || gotBody != "png" {
		t.Errorf("type=%q auth=%q body=%q", gotType, gotAuth, gotBody)
	}

	if err := s.Delete(context.Background(), "a.png"); err != nil {
		t.Errorf("delete of missing object should succeed: %v", err)
	}
}

func TestHTTPStoreError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewHTTPStore(srv.URL, "", "")
	if _, err := s.Put(context.Background(), "a.png", "image/png", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for 403")
	}
}
