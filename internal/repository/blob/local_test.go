package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocal_PutExistsURL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	l, err := NewLocal(dir, "/static/")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	if ok, err := l.Exists(ctx, "abc.png"); err != nil || ok {
		t.Fatalf("Exists before Put = %v, %v", ok, err)
	}
	if err := l.Put(ctx, "abc.png", []byte("data"), "image/png"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, err := l.Exists(ctx, "abc.png"); err != nil || !ok {
		t.Fatalf("Exists after Put = %v, %v", ok, err)
	}
	got, err := os.ReadFile(filepath.Join(l.Root(), "abc.png"))
	if err != nil || string(got) != "data" {
		t.Fatalf("stored %q, %v", got, err)
	}

	u, err := l.URL(ctx, "abc.png")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if u != "/static/abc.png" {
		t.Errorf("URL = %q", u)
	}
}

func TestLocal_URLMissing(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/static")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	_, err = l.URL(context.Background(), "missing.jpg")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocal_RejectsPathTraversal(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/static")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	for _, name := range []string{"../escape.png", "a/b.png", "..", ""} {
		if err := l.Put(context.Background(), name, []byte("x"), ""); err == nil {
			t.Errorf("Put(%q) succeeded, want error", name)
		}
	}
}

func TestObjectName(t *testing.T) {
	if got := ObjectName("id", "jpg"); got != "id.jpg" {
		t.Errorf("ObjectName = %q", got)
	}
	if got := ObjectName("id", ""); got != "id" {
		t.Errorf("ObjectName without format = %q", got)
	}
}
