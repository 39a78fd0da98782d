package fs

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"clinic-records/internal/ports/blob"
)

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	info, err := s.Put(ctx, "pets/p1/photo.png", strings.NewReader("png-bytes"), blob.PutOptions{ContentType: "image/png"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("png-bytes")) {
		t.Fatalf("unexpected size %d", info.Size)
	}

	if _, err := s.Put(ctx, "pets/p1/photo.png", strings.NewReader("x"), blob.PutOptions{}); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := s.Get(ctx, "pets/p1/photo.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "png-bytes" || got.ContentType != "image/png" {
		t.Fatalf("unexpected blob: %q %+v", string(b), got)
	}

	if err := s.Delete(ctx, "pets/p1/photo.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := s.Get(ctx, "pets/p1/photo.png"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "pets/p1/photo.png"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_RejectsTraversal(t *testing.T) {
	s, _ := New(t.TempDir())
	for _, k := range []string{"", "../etc/passwd", "/abs", "a/../../b"} {
		if _, err := s.Put(context.Background(), k, strings.NewReader("x"), blob.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", k)
		}
	}
}
