package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("put then get", func(t *testing.T) {
		if err := s.Put(ctx, "charts/abc.jpg", strings.NewReader("image-bytes"), "image/jpeg"); err != nil {
			t.Fatal(err)
		}

		rc, err := s.Get(ctx, "charts/abc.jpg")
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "image-bytes" {
			t.Errorf("got %q", data)
		}
	})

	t.Run("get missing blob", func(t *testing.T) {
		_, err := s.Get(ctx, "charts/nope.jpg")
		if !errors.Is(err, ErrBlobNotFound) {
			t.Errorf("expected ErrBlobNotFound, got %v", err)
		}
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := s.Exists(ctx, "charts/abc.jpg")
		if err != nil || !ok {
			t.Errorf("exists = %v, %v", ok, err)
		}
		ok, err = s.Exists(ctx, "charts/nope.jpg")
		if err != nil || ok {
			t.Errorf("exists = %v, %v", ok, err)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		if err := s.Delete(ctx, "charts/abc.jpg"); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "charts/abc.jpg"); err != nil {
			t.Fatal(err)
		}
		ok, _ := s.Exists(ctx, "charts/abc.jpg")
		if ok {
			t.Error("blob still present after delete")
		}
	})

	t.Run("rejects path escape", func(t *testing.T) {
		if err := s.Put(ctx, "../escape", strings.NewReader("x"), ""); err == nil {
			t.Error("expected error for escaping key")
		}
		if err := s.Put(ctx, "/abs/path", strings.NewReader("x"), ""); err == nil {
			t.Error("expected error for absolute key")
		}
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		if err := s.Put(ctx, "k", strings.NewReader("v1"), ""); err != nil {
			t.Fatal(err)
		}
		if err := s.Put(ctx, "k", strings.NewReader("v2"), ""); err != nil {
			t.Fatal(err)
		}
		rc, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		if string(data) != "v2" {
			t.Errorf("got %q, want v2", data)
		}
	})
}
