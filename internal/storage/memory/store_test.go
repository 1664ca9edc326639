package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"course-localization-service/internal/storage"
)

func TestStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Put(ctx, "caption/c1_id.txt", []byte("first"), "text/plain"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "caption/c1_id.txt", []byte("second"), "text/plain"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get(ctx, "caption/c1_id.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}
	if s.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", s.Writes())
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	ok, err := s.Exists(context.Background(), "nope")
	if err != nil || ok {
		t.Errorf("Exists() = %v, %v, want false, nil", ok, err)
	}
}

func TestStore_UploadDownload(t *testing.T) {
	ctx := context.Background()
	s := New()
	dir := t.TempDir()

	src := filepath.Join(dir, "in.wav")
	if err := os.WriteFile(src, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Upload(ctx, src, "audio/c1_audio.wav", "audio/wav"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	obj, ok := s.Object("audio/c1_audio.wav")
	if !ok || obj.ContentType != "audio/wav" {
		t.Fatalf("Object() = %+v, %v", obj, ok)
	}

	dst := filepath.Join(dir, "out.wav")
	if err := s.Download(ctx, "audio/c1_audio.wav", dst); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "RIFF" {
		t.Errorf("downloaded %q, want %q", data, "RIFF")
	}
	if got := s.URI("audio/c1_audio.wav"); got != "mem://audio/c1_audio.wav" {
		t.Errorf("URI() = %q", got)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New()
	if err := s.Put(ctx, "x", nil, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Put() error = %v, want context.Canceled", err)
	}
	if len(s.Paths()) != 0 {
		t.Errorf("Paths() = %v, want empty", s.Paths())
	}
}
