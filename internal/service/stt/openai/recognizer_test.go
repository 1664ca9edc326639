package openai

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"course-localization-service/internal/pcm"
	"course-localization-service/internal/service/stt"
)

type fakeWhisper struct {
	texts []string
	err   error
	reqs  []openai.AudioRequest
	sizes []int64
}

func (f *fakeWhisper) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	f.reqs = append(f.reqs, req)
	if info, err := os.Stat(req.FilePath); err == nil {
		f.sizes = append(f.sizes, info.Size())
	}
	if f.err != nil {
		return openai.AudioResponse{}, f.err
	}
	i := len(f.reqs) - 1
	if i >= len(f.texts) {
		return openai.AudioResponse{}, nil
	}
	return openai.AudioResponse{Text: f.texts[i]}, nil
}

// writeWAV writes seconds of 1 kHz mono silence.
func writeWAV(t *testing.T, seconds int) string {
	t.Helper()
	data := make([]byte, seconds*1000*2)
	var buf bytes.Buffer
	if err := pcm.WriteWAVHeader(&buf, 1000, 1, uint32(len(data))); err != nil {
		t.Fatal(err)
	}
	buf.Write(data)
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeLong_Chunks(t *testing.T) {
	path := writeWAV(t, 5)
	client := &fakeWhisper{texts: []string{" hello ", "", "world"}}
	r := NewWithClient(client, 2*time.Second)

	tr, err := r.TranscribeLong(context.Background(), stt.AudioRef{LocalPath: path}, "en-US")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.reqs) != 3 {
		t.Fatalf("expected 3 chunks for 5s at 2s each, got %d", len(client.reqs))
	}
	wantSizes := []int64{44 + 4000, 44 + 4000, 44 + 2000}
	for i, size := range client.sizes {
		if size != wantSizes[i] {
			t.Errorf("chunk %d: expected %d bytes, got %d", i, wantSizes[i], size)
		}
	}
	if client.reqs[0].Language != "en" {
		t.Errorf("expected normalized language hint, got %q", client.reqs[0].Language)
	}
	if client.reqs[0].Model != openai.Whisper1 {
		t.Errorf("expected whisper-1, got %s", client.reqs[0].Model)
	}
	if tr.Text != "hello world" {
		t.Errorf("expected joined transcript, got %q", tr.Text)
	}
}

func TestTranscribeLong_RequiresLocalFile(t *testing.T) {
	r := NewWithClient(&fakeWhisper{}, time.Second)
	if _, err := r.TranscribeLong(context.Background(), stt.AudioRef{URI: "gs://b/audio/c_audio.wav"}, "en"); err == nil {
		t.Fatal("expected error without local path")
	}
}

func TestTranscribeLong_ClientError(t *testing.T) {
	path := writeWAV(t, 1)
	r := NewWithClient(&fakeWhisper{err: errors.New("boom")}, time.Second)
	if _, err := r.TranscribeLong(context.Background(), stt.AudioRef{LocalPath: path}, "en"); err == nil {
		t.Fatal("expected error")
	}
}
