// Package openai implements long-running recognition with the Whisper API.
// Whisper caps uploads at 25 MB, so the canonical WAV is split into
// fixed-length chunks that are transcribed in order.
package openai

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"course-localization-service/internal/language"
	"course-localization-service/internal/pcm"
	"course-localization-service/internal/service/stt"
)

// DefaultChunkDuration keeps 16 kHz mono chunks well below the upload cap.
const DefaultChunkDuration = 10 * time.Minute

// TranscriptionClient is the subset of the OpenAI client used here.
type TranscriptionClient interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Recognizer implements stt.Recognizer.
type Recognizer struct {
	client        TranscriptionClient
	chunkDuration time.Duration
}

// New creates a Whisper recognizer using apiKey.
func New(apiKey string) *Recognizer {
	return NewWithClient(openai.NewClient(apiKey), DefaultChunkDuration)
}

// NewWithClient creates a recognizer over an existing client.
func NewWithClient(client TranscriptionClient, chunkDuration time.Duration) *Recognizer {
	if chunkDuration <= 0 {
		chunkDuration = DefaultChunkDuration
	}
	return &Recognizer{client: client, chunkDuration: chunkDuration}
}

// TranscribeLong implements stt.Recognizer. Only local audio is supported.
func (r *Recognizer) TranscribeLong(ctx context.Context, audio stt.AudioRef, languageHint string) (stt.Transcript, error) {
	if audio.LocalPath == "" {
		return stt.Transcript{}, fmt.Errorf("whisper needs a local audio file, got %q", audio.URI)
	}

	dir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return stt.Transcript{}, err
	}
	defer os.RemoveAll(dir)

	chunks, err := splitWAV(audio.LocalPath, dir, r.chunkDuration)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("split audio: %w", err)
	}

	var segments []stt.Segment
	for i, chunk := range chunks {
		resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    openai.Whisper1,
			FilePath: chunk,
			Language: language.Normalize(languageHint),
		})
		if err != nil {
			return stt.Transcript{}, fmt.Errorf("transcribe chunk %d: %w", i, err)
		}
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			continue
		}
		segments = append(segments, stt.Segment{Text: text, Confidence: 1})
	}

	log.Debug().Int("chunks", len(chunks)).Int("segments", len(segments)).Msg("Whisper transcription complete")
	return stt.NewTranscript(segments), nil
}

// splitWAV writes consecutive chunks of at most d of audio as standalone
// WAV files in dir and returns their paths in order.
func splitWAV(path, dir string, d time.Duration) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := pcm.ReadWAVHeader(f)
	if err != nil {
		return nil, err
	}

	frameSize := int64(h.Channels) * 2
	chunkBytes := int64(d.Seconds()*float64(h.SampleRate)) * frameSize
	if chunkBytes <= 0 {
		return nil, fmt.Errorf("invalid chunk size for %d Hz", h.SampleRate)
	}

	var chunks []string
	buf := make([]byte, chunkBytes)
	for i := 0; ; i++ {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			n -= n % int(frameSize)
			chunk := filepath.Join(dir, fmt.Sprintf("chunk_%03d.wav", i))
			if werr := writeChunk(chunk, h, buf[:n]); werr != nil {
				return nil, werr
			}
			chunks = append(chunks, chunk)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return chunks, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func writeChunk(path string, h pcm.WAVHeader, data []byte) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pcm.WriteWAVHeader(out, h.SampleRate, h.Channels, uint32(len(data))); err != nil {
		out.Close()
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
