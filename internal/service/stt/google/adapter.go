// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog/log"

	"course-localization-service/internal/service/stt"
)

// Config holds recognition settings shared by streaming and long-running requests.
type Config struct {
	LanguageCode   string
	SampleRateHz   int32
	InterimResults bool
	AudioEncoding  string
	Punctuation    bool
}

// DefaultConfig matches the canonical extraction format.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   "en-US",
		SampleRateHz:   16000,
		InterimResults: true,
		AudioEncoding:  "LINEAR16",
		Punctuation:    true,
	}
}

func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	if v, ok := speechpb.RecognitionConfig_AudioEncoding_value[s]; ok && v != 0 {
		return speechpb.RecognitionConfig_AudioEncoding(v)
	}
	return speechpb.RecognitionConfig_LINEAR16
}

func (c Config) recognitionConfig(languageCode string) *speechpb.RecognitionConfig {
	if languageCode == "" {
		languageCode = c.LanguageCode
	}
	return &speechpb.RecognitionConfig{
		Encoding:                   parseAudioEncoding(c.AudioEncoding),
		SampleRateHertz:            c.SampleRateHz,
		LanguageCode:               languageCode,
		AudioChannelCount:          1,
		EnableAutomaticPunctuation: c.Punctuation,
	}
}

// Client owns the Speech client and hands out per-session adapters. It
// implements stt.Provider and stt.Recognizer.
type Client struct {
	client *speech.Client
	cfg    Config
}

// New creates a Google STT client.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Client, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{client: c, cfg: cfg}, nil
}

// NewAdapter implements stt.Provider.
func (c *Client) NewAdapter(languageCode string) (stt.Adapter, error) {
	return &Adapter{client: c.client, cfg: c.cfg, languageCode: languageCode}, nil
}

// TranscribeLong implements stt.Recognizer. It starts a LongRunningRecognize
// operation and waits for it to finish. Audio stored outside GCS is sent inline.
func (c *Client) TranscribeLong(ctx context.Context, audio stt.AudioRef, languageHint string) (stt.Transcript, error) {
	cfg := c.cfg
	if audio.SampleRateHz > 0 {
		cfg.SampleRateHz = int32(audio.SampleRateHz)
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: cfg.recognitionConfig(languageHint),
	}
	if strings.HasPrefix(audio.URI, "gs://") {
		req.Audio = &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: audio.URI},
		}
	} else {
		content, err := os.ReadFile(audio.LocalPath)
		if err != nil {
			return stt.Transcript{}, fmt.Errorf("read audio for inline recognition: %w", err)
		}
		req.Audio = &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		}
	}

	log.Debug().Str("uri", audio.URI).Str("languageCode", req.Config.LanguageCode).Msg("Starting long running recognition")

	op, err := c.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("start long running recognize: %w", err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("wait for recognition: %w", err)
	}

	return transcriptFromResults(resp.GetResults()), nil
}

func transcriptFromResults(results []*speechpb.SpeechRecognitionResult) stt.Transcript {
	segments := make([]stt.Segment, 0, len(results))
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		segments = append(segments, stt.Segment{
			Text:       alts[0].GetTranscript(),
			Confidence: float64(alts[0].GetConfidence()),
		})
	}
	return stt.NewTranscript(segments)
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Adapter implements stt.Adapter over one StreamingRecognize call.
type Adapter struct {
	client       *speech.Client
	cfg          Config
	languageCode string

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
	cb     stt.Callback
	closed bool
}

// Start begins a streaming recognition session, sends the initial config and
// starts receiving responses in a separate goroutine.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.stream = stream
	a.cb = cb
	a.mu.Unlock()

	// Send streaming config as the first message
	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         a.cfg.recognitionConfig(a.languageCode),
				InterimResults: a.cfg.InterimResults,
			},
		},
	})
	if err != nil {
		return err
	}

	go a.listen()
	return nil
}

// SendAudio sends audio bytes to Google Speech-to-Text.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.stream == nil {
		return stt.ErrStreamEnded
	}
	return a.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Close ends the streaming session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.stream != nil {
		return a.stream.CloseSend()
	}
	return nil
}

// audioOffset converts a result end time to a byte offset into the mono
// LINEAR16 audio sent on the stream.
func audioOffset(d time.Duration, sampleRateHz int32) int64 {
	if d <= 0 || sampleRateHz <= 0 {
		return 0
	}
	return d.Nanoseconds() * int64(sampleRateHz) / int64(time.Second) * 2
}

// listen receives transcript responses from Google and invokes callbacks
// until the stream ends.
func (a *Adapter) listen() {
	for {
		resp, err := a.stream.Recv()
		if errors.Is(err, io.EOF) {
			a.cb.OnError(stt.ErrStreamEnded)
			return
		}
		if err != nil {
			a.cb.OnError(err)
			return
		}
		if st := resp.GetError(); st != nil {
			a.cb.OnError(fmt.Errorf("speech stream error %d: %s", st.GetCode(), st.GetMessage()))
			return
		}

		for _, r := range resp.GetResults() {
			alts := r.GetAlternatives()
			if len(alts) == 0 {
				continue
			}
			alt := alts[0]
			end := audioOffset(r.GetResultEndTime().AsDuration(), a.cfg.SampleRateHz)
			if r.GetIsFinal() {
				a.cb.OnFinal(alt.GetTranscript(), float64(alt.GetConfidence()), end)
			} else {
				a.cb.OnPartial(alt.GetTranscript(), end)
			}
		}
	}
}
