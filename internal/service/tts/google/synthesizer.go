// Package google synthesizes dubbed audio with Cloud Text-to-Speech.
package google

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/rs/zerolog/log"

	"course-localization-service/internal/service/tts"
)

// Config selects the voice used for every language.
type Config struct {
	Gender       string // FEMALE, MALE, NEUTRAL
	SpeakingRate float64
}

// DefaultConfig returns a female voice at normal speed.
func DefaultConfig() Config {
	return Config{Gender: "FEMALE", SpeakingRate: 1.0}
}

func parseGender(s string) texttospeechpb.SsmlVoiceGender {
	if v, ok := texttospeechpb.SsmlVoiceGender_value[strings.ToUpper(s)]; ok && v != 0 {
		return texttospeechpb.SsmlVoiceGender(v)
	}
	return texttospeechpb.SsmlVoiceGender_FEMALE
}

// Synthesizer implements tts.Synthesizer.
type Synthesizer struct {
	client *texttospeech.Client
	cfg    Config
}

// New creates a Text-to-Speech client.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Synthesizer, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Synthesizer{client: c, cfg: cfg}, nil
}

func (s *Synthesizer) request(text, languageCode string) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			SsmlGender:   parseGender(s.cfg.Gender),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  s.cfg.SpeakingRate,
		},
	}
}

// SynthesizeSpeech implements tts.Synthesizer and returns MP3 bytes.
func (s *Synthesizer) SynthesizeSpeech(ctx context.Context, text, languageCode string) ([]byte, error) {
	resp, err := s.client.SynthesizeSpeech(ctx, s.request(text, languageCode))
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", languageCode, err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, tts.ErrEmptyAudio
	}
	log.Debug().Str("languageCode", languageCode).Int("bytes", len(resp.GetAudioContent())).Msg("Synthesized speech")
	return resp.GetAudioContent(), nil
}

// Close releases the underlying client.
func (s *Synthesizer) Close() error {
	return s.client.Close()
}
