package schema

import (
	"errors"
	"math"
	"testing"

	"course-localization-service/internal/language"
	"course-localization-service/internal/models"
)

func TestValidate(t *testing.T) {
	v := New(language.MustSet("en", "en", "id", "hi"), 4)

	tests := []struct {
		name    string
		payload any
		wantErr bool
	}{
		{"upload ok", models.UploadEvent{Name: "c1_c1.mp4"}, false},
		{"upload pointer ok", &models.UploadEvent{Name: "c1_c1.mp4"}, false},
		{"upload missing name", models.UploadEvent{Bucket: "b"}, true},
		{"process ok", models.ProcessAudioFileRequest{CourseID: "course42", TargetLanguage: "id"}, false},
		{"process region tag", models.ProcessAudioFileRequest{CourseID: "course42", TargetLanguage: "hi-IN"}, false},
		{"process missing course", models.ProcessAudioFileRequest{TargetLanguage: "id"}, true},
		{"process path course", models.ProcessAudioFileRequest{CourseID: "../etc", TargetLanguage: "id"}, true},
		{"process missing language", models.ProcessAudioFileRequest{CourseID: "course42"}, true},
		{"process unsupported language", models.ProcessAudioFileRequest{CourseID: "course42", TargetLanguage: "fr"}, true},
		{"stream ok", models.AudioStreamRequest{AudioBuffer: []float64{0, 0.5}, Language: "id"}, false},
		{"stream default language", models.AudioStreamRequest{AudioBuffer: []float64{0}}, false},
		{"stream empty", models.AudioStreamRequest{Language: "id"}, true},
		{"stream too large", models.AudioStreamRequest{AudioBuffer: make([]float64, 5)}, true},
		{"stream NaN", models.AudioStreamRequest{AudioBuffer: []float64{math.NaN()}}, true},
		{"stream unsupported language", models.AudioStreamRequest{AudioBuffer: []float64{0}, Language: "fr"}, true},
		{"unknown type", struct{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.payload)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
