package mock

import (
	"context"
	"errors"
	"testing"
)

func TestTranslator(t *testing.T) {
	boom := errors.New("quota exceeded")
	tr := New()
	tr.FailFor["hi"] = boom

	tests := []struct {
		target  string
		want    string
		wantErr error
	}{
		{target: "id", want: "[id] hello"},
		{target: "hi", wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, err := tr.Translate(context.Background(), "hello", tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Translate() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Translate() = %q, want %q", got, tt.want)
			}
		})
	}

	if tr.CallsFor("id") != 1 || tr.CallsFor("hi") != 1 {
		t.Errorf("calls = %+v", tr.Calls())
	}
}
