package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"course-localization-service/internal/language"
	"course-localization-service/internal/models"
	"course-localization-service/internal/schema"
	"course-localization-service/internal/service/live"
	"course-localization-service/internal/service/pipeline"
	sttmock "course-localization-service/internal/service/stt/mock"
	translatemock "course-localization-service/internal/service/translate/mock"
	ttsmock "course-localization-service/internal/service/tts/mock"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type stubLocalizer struct{}

func (stubLocalizer) Localize(ctx context.Context, courseID, lang string) (*pipeline.LanguageResult, error) {
	return &pipeline.LanguageResult{Language: lang, Caption: "caption for " + courseID, Audio: []byte("mp3")}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *live.Manager) {
	t.Helper()
	langs := language.MustSet("en", "en", "id", "hi")
	script := func() sttmock.Script {
		return func(frame int, audio []byte) []sttmock.Result {
			return []sttmock.Result{{Text: fmt.Sprintf("frame-%d", frame), Final: true}}
		}
	}
	m, err := live.NewManager(live.Deps{
		Provider:    &sttmock.Provider{NewScript: script},
		Translator:  translatemock.New(),
		Synthesizer: ttsmock.New(),
		Localizer:   stubLocalizer{},
		Languages:   langs,
	}, live.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(New(m, schema.New(langs, 1024), DefaultConfig()))
	t.Cleanup(srv.Close)
	return srv, m
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, event string, data any) {
	t.Helper()
	if err := c.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, c *websocket.Conn) envelope {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := c.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestServer_AudioStream(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv)

	for i := 0; i < 3; i++ {
		send(t, c, models.EventAudioStream, models.AudioStreamRequest{AudioBuffer: []float64{0.1, 0.2}, Language: "id"})
	}

	for i := 1; i <= 3; i++ {
		env := read(t, c)
		if env.Event != models.EventCaption {
			t.Fatalf("expected caption, got %s %s", env.Event, env.Data)
		}
		var caption models.Caption
		json.Unmarshal(env.Data, &caption)
		want := translatemock.Render(fmt.Sprintf("frame-%d", i), "id")
		if caption.Text != want || caption.Seq != int64(i) {
			t.Errorf("expected %q seq %d, got %+v", want, i, caption)
		}
	}
}

func TestServer_ProcessAudioFile(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv)

	send(t, c, models.EventProcessAudioFile, models.ProcessAudioFileRequest{CourseID: "course42", TargetLanguage: "id"})

	env := read(t, c)
	if env.Event != models.EventCaptionAndAudio {
		t.Fatalf("expected captionAndAudio, got %s", env.Event)
	}
	var got models.CaptionAndAudio
	json.Unmarshal(env.Data, &got)
	if got.Caption != "caption for course42" || got.AudioContent != "bXAz" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestServer_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"event":`},
		{"unknown event", `{"event":"rewind","data":{}}`},
		{"missing data", `{"event":"audioStream"}`},
		{"invalid frame", `{"event":"audioStream","data":{"audioBuffer":[],"language":"id"}}`},
		{"unsupported language", `{"event":"processAudioFile","data":{"courseId":"c1","targetLanguage":"fr"}}`},
	}

	srv, _ := newTestServer(t)
	c := dial(t, srv)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.WriteMessage(websocket.TextMessage, []byte(tt.raw)); err != nil {
				t.Fatal(err)
			}
			env := read(t, c)
			if env.Event != models.EventError {
				t.Fatalf("expected error event, got %s", env.Event)
			}
			var msg models.ErrorMessage
			json.Unmarshal(env.Data, &msg)
			if msg.Message == "" || msg.Fatal {
				t.Errorf("unexpected error payload %+v", msg)
			}
		})
	}

	// the connection survives bad messages
	send(t, c, models.EventAudioStream, models.AudioStreamRequest{AudioBuffer: []float64{0}, Language: "en"})
	if env := read(t, c); env.Event != models.EventCaption {
		t.Errorf("expected caption after errors, got %s", env.Event)
	}
}

func TestServer_DisconnectClosesSession(t *testing.T) {
	srv, m := newTestServer(t)
	c := dial(t, srv)

	send(t, c, models.EventAudioStream, models.AudioStreamRequest{AudioBuffer: []float64{0}, Language: "id"})
	read(t, c)
	if m.Active() != 1 {
		t.Fatalf("expected 1 session, got %d", m.Active())
	}

	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for m.Active() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Active() != 0 {
		t.Errorf("expected session to close on disconnect, %d active", m.Active())
	}
}
