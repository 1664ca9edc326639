// Command liveclient plays a WAV file against a live session: it streams the
// audio as audioStream frames paced in real time and prints the captions,
// or asks the server to localize a whole course with -course.
package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"course-localization-service/internal/models"
)

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to a 16-bit PCM WAV file")
	serverURL := flag.String("server", "ws://localhost:8080/v1/live", "Live session WebSocket URL")
	lang := flag.String("language", "id", "Caption language")
	dub := flag.Bool("dub", false, "Request dubbed audio for final captions")
	course := flag.String("course", "", "Localize this course on the server instead of streaming audio")
	frameMs := flag.Int("frame-ms", 1000, "Frame duration in milliseconds")
	wait := flag.Duration("wait", 5*time.Second, "Time to wait for trailing captions")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("server", *serverURL).Msg("Failed to connect")
	}
	defer conn.Close()
	log.Info().Str("server", *serverURL).Msg("Connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		readEvents(conn)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	if *course != "" {
		send(conn, models.EventProcessAudioFile, models.ProcessAudioFileRequest{CourseID: *course, TargetLanguage: *lang})
		log.Info().Str("courseId", *course).Msg("Requested course localization")
	} else {
		streamFile(conn, *audioFile, *frameMs, *lang, *dub, interrupt)
	}

	select {
	case <-done:
	case <-interrupt:
	case <-time.After(*wait):
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func streamFile(conn *websocket.Conn, path string, frameMs int, lang string, dub bool, interrupt <-chan os.Signal) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audio file")
	}
	defer f.Close()

	frames, hdr, err := readFrames(f, frameMs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read WAV file")
	}
	log.Info().
		Uint32("sampleRate", hdr.SampleRate).
		Uint16("channels", hdr.Channels).
		Int("frames", len(frames)).
		Msg("Streaming audio")

	ticker := time.NewTicker(time.Duration(frameMs) * time.Millisecond)
	defer ticker.Stop()

	for i, frame := range frames {
		send(conn, models.EventAudioStream, models.AudioStreamRequest{AudioBuffer: frame, Language: lang, Dub: dub})
		if (i+1)%10 == 0 {
			log.Info().Int("sent", i+1).Msg("Frames sent")
		}
		select {
		case <-ticker.C:
		case <-interrupt:
			return
		}
	}
	log.Info().Int("frames", len(frames)).Msg("Finished streaming")
}

func send(conn *websocket.Conn, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode message")
	}
	if err := conn.WriteJSON(models.ClientMessage{Event: event, Data: payload}); err != nil {
		log.Fatal().Err(err).Str("event", event).Msg("Failed to send")
	}
}

type serverEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readEvents(conn *websocket.Conn) {
	for {
		var ev serverEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("Connection closed")
			}
			return
		}

		switch ev.Event {
		case models.EventCaption:
			var c models.Caption
			_ = json.Unmarshal(ev.Data, &c)
			log.Info().Int64("seq", c.Seq).Bool("final", c.Final).Str("language", c.Language).Msg(c.Text)
		case models.EventAudio:
			var a models.Audio
			_ = json.Unmarshal(ev.Data, &a)
			log.Info().Int64("seq", a.Seq).Int("base64Bytes", len(a.AudioContent)).Msg("Dubbed audio")
		case models.EventCaptionAndAudio:
			var c models.CaptionAndAudio
			_ = json.Unmarshal(ev.Data, &c)
			log.Info().Str("courseId", c.CourseID).Str("language", c.Language).Int("base64Bytes", len(c.AudioContent)).Msg(c.Caption)
			return
		case models.EventError:
			var e models.ErrorMessage
			_ = json.Unmarshal(ev.Data, &e)
			log.Error().Bool("fatal", e.Fatal).Msg(e.Message)
			if e.Fatal {
				return
			}
		default:
			log.Warn().Str("event", ev.Event).Msg("Unknown event")
		}
	}
}
