package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"course-localization-service/internal/artifact"
	"course-localization-service/internal/events"
	"course-localization-service/internal/language"
	"course-localization-service/internal/models"
	"course-localization-service/internal/schema"
	"course-localization-service/internal/storage"
)

const maxUploadBody = 64 << 10

type handlers struct {
	deps Deps
}

type languagesResponse struct {
	Source    string   `json:"source"`
	Supported []string `json:"supported"`
}

type uploadResponse struct {
	Accepted bool   `json:"accepted"`
	Object   string `json:"object"`
	CourseID string `json:"courseId"`
}

type artifactStatus struct {
	artifact.Entry
	Exists bool `json:"exists"`
}

type artifactsResponse struct {
	CourseID  string           `json:"courseId"`
	Complete  bool             `json:"complete"`
	Artifacts []artifactStatus `json:"artifacts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, languagesResponse{
		Source:    h.deps.Languages.Source(),
		Supported: h.deps.Languages.Codes(),
	})
}

// upload is the manual trigger: it accepts an object-finalize shaped event
// and starts a run in the background, or answers 503 when every run slot
// is taken.
func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := models.ParseUploadEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.deps.Dispatcher.TryDispatchEvent(r.Context(), "http", ev); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, events.ErrBusy) {
			status = http.StatusServiceUnavailable
			w.Header().Set("Retry-After", "30")
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{
		Accepted: true,
		Object:   ev.Name,
		CourseID: artifact.CourseIDFromObject(ev.Name),
	})
}

func (h *handlers) artifacts(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	if err := schema.ValidateCourseID(courseID); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := artifactsResponse{CourseID: courseID, Complete: true}
	for _, entry := range artifact.Layout(courseID, h.deps.Languages) {
		ok, err := h.deps.Store.Exists(r.Context(), entry.Path)
		if err != nil {
			log.Error().Err(err).Str("path", entry.Path).Msg("Failed to check artifact")
			writeError(w, http.StatusBadGateway, err)
			return
		}
		resp.Complete = resp.Complete && ok
		resp.Artifacts = append(resp.Artifacts, artifactStatus{Entry: entry, Exists: ok})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) caption(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseId")
	if err := schema.ValidateCourseID(courseID); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lang := language.Normalize(chi.URLParam(r, "lang"))
	if !h.deps.Languages.Supports(lang) {
		writeError(w, http.StatusNotFound, errors.New("unsupported language"))
		return
	}

	data, err := h.deps.Store.Get(r.Context(), artifact.CaptionPath(courseID, lang))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("courseId", courseID).Str("language", lang).Msg("Failed to read caption")
		writeError(w, http.StatusBadGateway, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentTypeCaption)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
