package portal

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/narration"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
)

type narrationRequest struct {
	Result narration.AnalysisResult `json:"result"`
	Rate   float64                  `json:"rate,omitempty"`
	Pitch  float64                  `json:"pitch,omitempty"`
	Volume float64                  `json:"volume,omitempty"`
	Voice  string                   `json:"voice,omitempty"`
}

// GenerateScript returns the spoken summary for an analysis result without
// driving the engine.
func (h *Handler) GenerateScript(w http.ResponseWriter, r *http.Request) {
	if requireUser(w, r) == nil {
		return
	}

	var req narrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"script": narration.GenerateScript(req.Result),
	})
}

// Speak narrates an analysis result. Blocks until the utterance completes; a
// caller superseded by a newer utterance or Stop gets the current state
// instead of an error.
func (h *Handler) Speak(w http.ResponseWriter, r *http.Request) {
	if requireUser(w, r) == nil {
		return
	}
	if h.narrator == nil {
		writeError(w, errors.Unavailable("speech engine", narration.ErrUnsupported))
		return
	}

	var req narrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	err := h.narrator.SpeakAnalysisResult(r.Context(), req.Result, narration.Options{
		Rate:   req.Rate,
		Pitch:  req.Pitch,
		Volume: req.Volume,
		Voice:  req.Voice,
	})
	if err != nil && !stderrors.Is(err, narration.ErrSuperseded) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"state": string(h.narrator.State()),
	})
}

// StopNarration cancels any in-flight utterance. Safe when idle.
func (h *Handler) StopNarration(w http.ResponseWriter, r *http.Request) {
	if requireUser(w, r) == nil {
		return
	}
	if h.narrator == nil {
		writeError(w, errors.Unavailable("speech engine", narration.ErrUnsupported))
		return
	}

	h.narrator.Stop()
	writeJSON(w, http.StatusOK, map[string]string{
		"state": string(h.narrator.State()),
	})
}

// NarrationState reports the playback state.
func (h *Handler) NarrationState(w http.ResponseWriter, r *http.Request) {
	if requireUser(w, r) == nil {
		return
	}

	state := "unsupported"
	if h.narrator != nil {
		state = string(h.narrator.State())
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": state})
}
