package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"narrated-quiz-service/internal/app"
	"narrated-quiz-service/internal/domain"
)

var (
	errInvalidPayload = errors.New("invalid payload")
	errUnsupported    = errors.New("unsupported message type")
)

// RESTHandler serves preferences and the question bank endpoints.
type RESTHandler struct {
	service *app.QuizService
	devices *DeviceIdentity
}

func NewRESTHandler(service *app.QuizService, devices *DeviceIdentity) *RESTHandler {
	return &RESTHandler{service: service, devices: devices}
}

func (h *RESTHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RESTHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	deviceID, err := h.devices.DeviceID(w, r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	prefs, err := h.service.Preferences(r.Context(), deviceID)
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

func (h *RESTHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	deviceID, err := h.devices.DeviceID(w, r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	var prefs app.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidPayload)
		return
	}
	if err := h.service.SetSound(r.Context(), deviceID, prefs.SoundEnabled); err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// NextQuestion serves GET /api/questions/next: 410 once the learner has seen every question.
func (h *RESTHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel := domain.Selection{Grade: q.Get("grade"), Subject: q.Get("subject"), Term: q.Get("term")}
	learnerID, err := h.learnerID(w, r, q.Get("learnerId"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	question, err := h.service.Bank().NextQuestion(r.Context(), sel, learnerID)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, question)
}

type resetRequest struct {
	Selection domain.Selection `json:"selection"`
	LearnerID string           `json:"learnerId"`
}

func (h *RESTHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidPayload)
		return
	}
	learnerID, err := h.learnerID(w, r, req.LearnerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if err := h.service.Bank().ResetProgress(r.Context(), req.Selection, learnerID); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) learnerID(w http.ResponseWriter, r *http.Request, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return h.devices.DeviceID(w, r)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrExhausted):
		return http.StatusGone
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Printf("http error: %v", err)
	}
	respondJSON(w, status, errorPayload{Message: err.Error()})
}
