package http

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"

	"narrated-quiz-service/internal/app"
	"narrated-quiz-service/internal/domain"
	"narrated-quiz-service/internal/session"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.QuizService
	devices  *DeviceIdentity
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, devices *DeviceIdentity, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		service: service,
		devices: devices,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts any origin when none are configured or "*" is listed.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host) {
				return true
			}
		}
		return false
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Grade   string `json:"grade"`
	Subject string `json:"subject"`
	Term    string `json:"term"`
	Count   int    `json:"count"`
}

type answerPayload struct {
	Token uint64 `json:"token"`
	Value string `json:"value"`
}

type soundPayload struct {
	Enabled bool `json:"enabled"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs one narrated session per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	deviceID, err := h.devices.DeviceID(w, r)
	if err != nil {
		http.Error(w, "device identity unavailable", http.StatusInternalServerError)
		return
	}
	learnerID := r.URL.Query().Get("learnerId")

	// The upgrade writes its own response, so the device cookie is carried over explicitly.
	header := http.Header{}
	for _, c := range w.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", c)
	}
	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	playback := make(chan outboundMessage[any], 8)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	enqueue := func(msg outboundMessage[any]) bool {
		select {
		case <-closeSignals:
			return false
		default:
		}
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	player := NewSocketPlayer(playback, closeSignals)
	ctrl, err := h.service.Open(r.Context(), app.OpenRequest{LearnerID: learnerID, DeviceID: deviceID, Player: player})
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := ctrl.ID()
	log.Printf("session %s opened for device %s", sessionID, deviceID)

	go func() {
		defer close(writerDone)
		for {
			var msg outboundMessage[any]
			// Playback messages go first so stopAudio is not stuck behind state updates.
			select {
			case msg = <-playback:
			default:
				select {
				case msg = <-playback:
				case msg = <-send:
				case <-closeSignals:
					return
				}
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	updates, cancel := ctrl.Subscribe()
	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if !enqueue(outboundMessage[any]{Type: "state", Payload: update}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if inbound.Type == "playbackEnded" {
			var payload playbackEndedPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err == nil {
				player.ended(payload)
			}
			continue
		}
		if err := h.dispatch(r, ctrl, inbound); err != nil {
			enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		}
	}

	close(closeSignals)
	cancel()
	h.service.Close(sessionID)
	<-updatesDone
	<-writerDone
	log.Printf("session %s closed", sessionID)
}

func (h *WSHandler) dispatch(r *http.Request, ctrl *session.Controller, inbound inboundMessage) error {
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		sel := domain.Selection{Grade: payload.Grade, Subject: payload.Subject, Term: payload.Term}
		return ctrl.Start(sel, payload.Count)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		_, err := ctrl.Answer(payload.Token, payload.Value)
		return err
	case "skip":
		return ctrl.Skip()
	case "quit":
		return ctrl.Quit()
	case "retry":
		return ctrl.Retry()
	case "restart":
		return ctrl.Restart(r.Context())
	case "sound":
		var payload soundPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return ctrl.SetSound(payload.Enabled)
	default:
		return errUnsupported
	}
}
