// Package ws implements the real-time event channel: a single websocket
// endpoint carrying event-tagged JSON frames. Audio and text processing
// are simulated; no model call happens here.
package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/asistente-legal/intake-backend/internal/services"
)

// Handler serves one websocket connection per client.
type Handler struct {
	conversations *services.ConversationService
	log           *logrus.Logger
}

func NewHandler(conversations *services.ConversationService, log *logrus.Logger) *Handler {
	return &Handler{conversations: conversations, log: log}
}

// frame is one inbound event with its payload.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outFrame is one outbound event.
type outFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type eventPayload struct {
	ConversationID string `json:"conversation_id"`
	Audio          string `json:"audio,omitempty"`
	Text           string `json:"text,omitempty"`
}

// Serve acknowledges the connection, then dispatches inbound events
// until the client disconnects.
func (h *Handler) Serve(c *websocket.Conn) {
	sid := uuid.NewString()
	h.log.WithField("sid", sid).Info("Client connected")

	h.emit(c, "connection_status", map[string]interface{}{
		"status": "connected",
		"sid":    sid,
	})

	for {
		var f frame
		if err := c.ReadJSON(&f); err != nil {
			break
		}

		var p eventPayload
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &p); err != nil {
				h.emitError(c, "Datos no válidos")
				continue
			}
		}

		switch f.Event {
		case "openai_connect":
			h.handleConnect(c, sid, p)
		case "audio_data":
			h.handleAudio(c, p)
		case "text_input":
			h.handleText(c, p)
		default:
			h.emitError(c, "Evento no reconocido")
		}
	}

	h.log.WithField("sid", sid).Info("Client disconnected")
}

func (h *Handler) handleConnect(c *websocket.Conn, sid string, p eventPayload) {
	if p.ConversationID == "" || !h.conversations.MarkRealtimeConnected(p.ConversationID) {
		h.emitError(c, "Conversación no válida")
		return
	}

	h.log.WithField("conversation_id", p.ConversationID).Info("Realtime connection requested")

	h.emit(c, "openai_connected", map[string]interface{}{
		"status":          "connected",
		"sid":             sid,
		"conversation_id": p.ConversationID,
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleAudio(c *websocket.Conn, p eventPayload) {
	if p.ConversationID == "" || !h.conversations.Exists(p.ConversationID) {
		h.emitError(c, "Conversación no válida")
		return
	}
	if p.Audio == "" {
		h.emitError(c, "No se recibieron datos de audio")
		return
	}

	h.log.WithFields(logrus.Fields{
		"conversation_id": p.ConversationID,
		"bytes":           len(p.Audio),
	}).Info("Audio data received")

	// Simulated response; no audio decoding happens here.
	h.emit(c, "openai_response", map[string]interface{}{
		"text":            "Estoy procesando tu solicitud. ¿Puedes proporcionar más detalles sobre tu caso legal?",
		"conversation_id": p.ConversationID,
		"timestamp":       time.Now().Format(time.RFC3339),
		"processing_time": 0.5,
	})
}

func (h *Handler) handleText(c *websocket.Conn, p eventPayload) {
	if p.ConversationID == "" || !h.conversations.Exists(p.ConversationID) {
		h.emitError(c, "Conversación no válida")
		return
	}
	if p.Text == "" {
		h.emitError(c, "No se recibió texto")
		return
	}

	h.log.WithField("conversation_id", p.ConversationID).Info("Text input received")

	// Simulated response; a full implementation would call the model.
	h.emit(c, "openai_response", map[string]interface{}{
		"text":            fmt.Sprintf("He entendido que tu caso legal involucra: %s. ¿Puedes proporcionar más detalles específicos sobre las partes involucradas?", p.Text),
		"conversation_id": p.ConversationID,
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) emit(c *websocket.Conn, event string, data interface{}) {
	if err := c.WriteJSON(outFrame{Event: event, Data: data}); err != nil {
		h.log.WithError(err).Warn("Failed to write websocket frame")
	}
}

func (h *Handler) emitError(c *websocket.Conn, message string) {
	h.emit(c, "error", map[string]interface{}{"message": message})
}
