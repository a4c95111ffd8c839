package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/asistente-legal/intake-backend/internal/services"
)

// StartConversation creates a new conversation and returns the first
// question.
func StartConversation(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		conv, first := svc.Conversations.Start()

		return c.JSON(fiber.Map{
			"conversation_id": conv.ID,
			"message":         first,
			"timestamp":       conv.Timestamp,
		})
	}
}

// HandleMessage records the user's answer and advances the question flow.
func HandleMessage(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			ConversationID string `json:"conversation_id"`
			Message        string `json:"message"`
		}

		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No se recibieron datos",
			})
		}
		if req.ConversationID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Falta ID de conversación",
			})
		}

		res, err := svc.Conversations.HandleMessage(req.ConversationID, strings.TrimSpace(req.Message))
		if err != nil {
			return notFound(c, svc, req.ConversationID)
		}

		if res.Complete {
			return c.JSON(fiber.Map{
				"message":               res.Message,
				"conversation_complete": true,
				"summary":               res.Summary,
			})
		}
		return c.JSON(fiber.Map{
			"message":               res.Message,
			"conversation_complete": false,
			"progress":              res.Progress,
		})
	}
}

// SaveManual persists an in-progress conversation on request.
func SaveManual(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			ConversationID string `json:"conversation_id"`
		}

		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No se recibieron datos",
			})
		}
		if req.ConversationID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Falta ID de conversación",
			})
		}

		if err := svc.Conversations.SaveManual(req.ConversationID); err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return notFound(c, svc, req.ConversationID)
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "No se pudo guardar la conversación",
			})
		}

		return c.JSON(fiber.Map{
			"message":         "Conversación guardada manualmente.",
			"conversation_id": req.ConversationID,
			"timestamp":       time.Now().Format(time.RFC3339),
		})
	}
}

// GetStatus reports liveness, conversation counts and feature flags.
func GetStatus(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		active, total := svc.Conversations.Counts()

		return c.JSON(fiber.Map{
			"server":               "active",
			"timestamp":            time.Now().Format(time.RFC3339),
			"active_conversations": active,
			"total_conversations":  total,
			"version":              "1.0.0",
			"features": fiber.Map{
				"voice_recognition": true,
				"text_to_speech":    true,
				"openai_realtime":   svc.Analyzer.Configured(),
				"manual_save":       true,
			},
		})
	}
}

// ListConversations returns the merged memory+disk listing.
func ListConversations(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"conversations": svc.Conversations.List(),
		})
	}
}

// GetConversation fetches one conversation from memory or disk.
func GetConversation(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		conv, err := svc.Conversations.Get(id)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Conversación no encontrada",
			})
		}
		return c.JSON(fiber.Map{
			"conversation": conv,
		})
	}
}

// DeleteConversation removes the live record and every matching
// persisted file.
func DeleteConversation(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		removed := svc.Conversations.Delete(id)

		return c.JSON(fiber.Map{
			"deleted_files":   removed,
			"conversation_id": id,
		})
	}
}

// notFound is the shared 404 body; the active count is included as
// diagnostic context.
func notFound(c *fiber.Ctx, svc *services.Services, id string) error {
	_, total := svc.Conversations.Counts()
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":                "Conversación no encontrada",
		"conversation_id":      id,
		"active_conversations": total,
	})
}
