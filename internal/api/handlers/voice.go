package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/asistente-legal/intake-backend/internal/services"
)

// UploadVoiceResponse stores a raw audio recording and appends an
// attachment turn to the conversation when it is live in memory.
func UploadVoiceResponse(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No se encontró el archivo",
			})
		}

		id := c.FormValue("conversation_id")
		if id == "" {
			id = c.Query("conversation_id")
		}
		if id == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Falta conversation_id",
			})
		}

		f, err := fh.Open()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error al subir el audio",
			})
		}
		defer f.Close()

		path, err := svc.Conversations.AttachAudio(id, f)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error al subir el audio",
			})
		}

		return c.JSON(fiber.Map{
			"message": "Audio recibido y guardado",
			"path":    path,
		})
	}
}
