package handlers

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/asistente-legal/intake-backend/internal/analysis"
	"github.com/asistente-legal/intake-backend/internal/export"
	"github.com/asistente-legal/intake-backend/internal/services"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// AnalyzeConversation runs the model over the transcript, drafting the
// formal letter and classifying the case.
func AnalyzeConversation(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		parsed, raw, err := svc.Analyzer.Analyze(c.Context(), id)
		switch {
		case errors.Is(err, services.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Conversación no encontrada",
			})
		case errors.Is(err, analysis.ErrNoAPIKey):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "OPENAI_API_KEY no está configurada en el servidor. Configure la variable de entorno.",
			})
		case errors.Is(err, analysis.ErrUpstream):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   "Error llamando a OpenAI",
				"details": err.Error(),
			})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "No se pudo procesar la conversación con OpenAI",
			})
		}

		if parsed != nil {
			return c.JSON(fiber.Map{"result": parsed})
		}
		return c.JSON(fiber.Map{"result_text": raw})
	}
}

// DownloadLetterTxt serves the drafted letter as a plain-text attachment.
func DownloadLetterTxt(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		conv, err := svc.Conversations.Get(id)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Conversación no encontrada",
			})
		}

		c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=letter_%s.txt", id))
		return c.SendString(export.Letter(conv))
	}
}

// DownloadLetterDocx serves the drafted letter as a word-processor
// document.
func DownloadLetterDocx(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		conv, err := svc.Conversations.Get(id)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Conversación no encontrada",
			})
		}

		var buf bytes.Buffer
		if err := export.WriteDocx(&buf, id, export.Letter(conv)); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "No se pudo generar el archivo docx",
			})
		}

		c.Set(fiber.HeaderContentType, docxMIME)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=letter_%s.docx", id))
		return c.Send(buf.Bytes())
	}
}
