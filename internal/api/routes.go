package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/asistente-legal/intake-backend/internal/api/handlers"
	"github.com/asistente-legal/intake-backend/internal/api/ws"
	"github.com/asistente-legal/intake-backend/internal/services"
)

// SetupRoutes configures the HTTP API and the websocket event channel.
func SetupRoutes(app *fiber.App, svc *services.Services, log *logrus.Logger) {
	api := app.Group("/api")

	// Conversation lifecycle
	api.Post("/start", handlers.StartConversation(svc))
	api.Post("/message", handlers.HandleMessage(svc))
	api.Post("/save_manual", handlers.SaveManual(svc))
	api.Get("/status", handlers.GetStatus(svc))

	// Listing and per-conversation operations
	api.Get("/conversations/list", handlers.ListConversations(svc))
	api.Get("/conversation/:id", handlers.GetConversation(svc))
	api.Post("/conversation/:id/delete", handlers.DeleteConversation(svc))

	// Analysis and letter export
	api.Post("/conversation/:id/entender", handlers.AnalyzeConversation(svc))
	api.Get("/conversation/:id/download.txt", handlers.DownloadLetterTxt(svc))
	api.Get("/conversation/:id/download.docx", handlers.DownloadLetterDocx(svc))

	// Voice recordings
	api.Post("/upload_voice_response", handlers.UploadVoiceResponse(svc))

	// Websocket event channel
	wsHandler := ws.NewHandler(svc.Conversations, log)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.Serve))

	// Fallback for unknown routes
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Ruta no encontrada",
		})
	})
}
