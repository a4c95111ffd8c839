package main

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/asistente-legal/intake-backend/internal/analysis"
	"github.com/asistente-legal/intake-backend/internal/api"
	"github.com/asistente-legal/intake-backend/internal/config"
	"github.com/asistente-legal/intake-backend/internal/services"
	"github.com/asistente-legal/intake-backend/internal/storage"
	"github.com/asistente-legal/intake-backend/internal/store"
)

func main() {
	// Environment first, before configuration reads it
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	log := logrus.New()
	if cfg.Development() {
		log.SetLevel(logrus.DebugLevel)
	}

	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY no está configurada. Algunas funciones no estarán disponibles.")
	} else {
		log.Infof("OPENAI_API_KEY cargada correctamente (longitud: %d)", len(cfg.OpenAI.APIKey))
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		log.Fatal("Failed to create conversations directory: ", err)
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Asistente Legal Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// Initialize services
	st := store.New()
	writer := storage.NewWriter(cfg.Storage.Dir, log)
	invoker := analysis.New(cfg.OpenAI, log)
	svc := services.NewServices(st, writer, invoker, log)

	// Setup routes
	api.SetupRoutes(app, svc, log)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Infof("Asistente legal backend starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
