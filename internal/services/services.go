package services

import (
	"github.com/sirupsen/logrus"

	"github.com/asistente-legal/intake-backend/internal/analysis"
	"github.com/asistente-legal/intake-backend/internal/storage"
	"github.com/asistente-legal/intake-backend/internal/store"
)

// Services holds all service instances handed to the API layer.
type Services struct {
	Conversations *ConversationService
	Analyzer      *AnalysisService
}

// NewServices creates all service instances.
func NewServices(st *store.Store, writer *storage.Writer, invoker *analysis.Invoker, log *logrus.Logger) *Services {
	return &Services{
		Conversations: NewConversationService(st, writer, log),
		Analyzer:      NewAnalysisService(st, writer, invoker, log),
	}
}
