package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/asistente-legal/intake-backend/internal/analysis"
	"github.com/asistente-legal/intake-backend/internal/models"
	"github.com/asistente-legal/intake-backend/internal/storage"
	"github.com/asistente-legal/intake-backend/internal/store"
)

// AnalysisService runs the model analysis over a conversation and merges
// the result back into the live record and its snapshot.
type AnalysisService struct {
	store   *store.Store
	writer  *storage.Writer
	invoker *analysis.Invoker
	log     *logrus.Logger
}

func NewAnalysisService(st *store.Store, writer *storage.Writer, invoker *analysis.Invoker, log *logrus.Logger) *AnalysisService {
	return &AnalysisService{
		store:   st,
		writer:  writer,
		invoker: invoker,
		log:     log,
	}
}

// Configured reports whether the model credential is available.
func (s *AnalysisService) Configured() bool {
	return s.invoker.Configured()
}

// Analyze resolves the conversation from memory or disk, invokes the
// model and persists the merged result. A conversation that only existed
// on disk is brought back into the live store. The parsed result is nil
// when the model declined structured output; the raw text is kept either
// way.
func (s *AnalysisService) Analyze(ctx context.Context, id string) (*models.Analysis, string, error) {
	conv := s.store.Get(id)
	if conv == nil {
		loaded, err := s.writer.Load(id)
		if err != nil {
			return nil, "", ErrNotFound
		}
		conv = loaded
	}

	parsed, raw, err := s.invoker.Analyze(ctx, conv)
	if err != nil {
		return nil, "", err
	}
	if parsed == nil {
		s.log.WithField("conversation_id", id).Warn("No se pudo parsear JSON desde la respuesta de OpenAI")
	}

	if parsed != nil {
		conv.Analysis = parsed
	}
	conv.AnalysisRaw = raw

	s.store.Put(conv)
	if err := s.writer.Save(conv); err != nil {
		s.log.WithError(err).WithField("conversation_id", id).Error("Failed to persist analysis")
	}

	return parsed, raw, nil
}
