package services

import (
	"errors"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/asistente-legal/intake-backend/internal/flow"
	"github.com/asistente-legal/intake-backend/internal/models"
	"github.com/asistente-legal/intake-backend/internal/storage"
	"github.com/asistente-legal/intake-backend/internal/store"
)

// ErrNotFound is returned when a conversation exists neither in memory
// nor on disk.
var ErrNotFound = errors.New("conversación no encontrada")

// ConversationService owns the conversation lifecycle: starting, advancing
// through the question flow, persisting, listing and deleting.
type ConversationService struct {
	store  *store.Store
	writer *storage.Writer
	log    *logrus.Logger
	now    func() time.Time
}

func NewConversationService(st *store.Store, writer *storage.Writer, log *logrus.Logger) *ConversationService {
	return &ConversationService{
		store:  st,
		writer: writer,
		log:    log,
		now:    time.Now,
	}
}

// Start creates a new conversation with the first question already asked.
func (s *ConversationService) Start() (*models.Conversation, string) {
	now := s.now()
	conv := models.NewConversation(uuid.NewString(), now)
	first := flow.Start(conv, now)
	s.store.Put(conv)

	s.log.WithField("conversation_id", conv.ID).Info("Started new conversation")
	return conv, first
}

// HandleMessage advances the question flow with the user's message. When
// the flow completes, the conversation is persisted; a save failure is
// logged and does not undo the completion.
func (s *ConversationService) HandleMessage(id, message string) (flow.Result, error) {
	conv := s.store.Get(id)
	if conv == nil {
		return flow.Result{}, ErrNotFound
	}

	res := flow.Advance(conv, message, s.now())
	if res.Complete {
		if err := s.writer.Save(conv); err != nil {
			s.log.WithError(err).WithField("conversation_id", id).Error("Failed to persist completed conversation")
		}
	}
	return res, nil
}

// SaveManual persists an in-progress conversation on request.
func (s *ConversationService) SaveManual(id string) error {
	conv := s.store.Get(id)
	if conv == nil {
		return ErrNotFound
	}

	if err := s.writer.Save(conv); err != nil {
		s.log.WithError(err).WithField("conversation_id", id).Error("Manual save failed")
		return err
	}
	s.log.WithField("conversation_id", id).Info("Manual save requested")
	return nil
}

// Get returns the live conversation, falling back to the persisted
// snapshot when it is not in memory.
func (s *ConversationService) Get(id string) (*models.Conversation, error) {
	if conv := s.store.Get(id); conv != nil {
		return conv, nil
	}
	conv, err := s.writer.Load(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return conv, nil
}

// ListItem is one row of the conversation listing.
type ListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	Complete  bool   `json:"complete"`
}

// List merges the live conversations with persisted ones not in memory,
// de-duplicated by id with the live record winning, newest first.
func (s *ConversationService) List() []ListItem {
	items := []ListItem{}
	seen := make(map[string]bool)

	for _, conv := range s.store.Snapshot() {
		items = append(items, listItem(conv))
		seen[conv.ID] = true
	}
	for _, conv := range s.writer.List() {
		if seen[conv.ID] {
			continue
		}
		items = append(items, listItem(conv))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
	return items
}

func listItem(conv *models.Conversation) ListItem {
	return ListItem{
		ID:        conv.ID,
		Name:      conv.FirstUserContent(),
		Timestamp: conv.Timestamp,
		Complete:  conv.Complete,
	}
}

// Delete removes the conversation from memory and every persisted file
// matching its id, returning the removed paths.
func (s *ConversationService) Delete(id string) []string {
	s.store.Delete(id)
	return s.writer.Delete(id)
}

// Counts returns how many live conversations are open and how many exist.
func (s *ConversationService) Counts() (active, total int) {
	return s.store.ActiveCount(), s.store.Len()
}

// MarkRealtimeConnected flags the conversation as attached to the
// real-time channel. Not used for business logic.
func (s *ConversationService) MarkRealtimeConnected(id string) bool {
	conv := s.store.Get(id)
	if conv == nil {
		return false
	}
	conv.Connected = true
	conv.RealtimeStart = s.now().Format(time.RFC3339)
	return true
}

// Exists reports whether the conversation is live in memory.
func (s *ConversationService) Exists(id string) bool {
	return s.store.Get(id) != nil
}

// AttachAudio stores a raw audio blob and, when the conversation is live,
// appends an attachment turn referencing the saved file.
func (s *ConversationService) AttachAudio(id string, src io.Reader) (string, error) {
	path, err := s.writer.SaveAudio(id, src)
	if err != nil {
		return "", err
	}
	s.log.WithField("file", path).Info("Audio uploaded and saved")

	if conv := s.store.Get(id); conv != nil {
		conv.AppendTurn(models.Turn{
			Role:      models.RoleUser,
			Content:   "[Adjunto audio] " + path,
			Timestamp: s.now().Format(time.RFC3339),
			Type:      "audio",
			File:      path,
		})
	}
	return path, nil
}
