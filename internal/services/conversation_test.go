package services

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asistente-legal/intake-backend/internal/flow"
	"github.com/asistente-legal/intake-backend/internal/models"
	"github.com/asistente-legal/intake-backend/internal/storage"
	"github.com/asistente-legal/intake-backend/internal/store"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newService(t *testing.T) (*ConversationService, string) {
	t.Helper()
	dir := t.TempDir()
	return NewConversationService(store.New(), storage.NewWriter(dir, discardLogger()), discardLogger()), dir
}

func TestStart_FreshUniqueConversations(t *testing.T) {
	svc, _ := newService(t)

	a, firstA := svc.Start()
	b, firstB := svc.Start()

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, flow.Questions[0], firstA)
	assert.Equal(t, flow.Questions[0], firstB)
	assert.Equal(t, 0, a.CurrentQuestion)

	active, total := svc.Counts()
	assert.Equal(t, 2, active)
	assert.Equal(t, 2, total)
}

func TestHandleMessage_UnknownConversation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.HandleMessage("missing", "hola")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandleMessage_CompletionPersists(t *testing.T) {
	svc, dir := newService(t)
	conv, _ := svc.Start()

	for _, answer := range []string{"Juan Pérez", "1020304050", "Bogotá"} {
		_, err := svc.HandleMessage(conv.ID, answer)
		require.NoError(t, err)
	}

	res, err := svc.HandleMessage(conv.ID, "no")
	require.NoError(t, err)
	require.True(t, res.Complete)

	matches, _ := filepath.Glob(filepath.Join(dir, "conversacion_"+conv.ID+"_*.json"))
	assert.Len(t, matches, 1)

	// The live record is kept after completion.
	got, err := svc.Get(conv.ID)
	require.NoError(t, err)
	assert.True(t, got.Complete)
}

func TestList_DeduplicatesPreferringMemory(t *testing.T) {
	svc, _ := newService(t)
	conv, _ := svc.Start()
	_, err := svc.HandleMessage(conv.ID, "María López")
	require.NoError(t, err)
	require.NoError(t, svc.SaveManual(conv.ID))

	// Mutate the live record after the snapshot was written; the disk
	// copy stays stale until the next save.
	conv.Complete = true

	items := svc.List()
	require.Len(t, items, 1)
	assert.Equal(t, conv.ID, items[0].ID)
	assert.Equal(t, "María López", items[0].Name)
	assert.True(t, items[0].Complete, "listing must reflect the in-memory record")
}

func TestList_IncludesDiskOnlyConversations(t *testing.T) {
	dir := t.TempDir()
	writer := storage.NewWriter(dir, discardLogger())

	first := NewConversationService(store.New(), writer, discardLogger())
	conv, _ := first.Start()
	_, err := first.HandleMessage(conv.ID, "Carlos Ruiz")
	require.NoError(t, err)
	require.NoError(t, first.SaveManual(conv.ID))

	// A fresh process over the same directory sees the persisted entry.
	second := NewConversationService(store.New(), writer, discardLogger())
	items := second.List()
	require.Len(t, items, 1)
	assert.Equal(t, conv.ID, items[0].ID)
	assert.Equal(t, "Carlos Ruiz", items[0].Name)

	loaded, err := second.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, loaded.ID)
	require.NotEmpty(t, loaded.Responses)
}

func TestList_SortedNewestFirst(t *testing.T) {
	svc, _ := newService(t)
	a, _ := svc.Start()
	b, _ := svc.Start()
	a.Timestamp = "20250101_000000"
	b.Timestamp = "20250202_000000"

	items := svc.List()
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)
}

func TestDelete_RemovesMemoryAndFiles(t *testing.T) {
	svc, dir := newService(t)
	conv, _ := svc.Start()
	require.NoError(t, svc.SaveManual(conv.ID))

	removed := svc.Delete(conv.ID)
	assert.Len(t, removed, 2)

	assert.Empty(t, svc.List())
	_, err := svc.Get(conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	matches, _ := filepath.Glob(filepath.Join(dir, "conversacion_"+conv.ID+"_*"))
	assert.Empty(t, matches)
}

func TestAttachAudio_AppendsTurnForLiveConversation(t *testing.T) {
	svc, _ := newService(t)
	conv, _ := svc.Start()

	path, err := svc.AttachAudio(conv.ID, strings.NewReader("audio-bytes"))
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	last := conv.Responses[len(conv.Responses)-1]
	assert.Equal(t, models.RoleUser, last.Role)
	assert.Equal(t, "audio", last.Type)
	assert.Equal(t, path, last.File)
	assert.Contains(t, last.Content, "[Adjunto audio]")
}

func TestAttachAudio_UnknownConversationStillStoresBlob(t *testing.T) {
	svc, dir := newService(t)

	path, err := svc.AttachAudio("ghost", strings.NewReader("audio-bytes"))
	require.NoError(t, err)

	matches, _ := filepath.Glob(filepath.Join(dir, "audio_ghost_*.webm"))
	require.Len(t, matches, 1)
	assert.Equal(t, matches[0], path)
}
