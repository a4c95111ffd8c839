package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asistente-legal/intake-backend/internal/models"
)

func newWriter(t *testing.T) *Writer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewWriter(t.TempDir(), log)
}

func sampleConversation() *models.Conversation {
	conv := models.NewConversation("abc-123", time.Date(2025, 3, 14, 9, 30, 0, 0, time.Local))
	conv.AppendTurn(models.Turn{Role: models.RoleAssistant, Content: "Hola, ¿cuál es tu nombre completo?", Timestamp: conv.StartTime})
	conv.AppendTurn(models.Turn{Role: models.RoleUser, Content: "Juan Pérez", Timestamp: conv.StartTime})
	return conv
}

func TestSave_WritesFilePair(t *testing.T) {
	w := newWriter(t)
	conv := sampleConversation()

	require.NoError(t, w.Save(conv))

	base := filepath.Join(w.Dir(), "conversacion_abc-123_20250314_093000")
	_, err := os.Stat(base + ".json")
	assert.NoError(t, err)

	txt, err := os.ReadFile(base + ".txt")
	require.NoError(t, err)
	content := string(txt)
	assert.Contains(t, content, "CONVERSACIÓN LEGAL - ")
	assert.Contains(t, content, "ID: abc-123")
	assert.Contains(t, content, "Estado: Guardada manualmente")
	assert.Contains(t, content, "Duración: 0 segundos")
	assert.Contains(t, content, "Assistant: Hola, ¿cuál es tu nombre completo?")
	assert.Contains(t, content, "User: Juan Pérez")
	assert.Contains(t, content, strings.Repeat("-", 50))
}

func TestSave_OverwritesOnResave(t *testing.T) {
	w := newWriter(t)
	conv := sampleConversation()

	require.NoError(t, w.Save(conv))

	conv.Complete = true
	conv.Duration = 42
	require.NoError(t, w.Save(conv))

	matches, err := filepath.Glob(filepath.Join(w.Dir(), "conversacion_abc-123_*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	loaded, err := w.Load("abc-123")
	require.NoError(t, err)
	assert.True(t, loaded.Complete)
	assert.Equal(t, float64(42), loaded.Duration)

	txt, err := os.ReadFile(strings.TrimSuffix(matches[0], ".json") + ".txt")
	require.NoError(t, err)
	assert.Contains(t, string(txt), "Estado: Completada")
	assert.Contains(t, string(txt), "Duración: 42 segundos")
}

func TestLoad_RoundTrip(t *testing.T) {
	w := newWriter(t)
	conv := sampleConversation()
	conv.Analysis = &models.Analysis{
		Category:        "Derecho Privado",
		Subdivision:     "Civil",
		Letter:          "Estimados señores...",
		Recommendations: "Contratar un abogado",
		EstimatedCost:   "1.000.000 - 3.000.000 COP",
	}
	require.NoError(t, w.Save(conv))

	loaded, err := w.Load("abc-123")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, loaded.ID)
	assert.Equal(t, conv.Timestamp, loaded.Timestamp)
	require.Len(t, loaded.Responses, 2)
	require.NotNil(t, loaded.Analysis)
	assert.Equal(t, "Derecho Privado", loaded.Analysis.Category)
}

func TestLoad_Missing(t *testing.T) {
	w := newWriter(t)
	_, err := w.Load("nope")
	assert.Error(t, err)
}

func TestList_SkipsUnreadableSnapshots(t *testing.T) {
	w := newWriter(t)
	require.NoError(t, w.Save(sampleConversation()))

	bad := filepath.Join(w.Dir(), "conversacion_bad_20250101_000000.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))

	out := w.List()
	require.Len(t, out, 1)
	assert.Equal(t, "abc-123", out[0].ID)
}

func TestDelete_RemovesMatchingFiles(t *testing.T) {
	w := newWriter(t)
	require.NoError(t, w.Save(sampleConversation()))

	other := models.NewConversation("other-1", time.Now())
	require.NoError(t, w.Save(other))

	removed := w.Delete("abc-123")
	assert.Len(t, removed, 2)

	matches, _ := filepath.Glob(filepath.Join(w.Dir(), "conversacion_abc-123_*"))
	assert.Empty(t, matches)

	// The other conversation is untouched.
	matches, _ = filepath.Glob(filepath.Join(w.Dir(), "conversacion_other-1_*"))
	assert.Len(t, matches, 2)
}

func TestSaveAudio(t *testing.T) {
	w := newWriter(t)

	path, err := w.SaveAudio("abc-123", strings.NewReader("fake-webm-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "audio_abc-123_"))
	assert.True(t, strings.HasSuffix(path, ".webm"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fake-webm-bytes", string(data))
}
