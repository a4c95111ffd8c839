package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asistente-legal/intake-backend/internal/analysis"
	"github.com/asistente-legal/intake-backend/internal/models"
	"github.com/asistente-legal/intake-backend/internal/storage"
	"github.com/asistente-legal/intake-backend/internal/store"
)

const structuredReply = `{"id":"chatcmpl-test","object":"chat.completion","model":"gpt-4",` +
	`"choices":[{"index":0,"message":{"role":"assistant","content":` +
	`"{\"category\":\"Derecho Social\",\"subdivision\":\"Laboral\",\"letter\":\"Estimados señores\",\"recommendations\":\"Demandar\",\"estimated_cost\":\"2.000.000 COP\"}"},` +
	`"finish_reason":"stop"}]}`

func stubInvoker(t *testing.T, body string) *analysis.Invoker {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return analysis.NewWithClient(openai.NewClientWithConfig(cfg), "gpt-4-1106-preview", discardLogger())
}

func TestAnalyze_UnknownConversation(t *testing.T) {
	st := store.New()
	writer := storage.NewWriter(t.TempDir(), discardLogger())
	svc := NewAnalysisService(st, writer, stubInvoker(t, structuredReply), discardLogger())

	_, _, err := svc.Analyze(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnalyze_MergesResultAndPersists(t *testing.T) {
	st := store.New()
	writer := storage.NewWriter(t.TempDir(), discardLogger())
	svc := NewAnalysisService(st, writer, stubInvoker(t, structuredReply), discardLogger())

	conv := models.NewConversation("conv-9", time.Now())
	conv.AppendTurn(models.Turn{Role: models.RoleUser, Content: "Me despidieron sin justa causa"})
	st.Put(conv)

	parsed, raw, err := svc.Analyze(context.Background(), "conv-9")
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, "Derecho Social", parsed.Category)
	assert.NotEmpty(t, raw)

	assert.Equal(t, parsed, conv.Analysis)
	assert.Equal(t, raw, conv.AnalysisRaw)

	saved, err := writer.Load("conv-9")
	require.NoError(t, err)
	require.NotNil(t, saved.Analysis)
	assert.Equal(t, "Derecho Social", saved.Analysis.Category)
}

func TestAnalyze_DiskOnlyConversationRejoinsStore(t *testing.T) {
	st := store.New()
	writer := storage.NewWriter(t.TempDir(), discardLogger())
	svc := NewAnalysisService(st, writer, stubInvoker(t, structuredReply), discardLogger())

	conv := models.NewConversation("conv-disk", time.Now())
	conv.AppendTurn(models.Turn{Role: models.RoleUser, Content: "Un contrato incumplido"})
	require.NoError(t, writer.Save(conv))

	_, _, err := svc.Analyze(context.Background(), "conv-disk")
	require.NoError(t, err)

	live := st.Get("conv-disk")
	require.NotNil(t, live)
	assert.NotNil(t, live.Analysis)
}
