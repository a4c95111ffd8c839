// Package analysis sends a finished transcript to OpenAI and extracts
// the structured classification and letter from the reply.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/asistente-legal/intake-backend/internal/config"
	"github.com/asistente-legal/intake-backend/internal/models"
)

// ErrNoAPIKey is returned before any network attempt when the OpenAI
// credential is not configured.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY no está configurada en el servidor")

// ErrUpstream wraps a failure of both the primary and the fallback model
// call.
var ErrUpstream = errors.New("error llamando a OpenAI")

// fallbackModel is tried once, with more conservative sampling, when the
// primary model call fails.
const fallbackModel = "gpt-4"

const systemPrompt = "Eres un abogado experto y especializado. Lee la conversación proporcionada y: " +
	"1) Redacta una carta formal exponiendo el caso del cliente explicándolo con el tecnicismo adecuado. " +
	"2) Expón claramente los pasos recomendados para resolver el problema. " +
	"3) Da una estimación aproximada del costo en pesos colombianos (rango). " +
	"4) Clasifica el asunto en UNA de las siguientes categorías: Derecho Público (con subdivisiones), " +
	"Derecho Privado (con subdivisiones), o Derecho Social (con subdivisiones). " +
	"Responde únicamente en JSON con las claves: category, subdivision, letter, recommendations, estimated_cost. " +
	"Usa español formal."

// jsonBlock matches the first embedded JSON object, greedily, anywhere in
// the reply. Models often wrap the object in prose or code fences.
var jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)

// Invoker calls the text-generation service. A nil client means no
// credential was configured.
type Invoker struct {
	client *openai.Client
	model  string
	log    *logrus.Logger
}

func New(cfg config.OpenAIConfig, log *logrus.Logger) *Invoker {
	inv := &Invoker{model: cfg.Model, log: log}
	if cfg.APIKey != "" {
		inv.client = openai.NewClient(cfg.APIKey)
	}
	return inv
}

// NewWithClient builds an invoker around an existing client.
func NewWithClient(client *openai.Client, model string, log *logrus.Logger) *Invoker {
	return &Invoker{client: client, model: model, log: log}
}

// Configured reports whether a credential is available.
func (i *Invoker) Configured() bool {
	return i.client != nil
}

// Analyze builds the transcript prompt, calls the primary model and then
// the fallback, and parses the structured result out of the free-text
// reply. The raw reply is always returned; a nil Analysis with a nil
// error means the model declined structured output, which is a degraded
// result rather than a failure.
func (i *Invoker) Analyze(ctx context.Context, conv *models.Conversation) (*models.Analysis, string, error) {
	if i.client == nil {
		return nil, "", ErrNoAPIKey
	}

	userPrompt := fmt.Sprintf("Conversación:\n%s\nPor favor devuelve el JSON requerido.", transcript(conv))
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	}

	resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       i.model,
		Messages:    messages,
		MaxTokens:   1200,
		Temperature: 0.6,
	})
	if err != nil {
		i.log.WithError(err).Warnf("Fallo llamando a %s, intentando con %s", i.model, fallbackModel)
		resp, err = i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       fallbackModel,
			Messages:    messages,
			MaxTokens:   1200,
			Temperature: 0.3,
		})
		if err != nil {
			return nil, "", fmt.Errorf("%w (intentos a %s y %s fallaron): %v", ErrUpstream, i.model, fallbackModel, err)
		}
	}

	var raw string
	if len(resp.Choices) > 0 {
		raw = resp.Choices[0].Message.Content
	}

	return ParseResult(raw), raw, nil
}

// ParseResult extracts the first JSON object from the reply and decodes
// it. Nil when no well-formed block is present.
func ParseResult(raw string) *models.Analysis {
	block := jsonBlock.FindString(raw)
	if block == "" {
		return nil
	}
	var parsed models.Analysis
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return nil
	}
	return &parsed
}

func transcript(conv *models.Conversation) string {
	var b strings.Builder
	for _, r := range conv.Responses {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(r.Role), r.Content)
	}
	return b.String()
}
