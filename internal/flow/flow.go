// Package flow implements the fixed question sequence of the intake
// assistant: a linear state machine over the conversation's question
// index, with an open-ended follow-up loop after the last question.
package flow

import (
	"strings"
	"time"

	"github.com/asistente-legal/intake-backend/internal/models"
)

// Questions is the fixed intake sequence.
var Questions = []string{
	"Hola, ¿cuál es tu nombre completo?",
	"¿Cuál es tu número de cédula?",
	"¿Cuál es tu dirección y ciudad?",
	"Cuéntame tu historial legal.",
}

// FollowUp is asked after the last question until the user signals they
// are done.
const FollowUp = "¿Hay algo más que quieras agregar?"

// CompletionMessage closes the conversation.
const CompletionMessage = "Perfecto. He guardado la conversación."

// closingFallback is used if the question index ever lands out of range.
const closingFallback = "Gracias por proporcionar la información."

// negations are the phrases that end the follow-up loop.
var negations = []string{"no", "nada", "nada más", "no hay", "no quiero", "no gracias"}

// Progress reports how far along the question sequence a conversation is.
type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Summary describes a completed conversation.
type Summary struct {
	ID                string  `json:"id"`
	Timestamp         string  `json:"timestamp"`
	Duration          float64 `json:"duration"`
	QuestionsAnswered int     `json:"questions_answered"`
}

// Result is the state machine's decision for one user message.
type Result struct {
	Message  string
	Complete bool
	Progress *Progress
	Summary  *Summary
}

// Start appends the first question to a fresh conversation and returns it.
func Start(conv *models.Conversation, now time.Time) string {
	first := Questions[0]
	conv.AppendTurn(models.Turn{
		Role:      models.RoleAssistant,
		Content:   first,
		Timestamp: now.Format(time.RFC3339),
	})
	return first
}

// IsNegation reports whether the message, case-folded and trimmed,
// contains one of the fixed closing phrases.
func IsNegation(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	for _, neg := range negations {
		if strings.Contains(normalized, neg) {
			return true
		}
	}
	return false
}

// Advance records the user's message and decides the next action: the
// next question with progress metadata, the follow-up prompt at the last
// question, or completion when the user signals they are done. The index
// never decreases and never passes the last question; the follow-up loop
// has no cap other than the user answering "no".
func Advance(conv *models.Conversation, message string, now time.Time) Result {
	total := len(Questions)

	if message != "" {
		conv.AppendTurn(models.Turn{
			Role:      models.RoleUser,
			Content:   message,
			Timestamp: now.Format(time.RFC3339),
		})
	}

	if conv.CurrentQuestion == total-1 {
		if IsNegation(message) {
			if !conv.Complete {
				conv.Complete = true
				conv.Duration = 0
				if start, ok := conv.StartedAt(); ok {
					conv.Duration = now.Sub(start).Seconds()
				}
			}
			return Result{
				Message:  CompletionMessage,
				Complete: true,
				Summary: &Summary{
					ID:                conv.ID,
					Timestamp:         conv.Timestamp,
					Duration:          conv.Duration,
					QuestionsAnswered: conv.UserTurns(),
				},
			}
		}

		conv.AppendTurn(models.Turn{
			Role:      models.RoleAssistant,
			Content:   FollowUp,
			Timestamp: now.Format(time.RFC3339),
		})
		return Result{
			Message:  FollowUp,
			Progress: progressAt(conv.CurrentQuestion, total),
		}
	}

	if conv.CurrentQuestion < total-1 {
		conv.CurrentQuestion++
	}

	next := closingFallback
	if conv.CurrentQuestion < total {
		next = Questions[conv.CurrentQuestion]
	}
	conv.AppendTurn(models.Turn{
		Role:           models.RoleAssistant,
		Content:        next,
		Timestamp:      now.Format(time.RFC3339),
		QuestionNumber: conv.CurrentQuestion + 1,
		TotalQuestions: total,
	})
	return Result{
		Message:  next,
		Progress: progressAt(conv.CurrentQuestion, total),
	}
}

func progressAt(index, total int) *Progress {
	current := index + 1
	return &Progress{
		Current:    current,
		Total:      total,
		Percentage: current * 100 / total,
	}
}
