package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Timestamp layouts used across the backend. DisplayLayout is file-name safe
// and embedded in snapshot names; start times are stored as RFC3339 for
// duration math.
const (
	DisplayLayout = "20060102_150405"
)

// Turn roles.
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// Turn is one recorded utterance in a conversation transcript.
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`

	// Set on assistant turns that correspond to a numbered question.
	QuestionNumber int `json:"question_number,omitempty"`
	TotalQuestions int `json:"total_questions,omitempty"`

	// Set on audio-attachment turns.
	Type string `json:"type,omitempty"`
	File string `json:"file,omitempty"`
}

// Analysis is the structured result expected from the language model:
// a classification, a drafted formal letter, recommended steps and a
// cost estimate.
type Analysis struct {
	Category        string          `json:"category"`
	Subdivision     string          `json:"subdivision"`
	Letter          string          `json:"letter"`
	Recommendations Recommendations `json:"recommendations"`
	EstimatedCost   string          `json:"estimated_cost"`
}

// Recommendations is a string that also accepts a JSON array of strings,
// since models occasionally return the steps as a list despite the
// instruction to use a single field.
type Recommendations string

func (r *Recommendations) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Recommendations(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*r = Recommendations(strings.Join(list, "\n"))
	return nil
}

// Conversation is one end-to-end intake interaction. The in-memory store
// owns the live record; the storage writer serializes it verbatim as the
// JSON snapshot, so the tags here define the on-disk layout.
type Conversation struct {
	ID              string  `json:"id"`
	Timestamp       string  `json:"timestamp"`  // display form, used in file names
	StartTime       string  `json:"start_time"` // RFC3339, used for duration
	CurrentQuestion int     `json:"current_question"`
	Responses       []Turn  `json:"responses"`
	Complete        bool    `json:"complete"`
	Connected       bool    `json:"connected"`
	RealtimeStart   string  `json:"realtime_start,omitempty"`
	Duration        float64 `json:"duration"`

	Analysis    *Analysis `json:"analysis,omitempty"`
	AnalysisRaw string    `json:"analysis_raw,omitempty"`
}

// NewConversation creates a fresh conversation at question zero with an
// empty transcript.
func NewConversation(id string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		Timestamp: now.Format(DisplayLayout),
		StartTime: now.Format(time.RFC3339),
		Responses: []Turn{},
	}
}

// AppendTurn records an utterance at the given time.
func (c *Conversation) AppendTurn(t Turn) {
	c.Responses = append(c.Responses, t)
}

// UserTurns counts the user utterances in the transcript.
func (c *Conversation) UserTurns() int {
	n := 0
	for _, r := range c.Responses {
		if r.Role == RoleUser {
			n++
		}
	}
	return n
}

// FirstUserContent returns the first user utterance, truncated to 120
// characters. Used as a display name for listings; the first answer is
// the person's name in the fixed question flow.
func (c *Conversation) FirstUserContent() string {
	for _, r := range c.Responses {
		if r.Role == RoleUser && r.Content != "" {
			s := strings.TrimSpace(r.Content)
			if runes := []rune(s); len(runes) >= 120 {
				return string(runes[:120])
			}
			return s
		}
	}
	return "Sin nombre"
}

// StartedAt parses the creation time, preferring the RFC3339 start time
// and falling back to the display timestamp. The zero time and false are
// returned when neither parses.
func (c *Conversation) StartedAt() (time.Time, bool) {
	if c.StartTime != "" {
		if t, err := time.Parse(time.RFC3339, c.StartTime); err == nil {
			return t, true
		}
	}
	if c.Timestamp != "" {
		if t, err := time.ParseInLocation(DisplayLayout, c.Timestamp, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
