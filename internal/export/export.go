// Package export renders the drafted letter as downloadable documents.
package export

import (
	"fmt"
	"io"
	"strings"

	docx "github.com/fumiama/go-docx"

	"github.com/asistente-legal/intake-backend/internal/models"
)

// Placeholder is served when a conversation has no analysis at all.
const Placeholder = "No hay carta disponible."

// Letter selects the text to export: the drafted letter, the raw model
// output when parsing failed, or the placeholder.
func Letter(conv *models.Conversation) string {
	if conv.Analysis != nil && conv.Analysis.Letter != "" {
		return conv.Analysis.Letter
	}
	if conv.AnalysisRaw != "" {
		return conv.AnalysisRaw
	}
	return Placeholder
}

// WriteDocx renders the letter as a word-processor document: a fixed
// heading, the conversation id, then one paragraph per line with line
// breaks preserved.
func WriteDocx(w io.Writer, conversationID, letter string) error {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText("Carta formal - Asistente Legal").Size("32").Bold()
	doc.AddParagraph().AddText(fmt.Sprintf("ID conversación: %s", conversationID))
	doc.AddParagraph()

	for _, line := range strings.Split(letter, "\n") {
		p := doc.AddParagraph()
		if line != "" {
			p.AddText(line)
		}
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("rendering docx: %w", err)
	}
	return nil
}
