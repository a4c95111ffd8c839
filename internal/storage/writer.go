// Package storage persists conversation snapshots as paired files: a JSON
// record and a human-readable plain-text rendering, both named from the
// conversation id and its creation timestamp.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/asistente-legal/intake-backend/internal/models"
)

// Writer serializes conversations under a fixed directory. File names are
// deterministic from id+timestamp, so re-saving overwrites the pair.
type Writer struct {
	dir string
	log *logrus.Logger
}

func NewWriter(dir string, log *logrus.Logger) *Writer {
	return &Writer{dir: dir, log: log}
}

// Dir returns the persistence directory.
func (w *Writer) Dir() string {
	return w.dir
}

func (w *Writer) basePath(conv *models.Conversation) string {
	return filepath.Join(w.dir, fmt.Sprintf("conversacion_%s_%s", conv.ID, conv.Timestamp))
}

// Save writes the JSON snapshot and the plain-text rendering. The two
// writes are sequential without an atomic rename; a crash in between
// leaves a partial pair, which is accepted.
func (w *Writer) Save(conv *models.Conversation) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", w.dir, err)
	}

	base := w.basePath(conv)

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", conv.ID, err)
	}
	if err := os.WriteFile(base+".json", data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot for %s: %w", conv.ID, err)
	}

	if err := os.WriteFile(base+".txt", []byte(renderText(conv)), 0o644); err != nil {
		return fmt.Errorf("writing transcript for %s: %w", conv.ID, err)
	}

	w.log.WithField("file", base).Info("Conversation saved")
	return nil
}

func renderText(conv *models.Conversation) string {
	var b strings.Builder

	headerTime := conv.StartTime
	if headerTime == "" {
		headerTime = conv.Timestamp
	}
	fmt.Fprintf(&b, "CONVERSACIÓN LEGAL - %s\n", headerTime)
	fmt.Fprintf(&b, "ID: %s\n", conv.ID)
	status := "Guardada manualmente"
	if conv.Complete {
		status = "Completada"
	}
	fmt.Fprintf(&b, "Estado: %s\n", status)
	fmt.Fprintf(&b, "Duración: %.0f segundos\n", conv.Duration)
	b.WriteString(strings.Repeat("-", 50) + "\n\n")

	for _, r := range conv.Responses {
		fmt.Fprintf(&b, "%s: %s\n", capitalize(r.Role), r.Content)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Load reads the first snapshot matching the id.
func (w *Writer) Load(id string) (*models.Conversation, error) {
	matches, err := filepath.Glob(filepath.Join(w.dir, fmt.Sprintf("conversacion_%s_*.json", id)))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, os.ErrNotExist
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, err
	}
	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", matches[0], err)
	}
	return &conv, nil
}

// List decodes every snapshot in the directory, skipping unreadable files.
func (w *Writer) List() []*models.Conversation {
	matches, err := filepath.Glob(filepath.Join(w.dir, "conversacion_*.json"))
	if err != nil {
		return nil
	}

	var out []*models.Conversation
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var conv models.Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			w.log.WithField("file", path).Warn("Skipping unreadable snapshot")
			continue
		}
		out = append(out, &conv)
	}
	return out
}

// Delete removes every persisted file matching the id and returns the
// removed paths. Files that cannot be removed are logged and skipped.
func (w *Writer) Delete(id string) []string {
	removed := []string{}
	for _, ext := range []string{"json", "txt"} {
		pattern := filepath.Join(w.dir, fmt.Sprintf("conversacion_%s_*.%s", id, ext))
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil {
				w.log.WithField("file", path).Warn("Could not remove file")
				continue
			}
			removed = append(removed, path)
		}
	}
	return removed
}

// SaveAudio stores a raw audio blob for the conversation and returns the
// written path.
func (w *Writer) SaveAudio(id string, src io.Reader) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", w.dir, err)
	}

	name := fmt.Sprintf("audio_%s_%s_%s.webm",
		id,
		time.Now().Format(models.DisplayLayout),
		strings.ReplaceAll(uuid.NewString(), "-", ""))
	path := filepath.Join(w.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}
