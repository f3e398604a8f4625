// Package history exports conversation transcripts.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diogo/aichat/internal/models"
)

// ExportFormat represents the format for exporting conversations
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// FormatForPath picks the export format from a file extension.
// Anything other than .json is written as Markdown.
func FormatForPath(path string) ExportFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ExportFormatJSON
	}
	return ExportFormatMarkdown
}

// Transcript is a point-in-time copy of a conversation
type Transcript struct {
	ID         string
	Model      string
	ExportedAt time.Time
	Messages   []models.Message
}

// ToMarkdown renders the transcript as a Markdown document
func (t Transcript) ToMarkdown() string {
	var sb strings.Builder

	sb.WriteString("# Chat transcript\n\n")
	if t.Model != "" {
		sb.WriteString("**Model:** ")
		sb.WriteString(t.Model)
		sb.WriteString("\n")
	}
	sb.WriteString("**Exported:** ")
	sb.WriteString(t.ExportedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("**Messages:** %d\n\n---\n\n", len(t.Messages)))

	for i, msg := range t.Messages {
		role := "User"
		if msg.IsAssistant() {
			role = "Assistant"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		if msg.Timestamp != "" {
			sb.WriteString(" (")
			sb.WriteString(msg.Timestamp)
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")

		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		if msg.HasFollowups() {
			sb.WriteString("\n**Follow-up questions:**\n\n")
			for n, f := range msg.Followups {
				sb.WriteString(fmt.Sprintf("%d. %s\n", n+1, f))
			}
		}

		if i < len(t.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

type exportMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
	Followups []string  `json:"followups,omitempty"`
}

type exportTranscript struct {
	ID         string          `json:"id"`
	Model      string          `json:"model,omitempty"`
	ExportedAt time.Time       `json:"exported_at"`
	Messages   []exportMessage `json:"messages"`
}

// ToJSON renders the transcript as indented JSON
func (t Transcript) ToJSON() ([]byte, error) {
	export := exportTranscript{
		ID:         t.ID,
		Model:      t.Model,
		ExportedAt: t.ExportedAt,
		Messages:   make([]exportMessage, len(t.Messages)),
	}
	for i, msg := range t.Messages {
		export.Messages[i] = exportMessage{
			Role:      string(msg.Role),
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
			CreatedAt: msg.CreatedAt,
			Followups: msg.Followups,
		}
	}
	return json.MarshalIndent(export, "", "  ")
}

// Export renders the transcript in the given format
func (t Transcript) Export(format ExportFormat) ([]byte, error) {
	switch format {
	case ExportFormatJSON:
		return t.ToJSON()
	case ExportFormatMarkdown:
		return []byte(t.ToMarkdown()), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteFile exports the transcript to path, choosing the format from the
// extension
func (t Transcript) WriteFile(path string) error {
	data, err := t.Export(FormatForPath(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
