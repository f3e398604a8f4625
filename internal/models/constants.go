// Package models contains data types and constants for the aichat client.
package models

// Backend endpoint paths, relative to the configured base URL
const (
	PathChat        = "/api/chat"
	PathChatWithPDF = "/api/chat_with_pdf"
	PathUploadPDF   = "/api/upload_pdf"
	PathHealth      = "/api/health"
)

const (
	DefaultBaseURL = "http://localhost:8000"

	DefaultModel = "gpt-4.1-mini"

	DefaultSystemPrompt = "You are a helpful AI assistant. Provide clear, accurate, and helpful responses to user questions."

	// Greeting seeds every new or cleared conversation
	Greeting = "Hello! I'm your AI assistant. How can I help you today?"

	// DefaultRetrievalK is the number of document chunks retrieved per PDF question
	DefaultRetrievalK = 4
)

// ModelInfo describes a selectable completion model
type ModelInfo struct {
	ID    string
	Label string
}

// AvailableModels returns the models offered in settings
func AvailableModels() []ModelInfo {
	return []ModelInfo{
		{ID: "gpt-4.1-mini", Label: "GPT-4.1 Mini"},
		{ID: "gpt-4", Label: "GPT-4"},
		{ID: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo"},
	}
}

// IsKnownModel reports whether id is one of AvailableModels
func IsKnownModel(id string) bool {
	for _, m := range AvailableModels() {
		if m.ID == id {
			return true
		}
	}
	return false
}
