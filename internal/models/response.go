package models

// ChatRequest is the body of a streaming completion request
type ChatRequest struct {
	DeveloperMessage string `json:"developer_message"`
	UserMessage      string `json:"user_message"`
	Model            string `json:"model,omitempty"`
	APIKey           string `json:"api_key"`
}

// PDFChatRequest is the body of a retrieval-augmented completion request
type PDFChatRequest struct {
	UserMessage string `json:"user_message"`
	K           int    `json:"k"`
	APIKey      string `json:"api_key"`
}

// PDFAnswer is a structured retrieval-augmented answer
type PDFAnswer struct {
	Response  string
	Followups []string
}

// UploadResult describes an indexed document
type UploadResult struct {
	FileName  string
	Status    string
	NumChunks int
}
