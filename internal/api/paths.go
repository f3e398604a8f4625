// Package api provides the chat backend client.
package api

// GJSON paths for fields of the backend's structured responses.
const (
	// Retrieval-augmented answer
	PathResponse  = "response"
	PathFollowups = "followups"

	// Upload result
	PathStatus    = "status"
	PathNumChunks = "num_chunks"

	// Error payloads. FastAPI reports validation failures under "detail".
	PathError  = "error"
	PathDetail = "detail"
)

// maxDecodeDepth bounds how many layers of JSON-in-a-string are unwrapped
const maxDecodeDepth = 3
