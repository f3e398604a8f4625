package models

import "time"

// Role identifies who authored a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TimestampLayout is the display format for message timestamps
const TimestampLayout = "03:04 PM"

// Message represents one conversation turn
type Message struct {
	Role      Role
	Content   string
	Timestamp string    // display string, fixed at creation
	CreatedAt time.Time // source of Timestamp
	Followups []string  // only set on retrieval-augmented answers
}

// NewMessage creates a message stamped with the given time
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: at.Format(TimestampLayout),
		CreatedAt: at,
	}
}

// IsUser reports whether the message was written by the user
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant reports whether the message was written by the assistant
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// HasFollowups reports whether the message carries follow-up suggestions
func (m Message) HasFollowups() bool {
	return len(m.Followups) > 0
}

// Clone returns a copy that shares no mutable state with m
func (m Message) Clone() Message {
	if m.Followups != nil {
		m.Followups = append([]string(nil), m.Followups...)
	}
	return m
}
