// Package conversation holds the ordered message history of a chat session.
package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diogo/aichat/internal/models"
)

var (
	// ErrNoUserMessage is returned when a regenerate target has no user
	// message before it.
	ErrNoUserMessage = errors.New("no user message precedes this answer")
	// ErrNotAssistant is returned when a regenerate target is not an answer.
	ErrNotAssistant = errors.New("message is not an assistant answer")
	// ErrOutOfRange is returned for an invalid message index.
	ErrOutOfRange = errors.New("message index out of range")
	// ErrTurnInProgress is returned when a turn is already active.
	ErrTurnInProgress = errors.New("an assistant turn is already in progress")
	// ErrStaleTurn is returned when writing through a finished turn or one
	// that was invalidated by Clear.
	ErrStaleTurn = errors.New("assistant turn is no longer active")
)

// Option configures a Conversation
type Option func(*Conversation)

// WithClock overrides the time source used for message timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) {
		if now != nil {
			c.now = now
		}
	}
}

// WithGreeting overrides the seeded assistant greeting
func WithGreeting(text string) Option {
	return func(c *Conversation) {
		c.greeting = text
	}
}

// Conversation is an ordered, append-only list of messages with at most one
// assistant message open for writing. It is safe for concurrent use.
type Conversation struct {
	mu         sync.RWMutex
	id         string
	messages   []models.Message
	generation uint64
	active     *Turn
	now        func() time.Time
	greeting   string
}

// New creates a conversation seeded with the greeting
func New(opts ...Option) *Conversation {
	c := &Conversation{
		now:      time.Now,
		greeting: models.Greeting,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reset()
	return c
}

// reset must be called with mu held (or before c is shared).
func (c *Conversation) reset() {
	c.id = uuid.NewString()
	c.generation++
	c.active = nil
	c.messages = []models.Message{
		models.NewMessage(models.RoleAssistant, c.greeting, c.now()),
	}
}

// ID returns the conversation identifier. It changes on Clear.
func (c *Conversation) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Len returns the number of messages
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Messages returns a deep copy of the messages in display order
func (c *Conversation) Messages() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// At returns a copy of the message at index i
func (c *Conversation) At(i int) (models.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i < 0 || i >= len(c.messages) {
		return models.Message{}, false
	}
	return c.messages[i].Clone(), true
}

// LastAssistant returns the index and a copy of the latest assistant message
func (c *Conversation) LastAssistant() (int, models.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].IsAssistant() {
			return i, c.messages[i].Clone(), true
		}
	}
	return -1, models.Message{}, false
}

// Active reports whether an assistant turn is open
func (c *Conversation) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active != nil
}

// AppendUser appends a user message
func (c *Conversation) AppendUser(text string) models.Message {
	return c.appendMessage(models.RoleUser, text, nil)
}

// AppendAssistant appends a complete assistant message
func (c *Conversation) AppendAssistant(text string) models.Message {
	return c.appendMessage(models.RoleAssistant, text, nil)
}

// AppendAnswer appends an assistant message with its follow-up suggestions
func (c *Conversation) AppendAnswer(text string, followups []string) models.Message {
	return c.appendMessage(models.RoleAssistant, text, followups)
}

func (c *Conversation) appendMessage(role models.Role, text string, followups []string) models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := models.NewMessage(role, text, c.now())
	if len(followups) > 0 {
		msg.Followups = append([]string(nil), followups...)
	}
	c.messages = append(c.messages, msg)
	return msg.Clone()
}

// Clear discards all messages and reseeds the greeting. Any open turn
// becomes stale.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// BeginAssistant opens a new assistant turn. The message itself is appended
// on the first write, with the timestamp taken at that moment.
func (c *Conversation) BeginAssistant() (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, ErrTurnInProgress
	}
	t := &Turn{c: c, generation: c.generation, index: -1}
	c.active = t
	return t, nil
}

// BeginRegenerate opens a turn that rewrites the assistant message at index
// in place. It returns the nearest preceding user message as the prompt.
// On error the conversation is unchanged.
func (c *Conversation) BeginRegenerate(index int) (*Turn, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, "", ErrTurnInProgress
	}
	if index < 0 || index >= len(c.messages) {
		return nil, "", ErrOutOfRange
	}
	if !c.messages[index].IsAssistant() {
		return nil, "", ErrNotAssistant
	}

	prompt, found := "", false
	for i := index - 1; i >= 0; i-- {
		if c.messages[i].IsUser() {
			prompt, found = c.messages[i].Content, true
			break
		}
	}
	if !found {
		return nil, "", ErrNoUserMessage
	}

	t := &Turn{c: c, generation: c.generation, index: index, regenerate: true}
	c.active = t
	return t, prompt, nil
}

// Turn is a write handle on the single assistant message being produced.
type Turn struct {
	c          *Conversation
	generation uint64
	index      int
	regenerate bool
	written    bool
	done       bool
}

// Index returns the message position, or -1 if nothing was written yet
func (t *Turn) Index() int {
	t.c.mu.RLock()
	defer t.c.mu.RUnlock()
	return t.index
}

// Set replaces the turn's content with text
func (t *Turn) Set(text string) error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.write(text)
}

// Fail replaces the content with an error text and closes the turn
func (t *Turn) Fail(text string) error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()

	if err := t.write(text); err != nil {
		return err
	}
	t.close()
	return nil
}

// Complete writes the final text and closes the turn. A new turn that never
// received any text and completes empty leaves the conversation unchanged.
func (t *Turn) Complete(text string) error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()

	if t.stale() {
		return ErrStaleTurn
	}
	if t.index >= 0 || text != "" {
		if err := t.write(text); err != nil {
			return err
		}
	}
	t.close()
	return nil
}

// Finish closes the turn without writing. It is safe to call more than once.
func (t *Turn) Finish() {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.close()
}

func (t *Turn) stale() bool {
	return t.done || t.generation != t.c.generation
}

func (t *Turn) write(text string) error {
	if t.stale() {
		return ErrStaleTurn
	}

	c := t.c
	if t.index < 0 {
		c.messages = append(c.messages, models.NewMessage(models.RoleAssistant, text, c.now()))
		t.index = len(c.messages) - 1
		t.written = true
		return nil
	}

	msg := &c.messages[t.index]
	msg.Content = text
	if t.regenerate && !t.written {
		msg.Followups = nil
	}
	t.written = true
	return nil
}

func (t *Turn) close() {
	if t.done {
		return
	}
	t.done = true
	if t.c.active == t {
		t.c.active = nil
	}
}
