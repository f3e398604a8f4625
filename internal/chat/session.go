// Package chat drives a conversation against the chat backend. The same
// Session serves the interactive TUI and the one-shot CLI commands.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/diogo/aichat/internal/config"
	"github.com/diogo/aichat/internal/conversation"
	apierrors "github.com/diogo/aichat/internal/errors"
	"github.com/diogo/aichat/internal/models"
	"github.com/diogo/aichat/internal/stream"
)

// Completer is the backend the session talks to
type Completer interface {
	StreamChat(ctx context.Context, req models.ChatRequest) (io.ReadCloser, error)
	ChatWithPDF(ctx context.Context, req models.PDFChatRequest) (*models.PDFAnswer, error)
	UploadPDF(ctx context.Context, path, apiKey string) (*models.UploadResult, error)
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetrievalK sets how many document chunks a PDF question uses
func WithRetrievalK(k int) Option {
	return func(s *Session) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithConversation uses conv instead of a fresh conversation
func WithConversation(conv *conversation.Conversation) Option {
	return func(s *Session) {
		if conv != nil {
			s.conv = conv
		}
	}
}

// WithOnUpdate registers fn to be called after every conversation change.
// fn runs on the goroutine that made the change and must not block.
func WithOnUpdate(fn func()) Option {
	return func(s *Session) {
		s.onUpdate = fn
	}
}

// WithOnText registers fn to receive the accumulated answer text after every
// streamed chunk. Error messages recorded in place of an answer are not
// reported.
func WithOnText(fn func(text string)) Option {
	return func(s *Session) {
		s.onText = fn
	}
}

// Session owns a conversation and allows at most one outbound request at a
// time.
type Session struct {
	client   Completer
	conv     *conversation.Conversation
	logger   *zap.Logger
	k        int
	onUpdate func()
	onText   func(string)

	mu       sync.Mutex
	settings config.Settings
	pending  bool
	cancel   context.CancelFunc
}

// New creates a session using settings for every request
func New(client Completer, settings config.Settings, opts ...Option) *Session {
	s := &Session{
		client:   client,
		logger:   zap.NewNop(),
		k:        models.DefaultRetrievalK,
		settings: settings,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.conv == nil {
		s.conv = conversation.New()
	}
	return s
}

// Conversation returns the session's conversation
func (s *Session) Conversation() *conversation.Conversation {
	return s.conv
}

// Settings returns the settings used for the next request
func (s *Session) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the settings. A request already in flight keeps the
// settings it started with.
func (s *Session) SetSettings(settings config.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Pending reports whether a request is in flight
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Cancel aborts the request in flight, if any
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// acquire checks the send guards and marks the session pending. Nothing is
// changed when it returns an error.
func (s *Session) acquire(ctx context.Context, needInput bool, input string) (context.Context, config.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if needInput && strings.TrimSpace(input) == "" {
		return nil, config.Settings{}, apierrors.ErrEmptyInput
	}
	if s.pending {
		return nil, config.Settings{}, apierrors.ErrBusy
	}
	if !s.settings.HasAPIKey() {
		return nil, config.Settings{}, apierrors.ErrMissingAPIKey
	}

	ctx, cancel := context.WithCancel(ctx)
	s.pending = true
	s.cancel = cancel
	return ctx, s.settings, nil
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.pending = false
}

func (s *Session) notify() {
	if s.onUpdate != nil {
		s.onUpdate()
	}
}

// Send appends input as a user message and streams the answer into a new
// assistant message. Backend failures are recorded in the conversation as an
// error message and also returned.
func (s *Session) Send(ctx context.Context, input string) error {
	ctx, settings, err := s.acquire(ctx, true, input)
	if err != nil {
		return err
	}
	defer s.release()

	prompt := strings.TrimSpace(input)
	s.conv.AppendUser(prompt)
	s.notify()

	turn, err := s.conv.BeginAssistant()
	if err != nil {
		return err
	}
	defer turn.Finish()

	s.logger.Debug("send",
		zap.String("conversation", s.conv.ID()),
		zap.String("model", settings.Model),
	)
	return s.stream(ctx, turn, settings, prompt)
}

// Regenerate streams a new answer to the user message preceding the
// assistant message at index, replacing its content in place.
func (s *Session) Regenerate(ctx context.Context, index int) error {
	ctx, settings, err := s.acquire(ctx, false, "")
	if err != nil {
		return err
	}
	defer s.release()

	turn, prompt, err := s.conv.BeginRegenerate(index)
	if err != nil {
		return err
	}
	defer turn.Finish()

	s.logger.Debug("regenerate",
		zap.String("conversation", s.conv.ID()),
		zap.Int("index", index),
	)
	return s.stream(ctx, turn, settings, prompt)
}

// RegenerateLast regenerates the latest assistant message
func (s *Session) RegenerateLast(ctx context.Context) error {
	index, _, ok := s.conv.LastAssistant()
	if !ok {
		return conversation.ErrNoUserMessage
	}
	return s.Regenerate(ctx, index)
}

func (s *Session) stream(ctx context.Context, turn *conversation.Turn, settings config.Settings, prompt string) error {
	body, err := s.client.StreamChat(ctx, models.ChatRequest{
		DeveloperMessage: settings.SystemPrompt,
		UserMessage:      prompt,
		Model:            settings.Model,
		APIKey:           settings.APIKey,
	})
	if err != nil {
		return s.fail(turn, err)
	}
	defer func() {
		_ = body.Close()
	}()

	final, err := stream.Consume(ctx, body, func(text string) {
		if turn.Set(text) == nil {
			s.notify()
			if s.onText != nil {
				s.onText(text)
			}
		}
	})
	if err != nil {
		if apierrors.IsCancelled(err) && final != "" {
			if completeErr := turn.Complete(final); completeErr != nil {
				return completeErr
			}
			s.notify()
			return err
		}
		return s.fail(turn, err)
	}

	if err := turn.Complete(final); err != nil {
		return err
	}
	s.logger.Debug("response complete",
		zap.String("conversation", s.conv.ID()),
		zap.Int("index", turn.Index()),
		zap.Int("bytes", len(final)),
	)
	s.notify()
	return nil
}

// fail records err as the turn's content
func (s *Session) fail(turn *conversation.Turn, err error) error {
	s.logger.Debug("request failed",
		zap.String("conversation", s.conv.ID()),
		zap.String("endpoint", apierrors.GetEndpoint(err)),
		zap.Int("status", apierrors.GetHTTPStatus(err)),
		zap.Error(err),
	)
	if turnErr := turn.Fail(apierrors.DisplayText(err)); turnErr == nil {
		s.notify()
	}
	return err
}

// AskPDF asks input against the uploaded documents and appends the answer
// with its follow-up suggestions
func (s *Session) AskPDF(ctx context.Context, input string) error {
	ctx, settings, err := s.acquire(ctx, true, input)
	if err != nil {
		return err
	}
	defer s.release()

	prompt := strings.TrimSpace(input)
	s.conv.AppendUser(prompt)
	s.notify()

	answer, err := s.client.ChatWithPDF(ctx, models.PDFChatRequest{
		UserMessage: prompt,
		K:           s.k,
		APIKey:      settings.APIKey,
	})
	if err != nil {
		s.logger.Debug("pdf request failed",
			zap.String("conversation", s.conv.ID()),
			zap.Error(err),
		)
		s.conv.AppendAssistant(apierrors.DisplayText(err))
		s.notify()
		return err
	}

	s.conv.AppendAnswer(answer.Response, answer.Followups)
	s.notify()
	return nil
}

// Clear resets the conversation to the greeting. It fails with ErrBusy while
// a request is in flight.
func (s *Session) Clear() error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return apierrors.ErrBusy
	}
	s.conv.Clear()
	s.mu.Unlock()

	s.notify()
	return nil
}

// Upload indexes a PDF for later questions. The conversation is never
// touched; the outcome is reported as a status line.
func (s *Session) Upload(ctx context.Context, path string) (string, error) {
	settings := s.Settings()
	if !settings.HasAPIKey() {
		return UploadStatus(nil, apierrors.ErrMissingAPIKey), apierrors.ErrMissingAPIKey
	}

	result, err := s.client.UploadPDF(ctx, path, settings.APIKey)
	if err != nil {
		s.logger.Debug("upload failed",
			zap.String("file", filepath.Base(path)),
			zap.Error(err),
		)
	}
	return UploadStatus(result, err), err
}

// UploadStatus formats an upload outcome for display
func UploadStatus(result *models.UploadResult, err error) string {
	if err != nil {
		var uploadErr *apierrors.UploadError
		if errors.As(err, &uploadErr) && uploadErr.Message != "" {
			return "Upload failed: " + uploadErr.Message
		}
		return "Upload failed: " + err.Error()
	}
	if result == nil {
		return "Upload failed: no result"
	}
	return fmt.Sprintf("Uploaded %s (%d chunks indexed)", result.FileName, result.NumChunks)
}
