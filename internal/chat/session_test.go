package chat

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/diogo/aichat/internal/config"
	"github.com/diogo/aichat/internal/conversation"
	apierrors "github.com/diogo/aichat/internal/errors"
	"github.com/diogo/aichat/internal/models"
)

// scriptedBody yields chunks one per Read, then optionally blocks on gate
// until released or the request context is cancelled
type scriptedBody struct {
	ctx     context.Context
	chunks  [][]byte
	gate    <-chan struct{}
	waiting func()
	err     error
	closed  atomic.Bool
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	if len(b.chunks) > 0 {
		n := copy(p, b.chunks[0])
		b.chunks = b.chunks[1:]
		return n, nil
	}
	if b.gate != nil {
		if b.waiting != nil {
			b.waiting()
		}
		select {
		case <-b.ctx.Done():
			return 0, b.ctx.Err()
		case <-b.gate:
		}
	}
	if b.err != nil {
		return 0, b.err
	}
	return 0, io.EOF
}

func (b *scriptedBody) Close() error {
	b.closed.Store(true)
	return nil
}

// mockCompleter is a hand-written Completer that records calls
type mockCompleter struct {
	chunks    []string
	streamErr error
	readErr   error
	gate      chan struct{}
	waiting   chan struct{}
	waitOnce  sync.Once

	answer *models.PDFAnswer
	pdfErr error

	upload    *models.UploadResult
	uploadErr error

	mu          sync.Mutex
	chatCalls   []models.ChatRequest
	pdfCalls    []models.PDFChatRequest
	uploadCalls []string
	bodies      []*scriptedBody
}

func (m *mockCompleter) StreamChat(ctx context.Context, req models.ChatRequest) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatCalls = append(m.chatCalls, req)

	if m.streamErr != nil {
		return nil, m.streamErr
	}

	chunks := make([][]byte, len(m.chunks))
	for i, c := range m.chunks {
		chunks[i] = []byte(c)
	}
	body := &scriptedBody{ctx: ctx, chunks: chunks, err: m.readErr}
	if m.gate != nil {
		body.gate = m.gate
		body.waiting = func() {
			m.waitOnce.Do(func() { close(m.waiting) })
		}
	}
	m.bodies = append(m.bodies, body)
	return body, nil
}

func (m *mockCompleter) ChatWithPDF(ctx context.Context, req models.PDFChatRequest) (*models.PDFAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdfCalls = append(m.pdfCalls, req)
	return m.answer, m.pdfErr
}

func (m *mockCompleter) UploadPDF(ctx context.Context, path, apiKey string) (*models.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadCalls = append(m.uploadCalls, path)
	return m.upload, m.uploadErr
}

func (m *mockCompleter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chatCalls) + len(m.pdfCalls)
}

func newBlockingCompleter(chunks ...string) *mockCompleter {
	return &mockCompleter{
		chunks:  chunks,
		gate:    make(chan struct{}),
		waiting: make(chan struct{}),
	}
}

func testSettings() config.Settings {
	return config.Settings{APIKey: "sk-test", Model: "gpt-4.1-mini", SystemPrompt: "Be helpful."}
}

func newTestSession(m *mockCompleter, opts ...Option) *Session {
	opts = append([]Option{WithConversation(conversation.New(conversation.WithGreeting("Hi")))}, opts...)
	return New(m, testSettings(), opts...)
}

type roleContent struct {
	Role    models.Role
	Content string
}

func snapshot(s *Session) []roleContent {
	msgs := s.Conversation().Messages()
	out := make([]roleContent, len(msgs))
	for i, m := range msgs {
		out[i] = roleContent{m.Role, m.Content}
	}
	return out
}

func TestSend_StreamsIntoNewAnswer(t *testing.T) {
	mock := &mockCompleter{chunks: []string{"4", "", " exactly"}}
	var updates atomic.Int32
	s := newTestSession(mock, WithOnUpdate(func() { updates.Add(1) }))

	if err := s.Send(context.Background(), "2+2?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := []roleContent{
		{models.RoleAssistant, "Hi"},
		{models.RoleUser, "2+2?"},
		{models.RoleAssistant, "4 exactly"},
	}
	if got := snapshot(s); !reflect.DeepEqual(got, want) {
		t.Errorf("conversation = %v, want %v", got, want)
	}

	req := mock.chatCalls[0]
	if req.DeveloperMessage != "Be helpful." || req.UserMessage != "2+2?" || req.Model != "gpt-4.1-mini" || req.APIKey != "sk-test" {
		t.Errorf("request = %+v", req)
	}
	if !mock.bodies[0].closed.Load() {
		t.Error("response body should be closed")
	}
	if updates.Load() == 0 {
		t.Error("OnUpdate was never called")
	}
	if s.Pending() || s.Conversation().Active() {
		t.Error("session should be idle after Send")
	}
}

func TestSend_MultiByteChunks(t *testing.T) {
	text := "Olá, 世界 😀"
	data := []byte(text)
	var chunks []string
	for i := range data {
		chunks = append(chunks, string(data[i:i+1]))
	}

	s := newTestSession(&mockCompleter{chunks: chunks})
	if err := s.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msg, _ := s.Conversation().At(2)
	if msg.Content != text {
		t.Errorf("content = %q, want %q", msg.Content, text)
	}
}

func TestSend_ErrorStatus(t *testing.T) {
	apiErr := apierrors.NewAPIErrorWithBody(500, "Internal Server Error", models.PathChat, "server error")
	mock := &mockCompleter{streamErr: apiErr}
	s := newTestSession(mock)

	err := s.Send(context.Background(), "hello")
	if !apierrors.IsAPIError(err) {
		t.Fatalf("Send() error = %v, want APIError", err)
	}

	got := snapshot(s)
	if len(got) != 3 {
		t.Fatalf("conversation = %v, want 3 messages", got)
	}
	want := roleContent{models.RoleAssistant, "Error: 500 Internal Server Error\nserver error"}
	if got[2] != want {
		t.Errorf("last message = %+v, want %+v", got[2], want)
	}
}

func TestSend_ReadFailure(t *testing.T) {
	mock := &mockCompleter{
		chunks:  []string{"partial "},
		readErr: apierrors.NewStreamError(io.ErrUnexpectedEOF),
	}
	s := newTestSession(mock)

	err := s.Send(context.Background(), "hello")
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Send() error = %v", err)
	}

	msg, _ := s.Conversation().At(2)
	if msg.Content != "Error: stream read failed: unexpected EOF" {
		t.Errorf("content = %q", msg.Content)
	}
}

func TestSend_EmptyStreamAddsNoAnswer(t *testing.T) {
	s := newTestSession(&mockCompleter{})

	if err := s.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := s.Conversation().Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestSend_Guards(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		settings config.Settings
		wantErr  error
	}{
		{"empty", "", testSettings(), apierrors.ErrEmptyInput},
		{"whitespace", "  \n\t ", testSettings(), apierrors.ErrEmptyInput},
		{"missing key", "hello", config.Settings{Model: "gpt-4"}, apierrors.ErrMissingAPIKey},
		{"blank key", "hello", config.Settings{APIKey: "   "}, apierrors.ErrMissingAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockCompleter{chunks: []string{"x"}}
			var updates atomic.Int32
			s := New(mock, tt.settings, WithOnUpdate(func() { updates.Add(1) }))
			before := s.Conversation().Messages()

			for _, send := range []func(context.Context, string) error{s.Send, s.AskPDF} {
				if err := send(context.Background(), tt.input); !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			}

			if !reflect.DeepEqual(s.Conversation().Messages(), before) {
				t.Error("conversation was modified")
			}
			if mock.calls() != 0 {
				t.Errorf("%d requests issued, want 0", mock.calls())
			}
			if updates.Load() != 0 {
				t.Error("OnUpdate should not be called")
			}
		})
	}
}

func TestSend_WhilePending(t *testing.T) {
	mock := newBlockingCompleter("first answer")
	s := newTestSession(mock)

	done := make(chan error, 1)
	go func() {
		done <- s.Send(context.Background(), "first")
	}()
	<-mock.waiting

	if !s.Pending() {
		t.Fatal("Pending() should be true while streaming")
	}
	before := snapshot(s)

	if err := s.Send(context.Background(), "second"); !errors.Is(err, apierrors.ErrBusy) {
		t.Errorf("Send() error = %v, want ErrBusy", err)
	}
	if err := s.AskPDF(context.Background(), "second"); !errors.Is(err, apierrors.ErrBusy) {
		t.Errorf("AskPDF() error = %v, want ErrBusy", err)
	}
	if err := s.Regenerate(context.Background(), 2); !errors.Is(err, apierrors.ErrBusy) {
		t.Errorf("Regenerate() error = %v, want ErrBusy", err)
	}
	if err := s.Clear(); !errors.Is(err, apierrors.ErrBusy) {
		t.Errorf("Clear() error = %v, want ErrBusy", err)
	}

	if got := snapshot(s); !reflect.DeepEqual(got, before) {
		t.Errorf("conversation changed: %v -> %v", before, got)
	}
	if mock.calls() != 1 {
		t.Errorf("%d requests issued, want 1", mock.calls())
	}

	close(mock.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Send() error = %v", err)
	}

	want := []roleContent{
		{models.RoleAssistant, "Hi"},
		{models.RoleUser, "first"},
		{models.RoleAssistant, "first answer"},
	}
	if got := snapshot(s); !reflect.DeepEqual(got, want) {
		t.Errorf("conversation = %v, want %v", got, want)
	}
}

func TestSend_Cancel(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		wantMsg string
	}{
		{"keeps partial text", []string{"The answer is"}, "The answer is"},
		{"nothing received", nil, "Error: request cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newBlockingCompleter(tt.chunks...)
			s := newTestSession(mock)

			done := make(chan error, 1)
			go func() {
				done <- s.Send(context.Background(), "question")
			}()
			<-mock.waiting

			s.Cancel()
			err := <-done
			if !apierrors.IsCancelled(err) {
				t.Fatalf("Send() error = %v, want cancellation", err)
			}

			msg, ok := s.Conversation().At(2)
			if !ok || msg.Content != tt.wantMsg {
				t.Errorf("answer = %q, want %q", msg.Content, tt.wantMsg)
			}
			if s.Pending() {
				t.Error("session should be idle after cancel")
			}

			// the session is usable again
			mock.gate = nil
			if err := s.Send(context.Background(), "again"); err != nil {
				t.Errorf("Send() after cancel error = %v", err)
			}
		})
	}
}

func TestSend_CancelAfterConversationCleared(t *testing.T) {
	mock := newBlockingCompleter("partial")
	s := newTestSession(mock)

	done := make(chan error, 1)
	go func() {
		done <- s.Send(context.Background(), "question")
	}()
	<-mock.waiting

	s.Conversation().Clear()
	s.Cancel()

	if err := <-done; !errors.Is(err, conversation.ErrStaleTurn) {
		t.Fatalf("Send() error = %v, want ErrStaleTurn", err)
	}
	want := []roleContent{{models.RoleAssistant, "Hi"}}
	if got := snapshot(s); !reflect.DeepEqual(got, want) {
		t.Errorf("messages = %+v, want %+v", got, want)
	}
}

func TestCancel_Idle(t *testing.T) {
	s := newTestSession(&mockCompleter{})
	s.Cancel()
	s.Cancel()
	if s.Pending() {
		t.Error("Pending() should be false")
	}
}

func TestAskPDF(t *testing.T) {
	mock := &mockCompleter{answer: &models.PDFAnswer{Response: "A", Followups: []string{"B?", "C?"}}}
	s := newTestSession(mock, WithRetrievalK(6))

	if err := s.AskPDF(context.Background(), " What does it say? "); err != nil {
		t.Fatalf("AskPDF() error = %v", err)
	}

	msg, _ := s.Conversation().At(2)
	if msg.Content != "A" || !reflect.DeepEqual(msg.Followups, []string{"B?", "C?"}) {
		t.Errorf("answer = %+v", msg)
	}
	user, _ := s.Conversation().At(1)
	if user.Content != "What does it say?" {
		t.Errorf("user message = %q", user.Content)
	}

	req := mock.pdfCalls[0]
	if req.K != 6 || req.APIKey != "sk-test" || req.UserMessage != "What does it say?" {
		t.Errorf("request = %+v", req)
	}
}

func TestAskPDF_Error(t *testing.T) {
	mock := &mockCompleter{pdfErr: apierrors.NewAPIErrorWithBody(400, "Bad Request", models.PathChatWithPDF, "no documents")}
	s := newTestSession(mock)

	if err := s.AskPDF(context.Background(), "q"); err == nil {
		t.Fatal("AskPDF() should fail")
	}
	msg, _ := s.Conversation().At(2)
	if msg.Content != "Error: 400 Bad Request\nno documents" || msg.HasFollowups() {
		t.Errorf("answer = %+v", msg)
	}
}

func TestRegenerate(t *testing.T) {
	mock := &mockCompleter{chunks: []string{"second ", "try"}}
	conv := conversation.New(conversation.WithGreeting("Hi"))
	conv.AppendUser("question one")
	conv.AppendAnswer("first try", []string{"more?"})
	conv.AppendUser("question two")
	conv.AppendAssistant("answer two")
	s := New(mock, testSettings(), WithConversation(conv))

	before := conv.Messages()
	if err := s.Regenerate(context.Background(), 2); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	after := conv.Messages()

	if len(after) != len(before) {
		t.Fatalf("len changed: %d -> %d", len(before), len(after))
	}
	for i := range after {
		if i != 2 && !reflect.DeepEqual(after[i], before[i]) {
			t.Errorf("message %d changed", i)
		}
	}
	if after[2].Content != "second try" || after[2].Timestamp != before[2].Timestamp {
		t.Errorf("regenerated = %+v", after[2])
	}
	if after[2].HasFollowups() {
		t.Error("followups should be dropped on regenerate")
	}
	if mock.chatCalls[0].UserMessage != "question one" {
		t.Errorf("prompt = %q, want %q", mock.chatCalls[0].UserMessage, "question one")
	}
}

func TestRegenerate_NoUserMessage(t *testing.T) {
	mock := &mockCompleter{chunks: []string{"x"}}
	s := newTestSession(mock)
	before := snapshot(s)

	if err := s.Regenerate(context.Background(), 0); !errors.Is(err, conversation.ErrNoUserMessage) {
		t.Errorf("Regenerate() error = %v, want ErrNoUserMessage", err)
	}
	if err := s.RegenerateLast(context.Background()); !errors.Is(err, conversation.ErrNoUserMessage) {
		t.Errorf("RegenerateLast() error = %v, want ErrNoUserMessage", err)
	}
	if got := snapshot(s); !reflect.DeepEqual(got, before) {
		t.Errorf("conversation changed: %v", got)
	}
	if mock.calls() != 0 {
		t.Error("no request should be issued")
	}
	if s.Pending() {
		t.Error("session should be idle")
	}
}

func TestRegenerateLast_Error(t *testing.T) {
	mock := &mockCompleter{chunks: []string{"ok"}}
	s := newTestSession(mock)
	if err := s.Send(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}

	mock.streamErr = apierrors.NewAPIErrorWithBody(429, "Too Many Requests", models.PathChat, "slow down")
	if err := s.RegenerateLast(context.Background()); err == nil {
		t.Fatal("RegenerateLast() should fail")
	}

	got := snapshot(s)
	if len(got) != 3 || got[2].Content != "Error: 429 Too Many Requests\nslow down" {
		t.Errorf("conversation = %v", got)
	}
}

func TestClear(t *testing.T) {
	s := New(&mockCompleter{chunks: []string{"a"}}, testSettings())
	_ = s.Send(context.Background(), "q")

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	want := []roleContent{{models.RoleAssistant, models.Greeting}}
	if got := snapshot(s); !reflect.DeepEqual(got, want) {
		t.Errorf("conversation = %v, want %v", got, want)
	}
}

func TestSetSettings(t *testing.T) {
	mock := &mockCompleter{chunks: []string{"a"}}
	s := New(mock, config.Settings{})

	if err := s.Send(context.Background(), "q"); !errors.Is(err, apierrors.ErrMissingAPIKey) {
		t.Fatalf("Send() error = %v", err)
	}

	updated := testSettings()
	updated.Model = "gpt-4"
	s.SetSettings(updated)
	if s.Settings() != updated {
		t.Errorf("Settings() = %+v", s.Settings())
	}

	if err := s.Send(context.Background(), "q"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if mock.chatCalls[0].Model != "gpt-4" {
		t.Errorf("model = %s, want gpt-4", mock.chatCalls[0].Model)
	}
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name       string
		settings   config.Settings
		result     *models.UploadResult
		err        error
		wantStatus string
	}{
		{
			name:       "success",
			settings:   testSettings(),
			result:     &models.UploadResult{FileName: "doc.pdf", Status: "success", NumChunks: 12},
			wantStatus: "Uploaded doc.pdf (12 chunks indexed)",
		},
		{
			name:       "upload error",
			settings:   testSettings(),
			err:        apierrors.NewUploadError("doc.pdf", "only PDF files are supported"),
			wantStatus: "Upload failed: only PDF files are supported",
		},
		{
			name:       "other error",
			settings:   testSettings(),
			err:        errors.New("connection refused"),
			wantStatus: "Upload failed: connection refused",
		},
		{
			name:       "missing key",
			settings:   config.Settings{},
			wantStatus: "Upload failed: " + apierrors.ErrMissingAPIKey.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockCompleter{upload: tt.result, uploadErr: tt.err}
			s := New(mock, tt.settings)
			before := s.Conversation().Messages()

			status, _ := s.Upload(context.Background(), "/tmp/doc.pdf")
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			if !reflect.DeepEqual(s.Conversation().Messages(), before) {
				t.Error("upload must not touch the conversation")
			}
		})
	}
}

func TestUploadStatus_NilResult(t *testing.T) {
	if got := UploadStatus(nil, nil); !strings.HasPrefix(got, "Upload failed") {
		t.Errorf("UploadStatus(nil, nil) = %q", got)
	}
}

func TestSend_OnTextSkipsErrors(t *testing.T) {
	var texts []string
	s := newTestSession(&mockCompleter{chunks: []string{"4", "", " exactly"}}, WithOnText(func(text string) {
		texts = append(texts, text)
	}))

	if err := s.Send(context.Background(), "What is 2+2?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if want := []string{"4", "4 exactly"}; !reflect.DeepEqual(texts, want) {
		t.Errorf("onText calls = %q, want %q", texts, want)
	}

	texts = nil
	failing := newTestSession(&mockCompleter{streamErr: apierrors.NewAPIError(500, "Internal Server Error", models.PathChat)},
		WithOnText(func(text string) { texts = append(texts, text) }))
	_ = failing.Send(context.Background(), "hi")
	if len(texts) != 0 {
		t.Errorf("error text should not reach onText, got %q", texts)
	}
}
