package api

import (
	"bytes"
	"io"
	"strconv"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"
)

// MockResponseBody is a ReadCloser that simulates reading response data
// in fixed chunks, optionally failing after the data is exhausted
type MockResponseBody struct {
	data   []byte
	pos    int
	chunk  int
	err    error
	closed bool
}

// NewMockResponseBody creates a new MockResponseBody with the given data
func NewMockResponseBody(data []byte) *MockResponseBody {
	return &MockResponseBody{data: data}
}

// Read implements the io.Reader interface
func (m *MockResponseBody) Read(p []byte) (n int, err error) {
	if m.pos >= len(m.data) {
		if m.err != nil {
			return 0, m.err
		}
		return 0, io.EOF
	}
	end := len(m.data)
	if m.chunk > 0 && m.pos+m.chunk < end {
		end = m.pos + m.chunk
	}
	n = copy(p, m.data[m.pos:end])
	m.pos += n
	return n, nil
}

// Close implements the io.Closer interface
func (m *MockResponseBody) Close() error {
	m.closed = true
	return nil
}

// MockDoer is a mock HTTPDoer that records requests
type MockDoer struct {
	Response *fhttp.Response
	Err      error

	mu       sync.Mutex
	Requests []*fhttp.Request
	Bodies   [][]byte
}

// Do implements the HTTPDoer interface
func (m *MockDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	m.Requests = append(m.Requests, req)
	m.Bodies = append(m.Bodies, body)

	return m.Response, m.Err
}

// LastRequest returns the most recent request and its body
func (m *MockDoer) LastRequest() (*fhttp.Request, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil, nil
	}
	return m.Requests[len(m.Requests)-1], m.Bodies[len(m.Bodies)-1]
}

// NewMockDoer creates a MockDoer returning body with the given status
func NewMockDoer(body []byte, statusCode int) *MockDoer {
	return &MockDoer{
		Response: &fhttp.Response{
			StatusCode: statusCode,
			Status:     statusLine(statusCode),
			Body:       NewMockResponseBody(body),
			Header:     make(fhttp.Header),
		},
	}
}

// NewMockDoerWithError creates a MockDoer that fails at the transport level
func NewMockDoerWithError(err error) *MockDoer {
	return &MockDoer{Err: err}
}

func statusLine(code int) string {
	text := fhttp.StatusText(code)
	if text == "" {
		return ""
	}
	return strconv.Itoa(code) + " " + text
}

func newTestClient(doer HTTPDoer) *Client {
	c, _ := NewClient(WithHTTPClient(doer), WithBaseURL("http://backend.test"))
	return c
}
