package api

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/diogo/aichat/internal/config"
	apierrors "github.com/diogo/aichat/internal/errors"
	"github.com/diogo/aichat/internal/models"
)

// StreamChat sends a completion request and returns the streamed text body.
// The caller must close the returned reader. Cancelling ctx aborts the read.
func (c *Client) StreamChat(ctx context.Context, chatReq models.ChatRequest) (io.ReadCloser, error) {
	if strings.TrimSpace(chatReq.APIKey) == "" {
		return nil, apierrors.ErrMissingAPIKey
	}
	if strings.TrimSpace(chatReq.UserMessage) == "" {
		return nil, apierrors.ErrEmptyInput
	}

	req, err := c.newJSONRequest(ctx, models.PathChat, chatReq)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain")

	c.logger.Debug("chat request",
		zap.String("endpoint", models.PathChat),
		zap.String("model", chatReq.Model),
		zap.String("api_key", config.MaskKey(chatReq.APIKey)),
		zap.Int("prompt_len", len(chatReq.UserMessage)),
	)

	resp, err := c.do(ctx, req, "chat", models.PathChat)
	if err != nil {
		return nil, err
	}

	return &loggedBody{ReadCloser: resp.Body, logger: c.logger, endpoint: models.PathChat}, nil
}

// loggedBody counts streamed bytes and logs the total on Close
type loggedBody struct {
	io.ReadCloser
	logger   *zap.Logger
	endpoint string
	n        int64
	once     sync.Once
}

func (b *loggedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n += int64(n)
	if err != nil && err != io.EOF {
		return n, apierrors.NewStreamError(err)
	}
	return n, err
}

func (b *loggedBody) Close() error {
	b.once.Do(func() {
		b.logger.Debug("stream closed",
			zap.String("endpoint", b.endpoint),
			zap.Int64("bytes", b.n),
		)
	})
	if err := b.ReadCloser.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}
