package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	apierrors "github.com/diogo/aichat/internal/errors"
	"github.com/diogo/aichat/internal/models"
)

const (
	MaxPDFSize = 50 * 1024 * 1024 // 50MB
)

// UploadPDF sends a PDF file for indexing
func (c *Client) UploadPDF(ctx context.Context, filePath, apiKey string) (*models.UploadResult, error) {
	fileName := filepath.Base(filePath)

	if strings.TrimSpace(apiKey) == "" {
		return nil, apierrors.ErrMissingAPIKey
	}
	if !strings.EqualFold(filepath.Ext(filePath), ".pdf") {
		return nil, apierrors.NewUploadError(fileName, "only PDF files are supported")
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, apierrors.NewUploadErrorWithCause(fileName, err)
	}
	if fileInfo.IsDir() {
		return nil, apierrors.NewUploadError(fileName, "is a directory")
	}
	if fileInfo.Size() > MaxPDFSize {
		return nil, apierrors.NewUploadError(fileName, fmt.Sprintf("file size exceeds maximum %d bytes", MaxPDFSize))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, apierrors.NewUploadErrorWithCause(fileName, err)
	}
	defer func() {
		_ = file.Close()
	}()

	return c.uploadStream(ctx, file, fileName, apiKey)
}

// uploadStream executes the actual upload
func (c *Client) uploadStream(ctx context.Context, reader io.Reader, fileName, apiKey string) (*models.UploadResult, error) {
	// Create multipart body
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", "application/pdf")

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, reader); err != nil {
		return nil, apierrors.NewUploadErrorWithCause(fileName, err)
	}
	if err := writer.WriteField("api_key", apiKey); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	_ = writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(models.PathUploadPDF), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debug("upload request",
		zap.String("endpoint", models.PathUploadPDF),
		zap.String("file", fileName),
		zap.Int("bytes", body.Len()),
	)

	resp, err := c.do(ctx, req, "upload", models.PathUploadPDF)
	if err != nil {
		if apierrors.IsAPIError(err) {
			if msg := apierrors.GetErrorMessage(err); msg != "" {
				return nil, &apierrors.UploadError{FileName: fileName, Message: msg, Err: err}
			}
		}
		return nil, apierrors.NewUploadErrorWithCause(fileName, err)
	}

	respBody, err := readJSON(resp, models.PathUploadPDF)
	if err != nil {
		return nil, apierrors.NewUploadErrorWithCause(fileName, err)
	}

	return parseUploadResult(respBody, fileName)
}

// parseUploadResult reads {status, num_chunks} or {error}
func parseUploadResult(body []byte, fileName string) (*models.UploadResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewUploadErrorWithCause(fileName, apierrors.NewParseError("response is not valid JSON", ""))
	}

	res := unwrapJSON(gjson.ParseBytes(body))
	if msg := errorMessage(res); msg != "" {
		return nil, apierrors.NewUploadError(fileName, msg)
	}

	status := res.Get(PathStatus)
	if !status.Exists() {
		return nil, apierrors.NewUploadErrorWithCause(fileName, apierrors.NewParseError("missing status field", PathStatus))
	}

	return &models.UploadResult{
		FileName:  fileName,
		Status:    status.String(),
		NumChunks: int(res.Get(PathNumChunks).Int()),
	}, nil
}
