package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/diogo/aichat/internal/config"
	apierrors "github.com/diogo/aichat/internal/errors"
	"github.com/diogo/aichat/internal/models"
)

// ChatWithPDF asks a question against the indexed documents and returns the
// structured answer
func (c *Client) ChatWithPDF(ctx context.Context, pdfReq models.PDFChatRequest) (*models.PDFAnswer, error) {
	if strings.TrimSpace(pdfReq.APIKey) == "" {
		return nil, apierrors.ErrMissingAPIKey
	}
	if strings.TrimSpace(pdfReq.UserMessage) == "" {
		return nil, apierrors.ErrEmptyInput
	}
	if pdfReq.K <= 0 {
		pdfReq.K = models.DefaultRetrievalK
	}

	req, err := c.newJSONRequest(ctx, models.PathChatWithPDF, pdfReq)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("pdf chat request",
		zap.String("endpoint", models.PathChatWithPDF),
		zap.Int("k", pdfReq.K),
		zap.String("api_key", config.MaskKey(pdfReq.APIKey)),
	)

	resp, err := c.do(ctx, req, "chat with pdf", models.PathChatWithPDF)
	if err != nil {
		return nil, err
	}

	body, err := readJSON(resp, models.PathChatWithPDF)
	if err != nil {
		return nil, err
	}

	answer, err := parsePDFAnswer(body)
	if err != nil {
		c.logger.Debug("unparseable pdf answer",
			zap.Int("bytes", len(body)),
			zap.Error(err),
		)
		return nil, err
	}
	return answer, nil
}

// unwrapJSON decodes JSON that may have been encoded into a string one or
// more times. Unwrapping stops at a string that does not hold an object or
// another string.
func unwrapJSON(res gjson.Result) gjson.Result {
	for i := 0; i < maxDecodeDepth && res.Type == gjson.String; i++ {
		raw := strings.TrimSpace(res.String())
		if !gjson.Valid(raw) {
			break
		}
		inner := gjson.Parse(raw)
		if !inner.IsObject() && !inner.IsArray() && inner.Type != gjson.String {
			break
		}
		res = inner
	}
	return res
}

// parsePDFAnswer extracts the answer text and follow-ups from a response body
func parsePDFAnswer(body []byte) (*models.PDFAnswer, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	res := unwrapJSON(gjson.ParseBytes(body))

	switch {
	case res.Type == gjson.String:
		return &models.PDFAnswer{Response: res.String()}, nil

	case res.IsObject():
		response := res.Get(PathResponse)
		if !response.Exists() {
			if msg := errorMessage(res); msg != "" {
				return nil, fmt.Errorf("backend error: %s", msg)
			}
			return nil, apierrors.NewParseError("missing response field", PathResponse)
		}
		return &models.PDFAnswer{
			Response:  response.String(),
			Followups: parseFollowups(res.Get(PathFollowups)),
		}, nil
	}

	return nil, apierrors.NewParseError("unexpected response type", "")
}

// parseFollowups accepts an array of strings, or the same array encoded as
// a JSON string. Blank entries are dropped.
func parseFollowups(v gjson.Result) []string {
	v = unwrapJSON(v)
	if !v.IsArray() {
		return nil
	}

	var out []string
	for _, item := range v.Array() {
		if item.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// errorMessage returns the error text of an error payload, or ""
func errorMessage(res gjson.Result) string {
	if e := res.Get(PathError); e.Exists() {
		return e.String()
	}
	if d := res.Get(PathDetail); d.Exists() {
		if d.IsArray() {
			// FastAPI validation errors: [{"msg": "..."}]
			var msgs []string
			for _, item := range d.Array() {
				if m := item.Get("msg").String(); m != "" {
					msgs = append(msgs, m)
				}
			}
			return strings.Join(msgs, "; ")
		}
		return d.String()
	}
	return ""
}
