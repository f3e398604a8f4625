package api

import (
	"context"
	"fmt"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	"github.com/diogo/aichat/internal/models"
)

// Health checks that the backend is up and returns its reported status
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(models.PathHealth), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, req, "health check", models.PathHealth)
	if err != nil {
		return "", err
	}

	body, err := readJSON(resp, models.PathHealth)
	if err != nil {
		return "", err
	}

	status := gjson.GetBytes(body, PathStatus).String()
	if status != "ok" {
		return status, fmt.Errorf("backend reported status %q", status)
	}
	return status, nil
}
