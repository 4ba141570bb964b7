// Package toolhouse is the HTTP client for the Toolhouse recommendation agent.
package toolhouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vincent3477/GraduateSupportApp/internal/domain"
)

// Client posts messages to a hosted Toolhouse agent.
type Client struct {
	baseURL string
	agentID string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// Config holds the agent endpoint settings.
type Config struct {
	BaseURL string
	AgentID string
	// APIKey is only needed for private agents.
	APIKey  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates an agent client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		agentID: cfg.AgentID,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  cfg.Logger,
	}
}

// Ask sends a message to the agent and returns the raw response body.
// Non-200 responses and transport failures map to ErrAgentUnavailable.
func (c *Client) Ask(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return "", fmt.Errorf("marshal agent request: %w", err)
	}

	url := c.baseURL + "/" + c.agentID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("query agent: %w: %w", domain.ErrAgentUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read agent response: %w: %w", domain.ErrAgentUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Agent returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_bytes", len(respBody)))
		return "", fmt.Errorf("agent status %d: %w", resp.StatusCode, domain.ErrAgentUnavailable)
	}

	return string(respBody), nil
}
