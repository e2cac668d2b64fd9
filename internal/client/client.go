package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// GenerateResult is the metadata extracted from a finished stream.
type GenerateResult struct {
	SandboxID  string
	PreviewURL string
}

// SandboxSummary is one entry of the GET /sandboxes response.
type SandboxSummary struct {
	SandboxID   string `json:"sandboxId"`
	PreviewURL  string `json:"previewUrl"`
	ProjectPath string `json:"projectPath"`
}

type sandboxListResponse struct {
	Success         bool             `json:"success"`
	ActiveSandboxes []SandboxSummary `json:"activeSandboxes"`
	Count           int              `json:"count"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Client is an HTTP client for the sitegen API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new sitegen API client. The client carries no request
// timeout because generation responses stream for minutes; pass a
// deadline through ctx to bound individual calls.
func New(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Generate sends POST /prompt and reduces the streamed response,
// calling onLine for every display line. It returns the sandbox
// metadata extracted from the stream.
func (c *Client) Generate(ctx context.Context, prompt, sessionID string, onLine func(string)) (*GenerateResult, error) {
	body, err := json.Marshal(map[string]string{
		"prompt":    prompt,
		"sessionId": sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal prompt request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	reducer := &Reducer{}
	emit := func(lines []string) {
		if onLine == nil {
			return
		}
		for _, line := range lines {
			onLine(line)
		}
	}

	reader := bufio.NewReader(resp.Body)
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			emit(reducer.Feed(string(buf[:n])))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read stream: %w", err)
		}
	}
	emit(reducer.Finish())

	return &GenerateResult{
		SandboxID:  reducer.SandboxID(),
		PreviewURL: reducer.PreviewURL(),
	}, nil
}

// ListSandboxes fetches GET /sandboxes.
func (c *Client) ListSandboxes(ctx context.Context) ([]SandboxSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sandboxes", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list sandboxes: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list sandboxes: status %d: %s", resp.StatusCode, string(respBody))
	}

	var list sandboxListResponse
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("parse sandbox list: %w", err)
	}
	return list.ActiveSandboxes, nil
}

// DeleteSandbox sends DELETE /sandbox/{id}.
func (c *Client) DeleteSandbox(ctx context.Context, sandboxID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/sandbox/"+sandboxID, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete sandbox %s: %w", sandboxID, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		var status statusResponse
		if err := json.Unmarshal(respBody, &status); err == nil && status.Message != "" {
			return fmt.Errorf("delete sandbox %s: %s", sandboxID, status.Message)
		}
		return fmt.Errorf("delete sandbox %s: status %d", sandboxID, resp.StatusCode)
	}
	return nil
}

// WaitHealthy polls GET /health until the server answers or the
// deadline passes.
func (c *Client) WaitHealthy(ctx context.Context, interval time.Duration) error {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
