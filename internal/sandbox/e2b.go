package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tobyward/sitegen/internal/events"
)

// envdPort is the control port every sandbox exposes for file and
// command operations.
const envdPort = 49983

// createRequest is the body for POST /sandboxes.
type createRequest struct {
	TemplateID string `json:"templateID"`
	TimeoutSec int    `json:"timeout"`
}

// createResponse is the provider's answer to a create request.
type createResponse struct {
	SandboxID string `json:"sandboxID"`
}

// commandResponse is the envd answer to a command execution.
type commandResponse struct {
	Stdout string            `json:"stdout"`
	Stderr string            `json:"stderr"`
	Error  *events.ExecError `json:"error,omitempty"`
}

// Client talks to the e2b control API and to the per-sandbox envd
// endpoint. It implements Provider.
type Client struct {
	baseURL    string
	domain     string
	apiKey     string
	idleSec    int
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Provider = (*Client)(nil)

// NewClient creates a provider client for the control API at baseURL.
// Sandbox hostnames are derived from the API host (api.e2b.dev serves
// sandboxes under *.e2b.dev).
func NewClient(baseURL, apiKey string, idleTimeout time.Duration, logger *slog.Logger) *Client {
	trimmed := strings.TrimRight(baseURL, "/")
	domain := trimmed
	if u, err := url.Parse(trimmed); err == nil && u.Host != "" {
		domain = strings.TrimPrefix(u.Host, "api.")
	}
	return &Client{
		baseURL: trimmed,
		domain:  domain,
		apiKey:  apiKey,
		idleSec: int(idleTimeout.Seconds()),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// Create provisions a sandbox from templateID.
func (c *Client) Create(ctx context.Context, templateID string) (Instance, error) {
	body, err := json.Marshal(createRequest{TemplateID: templateID, TimeoutSec: c.idleSec})
	if err != nil {
		return nil, fmt.Errorf("marshal create request: %w", err)
	}

	var resp createResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/sandboxes", body, &resp); err != nil {
		return nil, fmt.Errorf("create sandbox from template %s: %w", templateID, err)
	}
	if resp.SandboxID == "" {
		return nil, fmt.Errorf("create sandbox: provider returned no sandbox id")
	}

	c.logger.Info("sandbox provisioned", "sandbox_id", resp.SandboxID, "template", templateID)
	return &instance{client: c, id: resp.SandboxID}, nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %s", method, target, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// instance is one live e2b sandbox.
type instance struct {
	client *Client
	id     string
}

var _ Instance = (*instance)(nil)

func (s *instance) ID() string { return s.id }

func (s *instance) Host(port int) string {
	return fmt.Sprintf("%d-%s.%s", port, s.id, s.client.domain)
}

// envdURL builds an envd endpoint URL for this sandbox.
func (s *instance) envdURL(endpoint, path string) string {
	u := fmt.Sprintf("https://%s%s", s.Host(envdPort), endpoint)
	if path != "" {
		u += "?path=" + url.QueryEscape(path)
	}
	return u
}

func (s *instance) WriteFile(ctx context.Context, path, content string) error {
	if err := s.client.do(ctx, http.MethodPut, s.envdURL("/files", path), []byte(content), nil); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *instance) ReadFile(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.envdURL("/files", path), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", s.client.apiKey)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("read %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

func (s *instance) RemovePath(ctx context.Context, path string) error {
	if err := s.client.do(ctx, http.MethodDelete, s.envdURL("/files", path), nil, nil); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (s *instance) RunCommand(ctx context.Context, command string) (*Execution, error) {
	body, err := json.Marshal(map[string]string{"cmd": command})
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	var resp commandResponse
	if err := s.client.do(ctx, http.MethodPost, s.envdURL("/commands", ""), body, &resp); err != nil {
		return nil, fmt.Errorf("run command: %w", err)
	}
	return &Execution{Stdout: resp.Stdout, Stderr: resp.Stderr, Error: resp.Error}, nil
}

func (s *instance) Kill(ctx context.Context) error {
	if err := s.client.do(ctx, http.MethodDelete, s.client.baseURL+"/sandboxes/"+s.id, nil, nil); err != nil {
		return fmt.Errorf("kill sandbox %s: %w", s.id, err)
	}
	return nil
}
