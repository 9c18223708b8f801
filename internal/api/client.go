// Package api is the non-streaming REST client for the SentinelNexus scan
// service, used when no stream is available. Transport failures are a
// distinct error type so callers can explicitly substitute the offline
// heuristic scanner instead of relying on blanket error handling.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sentinelnexus/guard/internal/heuristic"
	"github.com/sentinelnexus/guard/internal/models"
)

// ErrUnauthorized signals a 401: the caller should drop stored credentials
// and send the user back through login.
var ErrUnauthorized = errors.New("api: unauthorized")

// TransportError means the backend was never reached or the connection
// dropped mid-call. It is the designed trigger for the offline fallback.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Config клиента; нулевые значения заменяются дефолтами
type Config struct {
	BaseURL   string
	Token     string
	ProjectID string
	Timeout   time.Duration
}

type Client struct {
	httpClient *http.Client
	config     Config
}

func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ProjectID == "" {
		config.ProjectID = "demo-project"
	}

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
	}
}

type codeScanRequest struct {
	ProjectID   string `json:"project_id"`
	ScanType    string `json:"scan_type"`
	CodeContent string `json:"code_content"`
}

type promptScanRequest struct {
	ProjectID  string `json:"project_id"`
	ScanType   string `json:"scan_type"`
	PromptText string `json:"prompt_text"`
}

type webScanRequest struct {
	ProjectID string         `json:"project_id"`
	TargetURL string         `json:"target_url"`
	Config    map[string]any `json:"config"`
}

// WebScanAck acknowledges an asynchronous web scan job.
type WebScanAck struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
}

// ScanCode submits code for a synchronous scan.
func (c *Client) ScanCode(ctx context.Context, content string) (*models.ScanResult, error) {
	var result models.ScanResult
	req := codeScanRequest{ProjectID: c.config.ProjectID, ScanType: "code", CodeContent: content}
	if err := c.post(ctx, "/api/v1/scans/code", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ScanPrompt submits an LLM prompt for injection analysis.
func (c *Client) ScanPrompt(ctx context.Context, content string) (*models.ScanResult, error) {
	var result models.ScanResult
	req := promptScanRequest{ProjectID: c.config.ProjectID, ScanType: "prompt", PromptText: content}
	if err := c.post(ctx, "/api/v1/scans/prompt", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ScanPII submits text for PII detection. The wire field is code_content for
// historical reasons — the backend reuses the code scan request shape.
func (c *Client) ScanPII(ctx context.Context, content string) (*models.ScanResult, error) {
	var result models.ScanResult
	req := codeScanRequest{ProjectID: c.config.ProjectID, ScanType: "pii", CodeContent: content}
	if err := c.post(ctx, "/api/v1/scans/pii", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ScanWeb enqueues an asynchronous scan of a live target and returns the job
// acknowledgement, not a result.
func (c *Client) ScanWeb(ctx context.Context, targetURL string, scanConfig map[string]any) (*WebScanAck, error) {
	if scanConfig == nil {
		scanConfig = map[string]any{}
	}
	var ack WebScanAck
	req := webScanRequest{ProjectID: c.config.ProjectID, TargetURL: targetURL, Config: scanConfig}
	if err := c.post(ctx, "/api/v1/scans/web", req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// ScanWithFallback runs a synchronous scan (code, prompt or pii), degrading
// to the local heuristic scanner when the backend is unreachable. The
// substituted result is labeled offline so the user can tell the difference.
// Server-side failures (including 401) are NOT substituted — only transport
// failures trigger the fallback.
func (c *Client) ScanWithFallback(ctx context.Context, mode models.ScanMode, content string) (*models.ScanResult, error) {
	var (
		result *models.ScanResult
		err    error
	)

	switch mode {
	case models.ModeCode:
		result, err = c.ScanCode(ctx, content)
	case models.ModePrompt:
		result, err = c.ScanPrompt(ctx, content)
	case models.ModePII:
		result, err = c.ScanPII(ctx, content)
	default:
		return nil, fmt.Errorf("api: mode %q has no synchronous scan", mode)
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		log.Printf("api: backend unreachable (%v), using offline heuristics", transportErr.Err)
		offline := heuristic.Scan(content, mode)
		return &offline, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("api: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "POST " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		// читаем не больше 1KB тела для сообщения об ошибке
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("api: POST %s: status %d: %s", path, resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
