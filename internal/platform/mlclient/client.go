package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

const SecretHeader = "X-ML-Secret"

// ProcessDatasetRequest is the outbound notification that a dataset is ready for scoring.
type ProcessDatasetRequest struct {
	DatasetID   uint   `json:"dataset_id"`
	DatasetPath string `json:"dataset_path"`
	JobID       string `json:"job_id"`
	CallbackURL string `json:"callback_url"`
}

type ExplainRequest struct {
	DatasetID   uint   `json:"dataset_id"`
	JobID       string `json:"job_id"`
	CallbackURL string `json:"callback_url"`
}

type Health struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	LatencyMS  int64           `json:"latency_ms"`
	Body       json.RawMessage `json:"body,omitempty"`
}

type Client interface {
	ProcessDataset(ctx context.Context, req ProcessDatasetRequest) error
	RequestExplanations(ctx context.Context, req ExplainRequest) error
	Health(ctx context.Context) (*Health, error)
}

type Config struct {
	BaseURL string
	Secret  string
	Timeout time.Duration
}

// StatusError is returned for non-2xx responses from the ML service.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ml service %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	secret     string
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing ML_SERVICE_URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &client{
		log:     log.With("service", "MLClient"),
		baseURL: baseURL,
		secret:  cfg.Secret,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (c *client) ProcessDataset(ctx context.Context, req ProcessDatasetRequest) error {
	_, err := c.postJSON(ctx, "/process-dataset", req)
	return err
}

func (c *client) RequestExplanations(ctx context.Context, req ExplainRequest) error {
	_, err := c.postJSON(ctx, "/explain", req)
	return err
}

func (c *client) Health(ctx context.Context) (*Health, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(httpReq)
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ml service unreachable: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	h := &Health{
		Status:     "error",
		StatusCode: resp.StatusCode,
		LatencyMS:  time.Since(start).Milliseconds(),
	}
	if json.Valid(body) {
		h.Body = json.RawMessage(body)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		h.Status = "ok"
	}
	return h, nil
}

func (c *client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ml service %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Path: path, StatusCode: resp.StatusCode, Body: truncate(string(body), 500)}
	}
	c.log.Debug("ml service call ok", "path", path, "status", resp.StatusCode)
	return body, nil
}

func (c *client) authorize(req *http.Request) {
	if c.secret != "" {
		req.Header.Set(SecretHeader, c.secret)
	}
}

// truncate keeps at most n bytes of s, cut on a rune boundary.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(strings.TrimSpace(s), "")
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
