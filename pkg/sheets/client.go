package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/senja-literasi-api/pkg/config"
)

// ErrNotConfigured is returned when no spreadsheet endpoint is set.
var ErrNotConfigured = errors.New("sheets endpoint not configured")

// Client talks to the spreadsheet web app. Reads return every sheet at once;
// writes replace one sheet wholesale.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
	now      func() time.Time
}

type savePayload struct {
	Action string      `json:"action"`
	Sheet  string      `json:"sheet"`
	Data   interface{} `json:"data"`
}

// NewClient builds a client for the configured endpoint.
func NewClient(cfg config.SheetsConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: cfg.URL,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
		now:      time.Now,
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.endpoint != ""
}

// FetchAll downloads every sheet keyed by its lowercase name. Any transport,
// status or decoding problem is an error; callers must not read it as empty data.
func (c *Client) FetchAll(ctx context.Context) (map[string]json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	target, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse sheets endpoint: %w", err)
	}
	q := target.Query()
	q.Set("action", "getAll")
	q.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch sheets: unexpected status %d", resp.StatusCode)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode sheets payload: %w", err)
	}
	if payload == nil {
		return nil, errors.New("decode sheets payload: not an object")
	}
	return payload, nil
}

// Send replaces a sheet with data. The body goes out as text/plain, matching
// what the web app accepts from browsers without a preflight. The response is
// not inspected beyond logging; only transport failures are returned.
func (c *Client) Send(ctx context.Context, sheet string, data interface{}) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(savePayload{Action: "save", Sheet: sheet, Data: data})
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", sheet, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", sheet, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn("sheets send answered with error status",
			zap.String("sheet", sheet),
			zap.Int("status", resp.StatusCode),
		)
	}
	return nil
}
