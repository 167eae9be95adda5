// Package platform is the HTTP client for the learning platform's REST API:
// login, the claim record store, the payment service and the user
// directory. Payloads are normalized here into internal/models types.
package platform

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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"github.com/Aayan-infotech/bitcoin-admin/internal/metrics"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

const maxResponseBytes = 8 << 20

// Settlement endpoint modes, matching config values.
const (
	EndpointApproveRequest = "approve-request"
	EndpointTransfer       = "transfer"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://platform.example/api.
	BaseURL string

	// Timeout bounds every request, including settlement calls.
	Timeout time.Duration

	// SettlementEndpoint selects which call Settle makes.
	SettlementEndpoint string

	// Transport overrides the base round tripper (tests).
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Client talks to the platform API. It holds no credentials; every
// authenticated call takes the operator's session explicitly.
type Client struct {
	baseURL   string
	timeout   time.Duration
	endpoint  string
	transport http.RoundTripper
	logger    *slog.Logger
}

// New creates a platform client.
func New(opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.SettlementEndpoint == "" {
		opts.SettlementEndpoint = EndpointApproveRequest
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		timeout:   opts.Timeout,
		endpoint:  opts.SettlementEndpoint,
		transport: promhttp.InstrumentRoundTripperDuration(metrics.PlatformRequestDuration, base),
		logger:    opts.Logger,
	}
}

// httpClient returns a client that authenticates as sess. A nil session
// yields an anonymous client.
func (c *Client) httpClient(sess *models.Session) *http.Client {
	transport := c.transport
	if sess != nil {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: sess.PlatformToken,
				TokenType:   "Bearer",
			}),
			Base: c.transport,
		}
	}
	return &http.Client{Timeout: c.timeout, Transport: transport}
}

// envelope is the common shape of platform responses. Success is absent on
// some endpoints.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// do sends one request and decodes the JSON response into out (if non-nil).
// Non-2xx responses and explicit {"success": false} bodies become *APIError.
func (c *Client) do(ctx context.Context, sess *models.Session, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient(sess).Do(req)
	if err != nil {
		c.logger.Warn("Platform request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	c.logger.Debug("Platform request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var env envelope
	_ = json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Message: msg}
	}
	if env.Success != nil && !*env.Success {
		msg := env.text()
		if msg == "" {
			msg = "request rejected"
		}
		return &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Message: msg, Rejected: true}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}
