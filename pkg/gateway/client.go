// Package gateway is the single façade over the store backend's REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryInterval = 100 * time.Millisecond
	maxRetryInterval     = 2 * time.Second
	maxErrorBodyBytes    = 64 << 10
)

// Options configures the shared backend client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RetryMaxTries uint
	HTTPClient    *http.Client
	Metrics       *metrics.GatewayMetrics
	Logger        *logger.Logger
}

// Client is shared by every storefront client. Unauthenticated calls live on
// Client; credentialed calls go through As.
type Client struct {
	baseURL       string
	http          *http.Client
	metrics       *metrics.GatewayMetrics
	logg          *logger.Logger
	retryTries    uint
	retryInterval time.Duration
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parsing backend base url: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	tries := opts.RetryMaxTries
	if tries == 0 {
		tries = 1
	}
	return &Client{
		baseURL:       base,
		http:          httpClient,
		metrics:       opts.Metrics,
		logg:          opts.Logger,
		retryTries:    tries,
		retryInterval: defaultRetryInterval,
	}, nil
}

// BaseURL returns the backend root every path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	endpoint string
	method   string
	path     string
	query    url.Values
	body     any
	token    string
	out      any
}

type response struct {
	status      int
	contentType string
	body        []byte
}

// send performs one backend call. Connection failures on GET are retried with
// exponential backoff; any HTTP response is final.
func (c *Client) send(ctx context.Context, in call) error {
	target := c.baseURL + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}

	var payload []byte
	if in.body != nil {
		encoded, err := json.Marshal(in.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		payload = encoded
	}

	tries := uint(1)
	if in.method == http.MethodGet {
		tries = c.retryTries
	}

	operation := func() (*response, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, in.method, target, body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if in.token != "" {
			req.Header.Set("Authorization", "Bearer "+in.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &response{
			status:      resp.StatusCode,
			contentType: resp.Header.Get("Content-Type"),
			body:        raw,
		}, nil
	}

	start := time.Now()
	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.metrics.IncRetry(in.endpoint)
			if c.logg != nil {
				logCtx := c.logg.WithFields(ctx, map[string]any{
					"endpoint": in.endpoint,
					"wait_ms":  wait.Milliseconds(),
					"error":    err.Error(),
				})
				c.logg.Warn(logCtx, "gateway.retry")
			}
		}),
	)
	if err != nil {
		c.metrics.Observe(in.endpoint, "network_error", time.Since(start))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", in.method, in.path))
	}

	if resp.status < 200 || resp.status > 299 {
		c.metrics.Observe(in.endpoint, outcomeForStatus(resp.status), time.Since(start))
		return apiError(resp)
	}
	c.metrics.Observe(in.endpoint, "ok", time.Since(start))

	if in.out == nil || !hasJSONBody(resp) {
		return nil
	}
	if err := json.Unmarshal(resp.body, in.out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeAPI, err, "unexpected response from store backend").WithStatus(resp.status)
	}
	return nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = maxRetryInterval
	return b
}

// hasJSONBody is false for 204, empty bodies and non-JSON content, which all
// decode to an empty result.
func hasJSONBody(resp *response) bool {
	if resp.status == http.StatusNoContent {
		return false
	}
	if len(bytes.TrimSpace(resp.body)) == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(resp.contentType), "json")
}

type errorBody struct {
	Message json.RawMessage `json:"message"`
}

// apiError turns a non-success response into an API_ERROR carrying the
// backend's message (a string or a list of strings) and status.
func apiError(resp *response) *pkgerrors.Error {
	msg := ""
	body := resp.body
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Message) > 0 {
		msg = decodeMessage(parsed.Message)
	}
	if msg == "" {
		msg = fmt.Sprintf("API error: %d %s", resp.status, http.StatusText(resp.status))
		return pkgerrors.New(pkgerrors.CodeAPI, msg).WithStatus(resp.status)
	}
	return pkgerrors.New(pkgerrors.CodeAPI, msg).
		WithStatus(resp.status).
		WithDetails(map[string]any{serverMessageKey: msg})
}

const serverMessageKey = "server_message"

// ServerMessage returns the message the backend put in its error body, or ""
// when the error carries only the generic status fallback.
func ServerMessage(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return ""
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := details[serverMessageKey].(string)
	return msg
}

func decodeMessage(raw json.RawMessage) string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, ", "))
	}
	return ""
}

func outcomeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "unauthorized"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= 500:
		return "server_error"
	default:
		return "api_error"
	}
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	typed := pkgerrors.As(err)
	return typed != nil && typed.Code() == pkgerrors.CodeAPI && typed.Status() == http.StatusNotFound
}

// IsNetwork reports whether err means the backend could not be reached.
func IsNetwork(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeDependency)
}
