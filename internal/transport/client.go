// Package transport wraps HTTP access to the OCR backend. It normalizes
// failures into coded errors and knows nothing about retries; retry policy
// belongs to the polling engine.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/gmsas95/ocrdesk-cli/internal/config"
	apperrors "github.com/gmsas95/ocrdesk-cli/internal/errors"
	"github.com/gmsas95/ocrdesk-cli/internal/metrics"
)

// ProgressFunc receives upload progress as a percentage (0-100).
type ProgressFunc func(percent int)

// Client provides access to the OCR backend API
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a backend client from config
func NewClient(cfg config.Backend) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	if cfg.BreakerEnabled {
		c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:    "ocr-backend",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}

	return c
}

// errorBody is the error shape the backend returns on non-2xx responses
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetJSON issues a GET with optional query params and decodes the JSON
// response into out.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if params != nil && len(params) > 0 {
		path = path + "?" + params.Encode()
	}
	body, err := c.do(ctx, http.MethodGet, path, nil, "", nil)
	if err != nil {
		return err
	}
	return decode(body, out)
}

// PostJSON issues a POST with a JSON body and decodes the JSON response
// into out. out may be nil when the response body is irrelevant.
func (c *Client) PostJSON(ctx context.Context, path string, in, out interface{}) error {
	body, contentType, err := encodeJSON(in)
	if err != nil {
		return err
	}
	respBody, err := c.do(ctx, http.MethodPost, path, body, contentType, nil)
	if err != nil {
		return err
	}
	return decode(respBody, out)
}

// PutJSON issues a PUT with a JSON body and decodes the JSON response into out.
func (c *Client) PutJSON(ctx context.Context, path string, in, out interface{}) error {
	body, contentType, err := encodeJSON(in)
	if err != nil {
		return err
	}
	respBody, err := c.do(ctx, http.MethodPut, path, body, contentType, nil)
	if err != nil {
		return err
	}
	return decode(respBody, out)
}

// Delete issues a DELETE and discards the response body.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, "", nil)
	return err
}

// PostBinary issues a POST with a JSON body and returns the raw response
// bytes. Used for export downloads.
func (c *Client) PostBinary(ctx context.Context, path string, in interface{}) ([]byte, error) {
	body, contentType, err := encodeJSON(in)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, body, contentType, nil)
}

// UploadMultipart posts a file plus a stringified options blob as
// multipart form data, reporting upload progress through onProgress, and
// decodes the JSON response into out.
func (c *Client) UploadMultipart(ctx context.Context, path, fileName string, file io.Reader, options interface{}, onProgress ProgressFunc, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return apperrors.Wrap(err, "HTTP_001", "failed to build upload body")
	}
	if _, err := io.Copy(part, file); err != nil {
		return apperrors.Wrap(err, "VAL_004", "failed to read file")
	}

	optJSON, err := json.Marshal(options)
	if err != nil {
		return apperrors.Wrap(err, "HTTP_001", "failed to marshal upload options")
	}
	if err := w.WriteField("options", string(optJSON)); err != nil {
		return apperrors.Wrap(err, "HTTP_001", "failed to build upload body")
	}
	if err := w.Close(); err != nil {
		return apperrors.Wrap(err, "HTTP_001", "failed to build upload body")
	}

	var body io.Reader = &buf
	if onProgress != nil {
		body = newProgressReader(&buf, int64(buf.Len()), onProgress)
	}

	respBody, err := c.do(ctx, http.MethodPost, path, body, w.FormDataContentType(), nil)
	if err != nil {
		return err
	}
	return decode(respBody, out)
}

// do runs a single request through the limiter and breaker and returns the
// response body, or a normalized error. Never retries.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, headers map[string]string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.Wrap(err, "HTTP_001", "request cancelled")
		}
	}

	start := time.Now()
	defer func() {
		metrics.RecordRequestDuration(operationLabel(method, path), time.Since(start))
	}()

	run := func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, body, contentType, headers)
	}

	if c.breaker == nil {
		return run()
	}

	respBody, err := c.breaker.Execute(run)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, apperrors.Wrap(err, "HTTP_003", "backend temporarily unavailable")
	}
	return respBody, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body io.Reader, contentType string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperrors.Wrap(err, "HTTP_001", "failed to create request")
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, "HTTP_001", "request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, "HTTP_001", "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, normalizeHTTPError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// normalizeHTTPError maps a non-2xx response to a coded error with a
// human-readable message.
func normalizeHTTPError(status int, body []byte) error {
	msg := extractMessage(body)

	if status == http.StatusNotFound {
		if msg == "" {
			msg = "resource not found"
		}
		return apperrors.New("GEN_001", msg)
	}

	if msg == "" {
		msg = fmt.Sprintf("backend returned status %d", status)
	}
	return apperrors.New("HTTP_002", msg)
}

// operationLabel folds a request into a bounded metric label: the method
// plus the route with dynamic trailing segments stripped, so document and
// job ids never become label values.
func operationLabel(method, path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) > 2 {
		switch segs[2] {
		case "upload", "bulk-delete", "process", "reprocess", "status", "result":
		default:
			segs[2] = ":id"
		}
		segs = segs[:3]
	}
	return method + " /" + strings.Join(segs, "/")
}

func extractMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	return ""
}

func encodeJSON(in interface{}) (io.Reader, string, error) {
	if in == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, "", apperrors.Wrap(err, "HTTP_001", "failed to marshal request")
	}
	return bytes.NewReader(data), "application/json", nil
}

func decode(body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Wrap(err, "HTTP_002", "failed to decode response")
	}
	return nil
}
