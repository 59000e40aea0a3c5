// Package translate is a client for the DeepLX translation API.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Default client settings.
const (
	DefaultEndpoint = "https://api.deeplx.org"
	DefaultTimeout  = 10 * time.Second
	DefaultRetries  = 2

	// maxResponseSize bounds the response body that is read.
	maxResponseSize = 1 << 20
)

var (
	// ErrNoAPIKey is returned when no API key is configured.
	ErrNoAPIKey = errors.New("API key is not configured")

	// ErrBadResponse is returned when the response body cannot be parsed.
	ErrBadResponse = errors.New("unexpected response from translation service")
)

// APIError is returned when the service answers with a code other than 200.
type APIError struct {
	Code int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("translation service returned code %d", e.Code)
}

// Request is one translation request.
type Request struct {
	APIKey     string
	Text       string
	SourceLang string
	TargetLang string
}

type requestBody struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type responseBody struct {
	Code int    `json:"code"`
	Data string `json:"data"`
}

// Options configures a Client.
type Options struct {
	Endpoint string
	Timeout  time.Duration
	Retries  int
	Logger   *slog.Logger
}

// Client talks to a DeepLX endpoint. It is safe for concurrent use.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
	logger   *slog.Logger
}

// New creates a client. Zero option values take the defaults.
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.Retries
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = retryLogger{opts.Logger}
	// Hand the last response back after the retries so its body can be decoded.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		http:     rc,
		logger:   opts.Logger,
	}
}

// Translate sends req and returns the translated text.
func (c *Client) Translate(ctx context.Context, req Request) (string, error) {
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		return "", ErrNoAPIKey
	}

	body, err := json.Marshal(requestBody{
		Text:       req.Text,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	endpoint := c.endpoint + "/" + url.PathEscape(key) + "/translate"
	hreq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", redact(fmt.Errorf("creating request: %w", err), key)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		return "", redact(fmt.Errorf("request failed: %w", err), key)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", redact(fmt.Errorf("reading response: %w", err), key)
	}

	c.logger.Debug("translation response",
		"status", resp.StatusCode,
		"text_len", len(req.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var out responseBody
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: HTTP %d", ErrBadResponse, resp.StatusCode)
	}
	if out.Code != http.StatusOK {
		return "", &APIError{Code: out.Code}
	}
	return out.Data, nil
}

// ValidateKey checks that key is accepted by translating a short probe text.
func (c *Client) ValidateKey(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrNoAPIKey
	}
	_, err := c.Translate(ctx, Request{
		APIKey:     key,
		Text:       "test",
		SourceLang: "EN",
		TargetLang: "ZH",
	})
	return err
}

// keyRedactedError hides the API key, which is part of the request URL,
// from error messages.
type keyRedactedError struct {
	err error
	key string
}

func (e *keyRedactedError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.key, "***")
}

func (e *keyRedactedError) Unwrap() error {
	return e.err
}

func redact(err error, key string) error {
	if err == nil || key == "" {
		return err
	}
	return &keyRedactedError{err: err, key: url.PathEscape(key)}
}

// retryLogger adapts slog to retryablehttp's leveled logger and strips the
// path from logged URLs.
type retryLogger struct {
	logger *slog.Logger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.logger.Error(msg, scrub(kv)...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.logger.Debug(msg, scrub(kv)...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.logger.Debug(msg, scrub(kv)...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.logger.Warn(msg, scrub(kv)...) }

func scrub(kv []interface{}) []any {
	out := make([]any, len(kv))
	for i, v := range kv {
		out[i] = v
		switch u := v.(type) {
		case *url.URL:
			out[i] = hostOnly(u)
		case string:
			if i > 0 && kv[i-1] == "url" {
				if parsed, err := url.Parse(u); err == nil {
					out[i] = hostOnly(parsed)
				}
			}
		case error:
			var ue *url.Error
			if errors.As(u, &ue) {
				out[i] = ue.Op + " " + ue.Err.Error()
			}
		}
	}
	return out
}

func hostOnly(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
