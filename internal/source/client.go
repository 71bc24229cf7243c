package source

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// ClientConfig holds configuration for the API client
type ClientConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	RetryWait  time.Duration
	UserAgent  string
	Debug      bool
	Logger     *slog.Logger
}

// DefaultClientConfig returns the defaults for a local Clipset server
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    "http://localhost:8000",
		Timeout:    15 * time.Second,
		MaxRetries: 3,
		RetryWait:  time.Second,
		UserAgent:  "clipview/1.0",
	}
}

// newRestyClient builds the resty client shared by every Resolver request
func newRestyClient(cfg ClientConfig) *resty.Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(5*cfg.RetryWait).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500 || r.StatusCode() == 429
	})

	if cfg.Debug && cfg.Logger != nil {
		logger := cfg.Logger
		client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			logger.Debug("HTTP Request", "method", r.Method, "url", r.URL)
			return nil
		})
		client.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			body := r.String()
			if len(body) > 1000 {
				body = body[:1000] + "... (truncated)"
			}
			logger.Debug("HTTP Response",
				"status", r.StatusCode(),
				"url", r.Request.URL,
				"time", r.Time(),
				"body", body,
			)
			return nil
		})
	}

	return client
}

// statusError converts an error response into an error
func statusError(resp *resty.Response) error {
	if resp.StatusCode() == 404 {
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Request.URL)
	}

	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := decode(resp.Body(), &apiErr); err == nil {
		for _, msg := range []string{apiErr.Error, apiErr.Message, apiErr.Detail} {
			if msg != "" {
				return fmt.Errorf("HTTP error %d for %s: %s", resp.StatusCode(), resp.Request.URL, msg)
			}
		}
	}
	return fmt.Errorf("HTTP error %d for %s", resp.StatusCode(), resp.Request.URL)
}
