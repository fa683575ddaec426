package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL     = "https://judge0-ce.p.rapidapi.com"
	DefaultMaxBodySize = 1 << 20 // 1MB
)

// ErrNotConfigured is returned by Submit when no API key is set.
var ErrNotConfigured = errors.New("judge0: api key not configured")

// Config configures a Client. RequestTimeout 0 means no client-side timeout:
// Judge0 holds the request open until the run finishes. RequestTimeout also
// applies when HTTPClient is set.
type Config struct {
	BaseURL        string
	APIKey         string
	Host           string // X-RapidAPI-Host; derived from BaseURL when empty
	MaxBodySize    int64
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Submission is one program to run.
type Submission struct {
	Source     string
	LanguageID int
	Stdin      string
}

type submissionBody struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

// Client submits programs to Judge0.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient returns a Client with defaults filled in.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Host == "" {
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			cfg.Host = u.Host
		}
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Client{cfg: cfg, client: client}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// BaseURL returns the service URL submissions go to.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Submit posts the submission, waits for Judge0 to finish it and returns the
// outcome. The body is decoded whatever the HTTP status, because Judge0 and
// RapidAPI report quota and auth failures as {"message": ...}.
func (c *Client) Submit(ctx context.Context, s Submission) (Outcome, error) {
	if !c.Configured() {
		return Outcome{}, ErrNotConfigured
	}

	payload, err := json.Marshal(submissionBody{
		SourceCode: encode(s.Source),
		LanguageID: s.LanguageID,
		Stdin:      encode(s.Stdin),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("encode submission: %w", err)
	}

	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	endpoint := c.cfg.BaseURL + "/submissions?base64_encoded=true&wait=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
	req.Header.Set("X-RapidAPI-Host", c.cfg.Host)

	resp, err := c.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodySize))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read response: %w", err)
	}

	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return Outcome{}, fmt.Errorf("invalid response (%s): %w", resp.Status, err)
	}

	return r.Outcome()
}
