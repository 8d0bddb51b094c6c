package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client renders a prompt into a hosted image URL.
type Client interface {
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

// Params are per-request knobs. Zero values take the client defaults.
type Params struct {
	Width          int
	Height         int
	Steps          int
	GuidanceScale  float64
	Seed           *int
	NegativePrompt string
}

// Options configure an HTTPClient.
type Options struct {
	URL          string
	PollURL      string
	Model        string
	Timeout      time.Duration
	PollInterval time.Duration
	MaxPolls     int
	Defaults     Params
}

type generateRequest struct {
	Model             string  `json:"model"`
	Prompt            string  `json:"prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Seed              *int    `json:"seed,omitempty"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	ResponseFormat    string  `json:"response_format"`
}

type generateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Data   []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r generateResponse) imageURL() string {
	if len(r.Data) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Data[0].URL)
}

// HTTPClient talks to an OpenAI-style image endpoint and, for job-style
// providers, polls until the job settles.
type HTTPClient struct {
	opts Options
	keys *KeyPool
	http *http.Client
}

func NewHTTPClient(opts Options, keys *KeyPool, httpClient *http.Client) (*HTTPClient, error) {
	if keys == nil {
		return nil, ErrEmptyKeyPool
	}
	if opts.URL == "" {
		return nil, errors.New("generation: provider URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = 30
	}
	if opts.PollURL == "" {
		opts.PollURL = opts.URL
	}
	if opts.Defaults.Width <= 0 {
		opts.Defaults.Width = 1024
	}
	if opts.Defaults.Height <= 0 {
		opts.Defaults.Height = 1024
	}
	if opts.Defaults.Steps <= 0 {
		opts.Defaults.Steps = 4
	}
	if opts.Defaults.GuidanceScale <= 0 {
		opts.Defaults.GuidanceScale = 3.5
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPClient{opts: opts, keys: keys, http: httpClient}, nil
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	p := c.withDefaults(params)
	body := generateRequest{
		Model:             c.opts.Model,
		Prompt:            prompt,
		Width:             p.Width,
		Height:            p.Height,
		NumInferenceSteps: p.Steps,
		GuidanceScale:     p.GuidanceScale,
		Seed:              p.Seed,
		NegativePrompt:    p.NegativePrompt,
		ResponseFormat:    "url",
	}

	key := c.keys.Pick()
	resp, err := c.do(ctx, http.MethodPost, c.opts.URL, key, body)
	if err != nil {
		return "", err
	}
	if url := resp.imageURL(); url != "" {
		return url, nil
	}
	if resp.ID != "" && !isTerminal(resp.Status) {
		return c.poll(ctx, key, resp.ID)
	}
	if isFailed(resp.Status) {
		return "", failedJob(resp)
	}
	return "", &NoImageReturnedError{}
}

func (c *HTTPClient) withDefaults(p Params) Params {
	d := c.opts.Defaults
	if p.Width <= 0 {
		p.Width = d.Width
	}
	if p.Height <= 0 {
		p.Height = d.Height
	}
	if p.Steps <= 0 {
		p.Steps = d.Steps
	}
	if p.GuidanceScale <= 0 {
		p.GuidanceScale = d.GuidanceScale
	}
	if p.NegativePrompt == "" {
		p.NegativePrompt = d.NegativePrompt
	}
	return p
}

// poll is bounded by both MaxPolls and the request deadline.
func (c *HTTPClient) poll(ctx context.Context, key, jobID string) (string, error) {
	start := time.Now()
	url := strings.TrimRight(c.opts.PollURL, "/") + "/" + jobID

	for polls := 1; polls <= c.opts.MaxPolls; polls++ {
		select {
		case <-ctx.Done():
			return "", &PollingTimeoutError{JobID: jobID, Polls: polls - 1, Elapsed: time.Since(start)}
		case <-time.After(c.opts.PollInterval):
		}

		resp, err := c.do(ctx, http.MethodGet, url, key, nil)
		if err != nil {
			if ctx.Err() != nil {
				return "", &PollingTimeoutError{JobID: jobID, Polls: polls, Elapsed: time.Since(start)}
			}
			return "", err
		}

		switch {
		case isFailed(resp.Status):
			return "", failedJob(resp)
		case isTerminal(resp.Status):
			if url := resp.imageURL(); url != "" {
				return url, nil
			}
			return "", &NoImageReturnedError{}
		}
	}
	return "", &PollingTimeoutError{JobID: jobID, Polls: c.opts.MaxPolls, Elapsed: time.Since(start)}
}

func (c *HTTPClient) do(ctx context.Context, method, url, key string, body any) (generateResponse, error) {
	var out generateResponse

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return out, fmt.Errorf("failed to marshal generation request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return out, fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, &GenerationProviderError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, &GenerationProviderError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, &GenerationProviderError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &GenerationProviderError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512), Err: err}
	}
	return out, nil
}

func normalizeStatus(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func isFailed(status string) bool {
	switch normalizeStatus(status) {
	case "failed", "canceled", "cancelled", "error":
		return true
	}
	return false
}

func isTerminal(status string) bool {
	switch normalizeStatus(status) {
	case "succeeded", "completed", "success":
		return true
	}
	return isFailed(status)
}

func failedJob(resp generateResponse) error {
	msg := "generation job failed"
	if resp.Error != nil && strings.TrimSpace(resp.Error.Message) != "" {
		msg = resp.Error.Message
	}
	return &GenerationProviderError{StatusCode: http.StatusOK, Body: msg}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
