package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// DefaultDims is the vector size requested from the embedding service.
const DefaultDims = 256

// Client converts a base64 image into an embedding vector.
type Client interface {
	Embed(ctx context.Context, imageBase64 string) ([]float64, error)
}

type embedRequest struct {
	Img   string `json:"img"`
	Image string `json:"image"`
	Dims  int    `json:"dims"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// HTTPClient calls the remote image embedding endpoint.
type HTTPClient struct {
	url     string
	dims    int
	timeout time.Duration
	http    *http.Client
}

// NewHTTPClient creates an embedding client. A zero dims or timeout falls back
// to 256 dimensions and 20 seconds.
func NewHTTPClient(url string, dims int, timeout time.Duration, httpClient *http.Client) *HTTPClient {
	if dims <= 0 {
		dims = DefaultDims
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPClient{url: url, dims: dims, timeout: timeout, http: httpClient}
}

var _ Client = (*HTTPClient)(nil)

// Embed posts the image and returns a validated vector. Failures are
// *EmbeddingServiceError or *InvalidEmbeddingError.
func (c *HTTPClient) Embed(ctx context.Context, imageBase64 string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(embedRequest{Img: imageBase64, Image: imageBase64, Dims: c.dims})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &EmbeddingServiceError{
			Timeout: errors.Is(err, context.DeadlineExceeded) || isTimeout(err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &EmbeddingServiceError{Timeout: errors.Is(err, context.DeadlineExceeded), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &EmbeddingServiceError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var out embedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &InvalidEmbeddingError{Reason: fmt.Sprintf("malformed response: %v", err)}
	}

	if err := Validate(out.Embedding); err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

// Validate rejects vectors that are empty, all zero or contain NaN/Inf.
func Validate(v []float64) error {
	if len(v) == 0 {
		return &InvalidEmbeddingError{Reason: "empty vector"}
	}
	allZero := true
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &InvalidEmbeddingError{Reason: fmt.Sprintf("non-finite component at index %d", i)}
		}
		if x != 0 {
			allZero = false
		}
	}
	if allZero {
		return &InvalidEmbeddingError{Reason: "all-zero vector"}
	}
	return nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
