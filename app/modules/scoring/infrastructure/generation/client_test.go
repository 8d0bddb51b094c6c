package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server, keys []string, strategy string, mutate func(*Options)) *HTTPClient {
	t.Helper()
	pool, err := NewKeyPool(keys, strategy)
	require.NoError(t, err)
	opts := Options{
		URL:          srv.URL + "/v1/images/generations",
		PollURL:      srv.URL + "/v1/jobs",
		Model:        "black-forest-labs/FLUX.1-schnell",
		Timeout:      2 * time.Second,
		PollInterval: 10 * time.Millisecond,
		MaxPolls:     5,
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := NewHTTPClient(opts, pool, srv.Client())
	require.NoError(t, err)
	return c
}

func TestHTTPClient_Generate_Payload(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []map[string]any
		auth []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		seen = append(seen, body)
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]string{{"url": "https://cdn.example/gen.png"}}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, []string{"k1"}, StrategyRandom, nil)

	url, err := c.Generate(context.Background(), "a dragon", Params{})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/gen.png", url)

	seed := 42
	_, err = c.Generate(context.Background(), "a dragon", Params{Seed: &seed, NegativePrompt: "blurry", Width: 512})
	require.NoError(t, err)

	require.Len(t, seen, 2)
	first := seen[0]
	assert.Equal(t, "black-forest-labs/FLUX.1-schnell", first["model"])
	assert.Equal(t, "a dragon", first["prompt"])
	assert.Equal(t, "url", first["response_format"])
	assert.EqualValues(t, 1024, first["width"])
	assert.EqualValues(t, 4, first["num_inference_steps"])
	assert.EqualValues(t, 3.5, first["guidance_scale"])
	assert.NotContains(t, first, "seed")
	assert.NotContains(t, first, "negative_prompt")

	second := seen[1]
	assert.EqualValues(t, 42, second["seed"])
	assert.Equal(t, "blurry", second["negative_prompt"])
	assert.EqualValues(t, 512, second["width"])

	assert.Equal(t, []string{"Bearer k1", "Bearer k1"}, auth)
}

func TestHTTPClient_Generate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		verify  func(t *testing.T, err error)
	}{
		{
			name: "provider error carries status and body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
			verify: func(t *testing.T, err error) {
				var provErr *GenerationProviderError
				require.ErrorAs(t, err, &provErr)
				assert.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
				assert.Contains(t, provErr.Body, "quota exceeded")
			},
		},
		{
			name: "empty data is no image returned",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"data":[]}`))
			},
			verify: func(t *testing.T, err error) {
				var noImage *NoImageReturnedError
				require.ErrorAs(t, err, &noImage)
				assert.Equal(t, "no image returned", err.Error())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c := newTestClient(t, srv, []string{"k"}, StrategyRandom, nil)
			_, err := c.Generate(context.Background(), "p", Params{})
			require.Error(t, err)
			tt.verify(t, err)
		})
	}
}

func TestHTTPClient_Generate_Polling(t *testing.T) {
	t.Run("job completes", func(t *testing.T) {
		var polls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				w.Write([]byte(`{"id":"job-1","status":"queued"}`))
				return
			}
			assert.Equal(t, "/v1/jobs/job-1", r.URL.Path)
			if polls.Add(1) < 3 {
				w.Write([]byte(`{"id":"job-1","status":"running"}`))
				return
			}
			w.Write([]byte(`{"id":"job-1","status":"succeeded","data":[{"url":"https://cdn.example/job.png"}]}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv, []string{"k"}, StrategyRandom, nil)
		url, err := c.Generate(context.Background(), "p", Params{})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example/job.png", url)
		assert.EqualValues(t, 3, polls.Load())
	})

	t.Run("job fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				w.Write([]byte(`{"id":"job-2","status":"queued"}`))
				return
			}
			w.Write([]byte(`{"id":"job-2","status":"failed","error":{"message":"nsfw filter"}}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv, []string{"k"}, StrategyRandom, nil)
		_, err := c.Generate(context.Background(), "p", Params{})
		var provErr *GenerationProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, "nsfw filter", provErr.Body)
	})

	t.Run("max polls exceeded", func(t *testing.T) {
		var polls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				w.Write([]byte(`{"id":"job-3","status":"queued"}`))
				return
			}
			polls.Add(1)
			w.Write([]byte(`{"id":"job-3","status":"running"}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv, []string{"k"}, StrategyRandom, func(o *Options) { o.MaxPolls = 3 })
		_, err := c.Generate(context.Background(), "p", Params{})
		var timeoutErr *PollingTimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, 3, timeoutErr.Polls)
		assert.Equal(t, "job-3", timeoutErr.JobID)
		assert.EqualValues(t, 3, polls.Load())
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				w.Write([]byte(`{"id":"job-4","status":"queued"}`))
				return
			}
			w.Write([]byte(`{"id":"job-4","status":"running"}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv, []string{"k"}, StrategyRandom, func(o *Options) {
			o.Timeout = 60 * time.Millisecond
			o.PollInterval = 25 * time.Millisecond
			o.MaxPolls = 1000
		})
		_, err := c.Generate(context.Background(), "p", Params{})
		var timeoutErr *PollingTimeoutError
		require.ErrorAs(t, err, &timeoutErr)
	})
}

func TestKeyPool(t *testing.T) {
	_, err := NewKeyPool(nil, StrategyRandom)
	assert.ErrorIs(t, err, ErrEmptyKeyPool)

	_, err = NewKeyPool([]string{" ", ""}, StrategyRandom)
	assert.ErrorIs(t, err, ErrEmptyKeyPool)

	_, err = NewKeyPool([]string{"a"}, "weighted")
	assert.Error(t, err)

	rr, err := NewKeyPool([]string{"a", " b ", "c"}, StrategyRoundRobin)
	require.NoError(t, err)
	assert.Equal(t, 3, rr.Size())
	var got []string
	for i := 0; i < 6; i++ {
		got = append(got, rr.Pick())
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, got)

	random, err := NewKeyPool([]string{"a", "b"}, "")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		assert.Contains(t, []string{"a", "b"}, random.Pick())
	}
}
