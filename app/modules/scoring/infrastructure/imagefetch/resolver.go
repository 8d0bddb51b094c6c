package imagefetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxImageBytes bounds a single image, local or remote.
const maxImageBytes = 32 << 20

// ErrImageTooLarge is wrapped by the error returned for images over the limit.
var ErrImageTooLarge = errors.New("image exceeds size limit")

// Resolver turns an image locator into a base64 payload.
type Resolver interface {
	ResolveToBase64(ctx context.Context, locator string) (string, error)
}

// HTTPResolver reads "/..." locators from the static asset root and fetches
// everything else over HTTP. It never retries.
type HTTPResolver struct {
	assetRoot string
	timeout   time.Duration
	http      *http.Client
	maxBytes  int64
}

// NewHTTPResolver creates a resolver rooted at assetRoot. A zero timeout
// means 10 seconds.
func NewHTTPResolver(assetRoot string, timeout time.Duration, httpClient *http.Client) *HTTPResolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPResolver{assetRoot: assetRoot, timeout: timeout, http: httpClient, maxBytes: maxImageBytes}
}

var _ Resolver = (*HTTPResolver)(nil)

func (r *HTTPResolver) ResolveToBase64(ctx context.Context, locator string) (string, error) {
	var (
		data []byte
		err  error
	)
	if IsLocal(locator) {
		data, err = r.readAsset(locator)
	} else {
		data, err = r.fetch(ctx, locator)
	}
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// IsLocal reports whether locator points into the static asset root.
func IsLocal(locator string) bool {
	return strings.HasPrefix(locator, "/") && !strings.HasPrefix(locator, "//")
}

func (r *HTTPResolver) readAsset(locator string) ([]byte, error) {
	// os.Root refuses paths that escape the asset directory.
	root, err := os.OpenRoot(r.assetRoot)
	if err != nil {
		return nil, &AssetNotFoundError{Locator: locator, Err: err}
	}
	defer root.Close()

	f, err := root.Open(strings.TrimPrefix(locator, "/"))
	if err != nil {
		return nil, &AssetNotFoundError{Locator: locator, Err: err}
	}
	defer f.Close()

	data, err := r.readLimited(f)
	if errors.Is(err, ErrImageTooLarge) {
		return nil, &FetchError{URL: locator, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("reading asset %q: %w", locator, err)
	}
	return data, nil
}

func (r *HTTPResolver) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, classify(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchHTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := r.readLimited(resp.Body)
	if errors.Is(err, ErrImageTooLarge) {
		return nil, &FetchError{URL: url, Err: err}
	}
	if err != nil {
		return nil, classify(url, err)
	}
	return data, nil
}

// readLimited reads one byte past the limit so an oversized image fails
// instead of being cut short.
func (r *HTTPResolver) readLimited(src io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, r.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > r.maxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}

func classify(url string, err error) error {
	var t interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &t) && t.Timeout()) {
		return &FetchTimeoutError{URL: url, Err: err}
	}
	return &FetchError{URL: url, Err: err}
}
