package imagefetch

import "fmt"

// AssetNotFoundError is returned when a local locator has no file under the
// asset root.
type AssetNotFoundError struct {
	Locator string
	Err     error
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("asset %q not found", e.Locator)
}

func (e *AssetNotFoundError) Unwrap() error { return e.Err }

// FetchTimeoutError is returned when a remote image did not arrive in time.
type FetchTimeoutError struct {
	URL string
	Err error
}

func (e *FetchTimeoutError) Error() string {
	return fmt.Sprintf("fetching %s timed out", e.URL)
}

func (e *FetchTimeoutError) Unwrap() error { return e.Err }

// FetchHTTPError is returned for a non-2xx response.
type FetchHTTPError struct {
	URL        string
	StatusCode int
}

func (e *FetchHTTPError) Error() string {
	return fmt.Sprintf("fetching %s returned status %d", e.URL, e.StatusCode)
}

// FetchError covers every other transport failure.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s failed: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
