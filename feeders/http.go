package feeders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saruyev/flexconfig/internal/flatmap"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPFeeder fetches a JSON configuration document from a remote endpoint
// and flattens it into colon-delimited keys. It is used against local
// emulator services in tests and against internal config endpoints in
// production.
type HTTPFeeder struct {
	URL string

	// Client overrides the HTTP client. Defaults to a client with a 10s
	// timeout.
	Client *http.Client

	// Header values attached to every request, e.g. authorization tokens.
	Header http.Header

	// Optional suppresses errors when the endpoint is unreachable or
	// returns a non-200 status.
	Optional bool
}

// NewHTTPFeeder creates an HTTPFeeder for the given endpoint.
func NewHTTPFeeder(url string) HTTPFeeder {
	return HTTPFeeder{URL: url}
}

// Name implements Feeder.
func (f HTTPFeeder) Name() string { return "http(" + f.URL + ")" }

// IsOptional implements OptionalFeeder.
func (f HTTPFeeder) IsOptional() bool { return f.Optional }

// Feed implements Feeder.
func (f HTTPFeeder) Feed(ctx context.Context) (Snapshot, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTPRequest, err)
	}
	for name, values := range f.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrHTTPStatus, f.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTPRequest, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDocument, f.URL, err)
	}

	return flatmap.Flatten(doc), nil
}
