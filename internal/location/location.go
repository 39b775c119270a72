// Package location supplies best-effort coordinate fixes. Providers may
// be slow, stale or unavailable; callers bound every fetch and proceed
// without a fix when it does not resolve in time.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/guardian/internal/incident"
)

const httpTimeout = 5 * time.Second

// HTTPProvider reads the last known fix from a local positioning endpoint
// (GPS daemon, device bridge).
type HTTPProvider struct {
	endpoint string
	client   *http.Client
}

// NewHTTP creates an HTTPProvider.
func NewHTTP(endpoint string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: httpTimeout},
	}
}

// Current fetches the latest fix.
func (p *HTTPProvider) Current(ctx context.Context) (*incident.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("location: create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("location: fetch fix: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("location: endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var fix struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fix); err != nil {
		return nil, fmt.Errorf("location: decode fix: %w", err)
	}
	return &incident.Location{Latitude: fix.Latitude, Longitude: fix.Longitude}, nil
}

// StaticProvider returns a fixed coordinate. Dev/test use.
type StaticProvider struct {
	Fix *incident.Location
}

// Current returns the configured fix.
func (p *StaticProvider) Current(_ context.Context) (*incident.Location, error) {
	return p.Fix, nil
}
