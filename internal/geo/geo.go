package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/radar-archive/internal/radar"
	"github.com/i474232898/radar-archive/internal/registry"
)

// ErrNoAPIKey is returned when address lookup is attempted without a key.
var ErrNoAPIKey = errors.New("geocoder API key is not configured")

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, address string) (lon, lat float64, err error)
}

// NearestFinder ranks radars by distance from a point.
type NearestFinder interface {
	Nearest(network string, lon, lat float64, limit int) ([]registry.NearestRadar, error)
}

// geocoder.ApiKey is package-global.
var apiKeyMu sync.Mutex

// Google geocodes addresses through the Google Geocoding API.
type Google struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
}

// NewGoogle returns a Google geocoder using apiKey.
func NewGoogle(apiKey string) *Google {
	return &Google{apiKey: strings.TrimSpace(apiKey), lookup: geocoder.Geocoding}
}

// Locate returns the longitude and latitude of address. The geocoder client
// takes no context, so the request runs in its own goroutine and Locate
// returns ctx.Err() as soon as ctx is done; the abandoned request finishes in
// the background.
func (g *Google) Locate(ctx context.Context, address string) (float64, float64, error) {
	if g.apiKey == "" {
		return 0, 0, fmt.Errorf("%w: %w", radar.ErrNotImplemented, ErrNoAPIKey)
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return 0, 0, fmt.Errorf("%w: empty address", radar.ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		apiKeyMu.Lock()
		defer apiKeyMu.Unlock()
		geocoder.ApiKey = g.apiKey
		loc, err := g.lookup(geocoder.Address{Street: address})
		done <- result{loc, err}
	}()

	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return 0, 0, fmt.Errorf("%w: geocode %q: %v", radar.ErrInvalidValue, address, r.err)
		}
		return r.loc.Longitude, r.loc.Latitude, nil
	}
}

// NearestToAddress geocodes address and returns the closest radars of network.
func NearestToAddress(ctx context.Context, g Geocoder, finder NearestFinder, network, address string, limit int) ([]registry.NearestRadar, error) {
	lon, lat, err := g.Locate(ctx, address)
	if err != nil {
		return nil, err
	}
	return finder.Nearest(network, lon, lat, limit)
}
