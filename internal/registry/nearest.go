package registry

import (
	"fmt"
	"math"
	"sort"

	"github.com/i474232898/radar-archive/internal/radar"
)

const earthRadiusKm = 6371.0

// NearestRadar is a radar with its great-circle distance from a point.
type NearestRadar struct {
	radar.Radar
	DistanceKm float64 `json:"distance_km"`
}

// Nearest returns the radars of network (every network when empty) sorted
// by distance from (lon, lat), at most limit of them.
func (r *Registry) Nearest(network string, lon, lat float64, limit int) ([]NearestRadar, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: coordinates (%f, %f) out of range", radar.ErrInvalidValue, lon, lat)
	}
	networks := r.AvailableNetworks()
	if network != "" {
		if _, err := r.NetworkInfo(network); err != nil {
			return nil, err
		}
		networks = []string{network}
	}

	var out []NearestRadar
	for _, n := range networks {
		for _, rd := range r.radars[n] {
			out = append(out, NearestRadar{Radar: rd, DistanceKm: Haversine(lon, lat, rd.Longitude, rd.Latitude)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Key() < out[j].Key()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
