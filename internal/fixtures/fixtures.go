// Package fixtures supplies the sample ARGO floats the dashboard, map and
// chat views are built from.
package fixtures

import (
	"context"
	"time"

	"github.com/lox/floatchat/internal/models"
)

// Provider lists floats. Implementations must return records in a stable order.
type Provider interface {
	ListFloats(ctx context.Context) ([]models.FloatRecord, error)
}

// Static serves the built-in sample floats, with profile times relative to Now.
type Static struct {
	Now func() time.Time
}

// NewStatic returns a provider anchored to the wall clock.
func NewStatic() *Static {
	return &Static{Now: time.Now}
}

func (s *Static) ListFloats(ctx context.Context) ([]models.FloatRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return SampleFloats(now), nil
}

// SampleFloats returns the fixture set anchored at now.
func SampleFloats(now time.Time) []models.FloatRecord {
	now = now.UTC().Truncate(time.Minute)
	return []models.FloatRecord{
		{
			ID: "4902345", Name: "Pacific Drifter", Ocean: "Pacific Ocean", Status: models.FloatActive,
			Latitude: -18.42, Longitude: 172.31, LastProfileAt: now.Add(-2 * time.Hour),
			MaxDepth: 2000, SurfaceTemperature: 27.4, SurfaceSalinity: 35.3,
			Trajectory: []models.LatLng{{Lat: -17.90, Lng: 171.62}, {Lat: -18.11, Lng: 171.95}, {Lat: -18.42, Lng: 172.31}},
		},
		{
			ID: "4902346", Name: "Atlantic Sentinel", Ocean: "Atlantic Ocean", Status: models.FloatActive,
			Latitude: 24.87, Longitude: -38.14, LastProfileAt: now.Add(-4 * time.Hour),
			MaxDepth: 1500, SurfaceTemperature: 23.1, SurfaceSalinity: 36.9,
			Trajectory: []models.LatLng{{Lat: 24.52, Lng: -38.70}, {Lat: 24.70, Lng: -38.41}, {Lat: 24.87, Lng: -38.14}},
		},
		{
			ID: "4902347", Name: "Indian Ocean Profiler", Ocean: "Indian Ocean", Status: models.FloatProcessing,
			Latitude: -27.61, Longitude: 78.84, LastProfileAt: now.Add(-6 * time.Hour),
			MaxDepth: 1800, SurfaceTemperature: 21.6, SurfaceSalinity: 35.6,
			Trajectory: []models.LatLng{{Lat: -27.02, Lng: 78.10}, {Lat: -27.33, Lng: 78.49}, {Lat: -27.61, Lng: 78.84}},
		},
		{
			ID: "4902348", Name: "Southern Ocean Explorer", Ocean: "Southern Ocean", Status: models.FloatActive,
			Latitude: -54.20, Longitude: 95.62, LastProfileAt: now.Add(-8 * time.Hour),
			MaxDepth: 2200, SurfaceTemperature: 4.8, SurfaceSalinity: 34.1,
			Trajectory: []models.LatLng{{Lat: -53.71, Lng: 94.30}, {Lat: -53.96, Lng: 94.98}, {Lat: -54.20, Lng: 95.62}},
		},
		{
			ID: "2902345", Name: "Arabian Sea BGC", Ocean: "Indian Ocean", Status: models.FloatActive,
			Latitude: 15.1, Longitude: 73.5, LastProfileAt: now.Add(-26 * time.Hour),
			MaxDepth: 2000, SurfaceTemperature: 28.2, SurfaceSalinity: 36.1,
			Trajectory: []models.LatLng{{Lat: 14.62, Lng: 73.02}, {Lat: 14.88, Lng: 73.27}, {Lat: 15.1, Lng: 73.5}},
		},
		{
			ID: "2902346", Name: "Konkan Coast", Ocean: "Indian Ocean", Status: models.FloatActive,
			Latitude: 15.7, Longitude: 74.1, LastProfileAt: now.Add(-30 * time.Hour),
			MaxDepth: 1000, SurfaceTemperature: 28.6, SurfaceSalinity: 35.8,
			Trajectory: []models.LatLng{{Lat: 15.31, Lng: 73.66}, {Lat: 15.52, Lng: 73.90}, {Lat: 15.7, Lng: 74.1}},
		},
		{
			ID: "2902190", Name: "Bay of Bengal", Ocean: "Indian Ocean", Status: models.FloatInactive,
			Latitude: 12.4, Longitude: 88.9, LastProfileAt: now.Add(-21 * 24 * time.Hour),
			MaxDepth: 2000, SurfaceTemperature: 29.0, SurfaceSalinity: 33.4,
		},
	}
}
