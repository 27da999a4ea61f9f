// Package mapview holds the map panel state: the current viewport, which
// floats fall inside it and what the user clicked.
package mapview

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lox/floatchat/internal/models"
)

const (
	DefaultLat  = -27.6057
	DefaultLng  = 78.8352
	DefaultZoom = 3

	earthRadiusKm  = 6371.0
	recentWindow   = 24 * time.Hour
	dataQuality    = 98.7
	defaultOceanUI = "Indian Ocean"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Bounds is a viewport rectangle in degrees. West may exceed East when the
// view crosses the antimeridian.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// View is the map viewport. A nil Bounds means the whole globe.
type View struct {
	Center models.LatLng `json:"center"`
	Zoom   int           `json:"zoom"`
	Bounds *Bounds       `json:"bounds,omitempty"`
}

// DefaultView is the initial viewport over the central Indian Ocean.
func DefaultView() View {
	return View{Center: models.LatLng{Lat: DefaultLat, Lng: DefaultLng}, Zoom: DefaultZoom}
}

// Validate checks that p lies on the globe.
func Validate(p models.LatLng) error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidCoordinate, p.Lat)
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidCoordinate, p.Lng)
	}
	return nil
}

// Validate checks the bounds' corners and that north is not below south.
func (b Bounds) Validate() error {
	if err := Validate(models.LatLng{Lat: b.North, Lng: b.East}); err != nil {
		return err
	}
	if err := Validate(models.LatLng{Lat: b.South, Lng: b.West}); err != nil {
		return err
	}
	if b.North < b.South {
		return fmt.Errorf("%w: north %v below south %v", ErrInvalidCoordinate, b.North, b.South)
	}
	return nil
}

// Contains reports whether p is inside the bounds.
func (b Bounds) Contains(p models.LatLng) bool {
	if p.Lat < b.South || p.Lat > b.North {
		return false
	}
	if b.West <= b.East {
		return p.Lng >= b.West && p.Lng <= b.East
	}
	return p.Lng >= b.West || p.Lng <= b.East
}

// Contains reports whether p is visible in the view.
func (v View) Contains(p models.LatLng) bool {
	if v.Bounds == nil {
		return true
	}
	return v.Bounds.Contains(p)
}

// FloatsInView returns the floats whose latest position is visible.
func FloatsInView(floats []models.FloatRecord, v View) []models.FloatRecord {
	out := make([]models.FloatRecord, 0, len(floats))
	for _, f := range floats {
		if v.Contains(f.Position()) {
			out = append(out, f)
		}
	}
	return out
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b models.LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Click is the result of selecting a point on the map.
type Click struct {
	Point      models.LatLng       `json:"point"`
	Nearest    *models.FloatRecord `json:"nearest,omitempty"`
	DistanceKm float64             `json:"distanceKm,omitempty"`
}

// Nearest returns the float closest to p. Nearest is nil when there are no floats.
func Nearest(floats []models.FloatRecord, p models.LatLng) (Click, error) {
	if err := Validate(p); err != nil {
		return Click{}, err
	}
	c := Click{Point: p}
	for i := range floats {
		d := Distance(p, floats[i].Position())
		if c.Nearest == nil || d < c.DistanceKm {
			f := floats[i]
			c.Nearest = &f
			c.DistanceKm = d
		}
	}
	c.DistanceKm = math.Round(c.DistanceKm*10) / 10
	return c, nil
}

// Stats summarizes the floats in a view for the side panel.
type Stats struct {
	ActiveFloats   int     `json:"activeFloats"`
	RecentProfiles int     `json:"recentProfiles"`
	DataQuality    float64 `json:"dataQuality"`
	CoverageArea   string  `json:"coverageArea"`
}

// Summarize computes panel statistics. Coverage is the ocean holding the
// most floats, ties broken alphabetically.
func Summarize(floats []models.FloatRecord, now time.Time) Stats {
	s := Stats{DataQuality: dataQuality, CoverageArea: defaultOceanUI}
	counts := make(map[string]int)
	for _, f := range floats {
		if f.Status == models.FloatActive {
			s.ActiveFloats++
		}
		if age := now.Sub(f.LastProfileAt); age >= 0 && age <= recentWindow {
			s.RecentProfiles++
		}
		if f.Ocean != "" {
			counts[f.Ocean]++
		}
	}

	oceans := make([]string, 0, len(counts))
	for o := range counts {
		oceans = append(oceans, o)
	}
	sort.Slice(oceans, func(i, j int) bool {
		if counts[oceans[i]] != counts[oceans[j]] {
			return counts[oceans[i]] > counts[oceans[j]]
		}
		return oceans[i] < oceans[j]
	})
	if len(oceans) > 0 {
		s.CoverageArea = oceans[0]
	}
	return s
}
