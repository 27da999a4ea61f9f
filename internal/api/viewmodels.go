package api

import (
	"github.com/lox/floatchat/internal/dashboard"
	"github.com/lox/floatchat/internal/mapview"
	"github.com/lox/floatchat/internal/models"
	"github.com/lox/floatchat/internal/profile"
)

// IndexData is the dashboard page.
type IndexData struct {
	SessionID     string
	Dashboard     dashboard.View
	Statuses      []string
	Map           mapview.View
	MapStats      mapview.Stats
	Floats        []models.FloatRecord
	SampleQueries []string
}

// ProfilePageData is the depth profile page for one float.
type ProfilePageData struct {
	Float    *models.FloatRecord
	Request  profile.Request
	Metric   profile.Metric
	Metrics  []profile.Metric
	Summary  profile.Summary
	Layers   []LayerRow
	ChartURL string
	DataURL  string
}

type LayerRow struct {
	Name string
	Rows int
}
