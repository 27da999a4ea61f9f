package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/lox/floatchat/internal/models"
)

type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Parameter struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Units string  `json:"units"`
}

type Parameters struct {
	Temperature Parameter `json:"temperature"`
	Salinity    Parameter `json:"salinity"`
	Pressure    Parameter `json:"pressure"`
	Depth       Parameter `json:"depth"`
}

type SpatialCoverage struct {
	Latitude  Range `json:"latitude"`
	Longitude Range `json:"longitude"`
	Depth     Range `json:"depth"`
}

type TemporalCoverage struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration string `json:"duration"`
}

type Quality struct {
	Completeness float64  `json:"completeness"`
	Accuracy     float64  `json:"accuracy"`
	Flags        []string `json:"flags"`
}

// Insights is the report attached to a completed job. No file content is
// read; every job reports the same demonstration figures.
type Insights struct {
	Summary          string           `json:"summary"`
	KeyFindings      []string         `json:"keyFindings"`
	Parameters       Parameters       `json:"oceanographicParameters"`
	SpatialCoverage  SpatialCoverage  `json:"spatialCoverage"`
	TemporalCoverage TemporalCoverage `json:"temporalCoverage"`
	DataQuality      Quality          `json:"dataQuality"`
	Recommendations  []string         `json:"recommendations"`
}

func demoInsights() Insights {
	return Insights{
		Summary: "This NetCDF file contains comprehensive oceanographic data from the Indian Ocean region, showing typical seasonal variations in temperature and salinity patterns. The data quality is excellent with minimal gaps and high accuracy measurements.",
		KeyFindings: []string{
			"Strong temperature gradient observed between surface (28.5°C) and deep waters (4.2°C)",
			"Salinity shows typical Indian Ocean values ranging from 34.2 to 35.8 PSU",
			"Mixed layer depth varies from 20m in winter to 80m in summer",
			"Significant upwelling events detected in the western Indian Ocean",
			"Data spans 2.5 years with 95% temporal coverage",
		},
		Parameters: Parameters{
			Temperature: Parameter{Min: 4.2, Max: 28.5, Mean: 16.8, Units: "°C"},
			Salinity:    Parameter{Min: 34.2, Max: 35.8, Mean: 35.1, Units: "PSU"},
			Pressure:    Parameter{Min: 1013.2, Max: 2500.0, Mean: 1256.6, Units: "hPa"},
			Depth:       Parameter{Min: 0, Max: 2000, Mean: 1000, Units: "m"},
		},
		SpatialCoverage: SpatialCoverage{
			Latitude:  Range{Min: -15.2, Max: 5.8},
			Longitude: Range{Min: 65.4, Max: 95.7},
			Depth:     Range{Min: 0, Max: 2000},
		},
		TemporalCoverage: TemporalCoverage{
			Start:    "2022-01-15T00:00:00Z",
			End:      "2024-07-20T23:59:59Z",
			Duration: "2 years, 6 months, 5 days",
		},
		DataQuality: Quality{
			Completeness: 95.2,
			Accuracy:     98.7,
			Flags:        []string{"Good data", "Quality controlled", "CF compliant"},
		},
		Recommendations: []string{
			"Consider extending the time series for better seasonal analysis",
			"Data is suitable for climate change impact studies",
			"High-quality dataset for ocean circulation modeling",
			"Recommended for educational and research purposes",
		},
	}
}

// DecodeInsights returns the insights stored on a completed job, or nil.
func DecodeInsights(j models.AnalysisJob) (*Insights, error) {
	if j.Insights == "" {
		return nil, nil
	}
	var in Insights
	if err := json.Unmarshal([]byte(j.Insights), &in); err != nil {
		return nil, fmt.Errorf("decode insights for %s: %w", j.ID, err)
	}
	return &in, nil
}
