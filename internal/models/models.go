package models

import (
	"time"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type FloatStatus string

const (
	FloatActive     FloatStatus = "active"
	FloatProcessing FloatStatus = "processing"
	FloatInactive   FloatStatus = "inactive"
)

type FloatRecord struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Ocean              string      `json:"ocean"`
	Status             FloatStatus `json:"status"`
	Latitude           float64     `json:"latitude"`
	Longitude          float64     `json:"longitude"`
	LastProfileAt      time.Time   `json:"lastProfileAt"`
	MaxDepth           int         `json:"maxDepth"`           // meters
	SurfaceTemperature float64     `json:"surfaceTemperature"` // °C
	SurfaceSalinity    float64     `json:"surfaceSalinity"`    // PSU
	Trajectory         []LatLng    `json:"trajectory,omitempty"`
}

// Position returns the float's latest fix.
func (f FloatRecord) Position() LatLng {
	return LatLng{Lat: f.Latitude, Lng: f.Longitude}
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind,omitempty"` // reply kind, bot messages only
	Payload   string    `json:"-"`              // JSON-encoded reply payload
	Flagged   bool      `json:"flagged"`
	CreatedAt time.Time `json:"createdAt"`
}

type AnalysisStatus string

const (
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisError      AnalysisStatus = "error"
)

type AnalysisJob struct {
	ID        string         `json:"id"`
	FileName  string         `json:"fileName"`
	Size      int64          `json:"size"`
	Status    AnalysisStatus `json:"status"`
	Progress  int            `json:"progress"`
	Insights  string         `json:"-"` // JSON-encoded insights, set on completion
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
