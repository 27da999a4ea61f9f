package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lox/floatchat/internal/models"
)

const (
	profilesToday = 1234
	dataQuality   = 98.7
	maxRecent     = 10
)

// State holds the dashboard filters. Empty or "all" disables a filter.
type State struct {
	Status string `json:"status"`
	Ocean  string `json:"ocean"`
}

func (s State) matches(f models.FloatRecord) bool {
	if s.Status != "" && s.Status != "all" && !strings.EqualFold(string(f.Status), s.Status) {
		return false
	}
	if s.Ocean != "" && s.Ocean != "all" && !strings.EqualFold(f.Ocean, s.Ocean) {
		return false
	}
	return true
}

type Card struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Note  string `json:"note,omitempty"`
}

// RecentProfile is one row of the recent activity table.
type RecentProfile struct {
	FloatID     string             `json:"floatId"`
	Name        string             `json:"name"`
	Ocean       string             `json:"ocean"`
	Status      models.FloatStatus `json:"status"`
	Temperature float64            `json:"temperature"`
	Salinity    float64            `json:"salinity"`
	Depth       int                `json:"depth"`
	ProfiledAt  time.Time          `json:"profiledAt"`
	Age         string             `json:"age"`
}

type View struct {
	State   State           `json:"state"`
	Cards   []Card          `json:"cards"`
	Recent  []RecentProfile `json:"recent"`
	Oceans  []string        `json:"oceans"`
	Updated time.Time       `json:"updated"`
}

// Build assembles the dashboard for floats. Cards describe the whole fleet;
// the recent table honours the filters in state.
func Build(floats []models.FloatRecord, state State, now time.Time) View {
	v := View{
		State:   state,
		Cards:   cards(floats),
		Oceans:  oceans(floats),
		Updated: now,
	}

	for _, f := range floats {
		if !state.matches(f) {
			continue
		}
		v.Recent = append(v.Recent, RecentProfile{
			FloatID:     f.ID,
			Name:        f.Name,
			Ocean:       f.Ocean,
			Status:      f.Status,
			Temperature: f.SurfaceTemperature,
			Salinity:    f.SurfaceSalinity,
			Depth:       f.MaxDepth,
			ProfiledAt:  f.LastProfileAt,
			Age:         humanize.RelTime(f.LastProfileAt, now, "ago", "from now"),
		})
	}
	sort.SliceStable(v.Recent, func(i, j int) bool {
		return v.Recent[i].ProfiledAt.After(v.Recent[j].ProfiledAt)
	})
	if len(v.Recent) > maxRecent {
		v.Recent = v.Recent[:maxRecent]
	}
	return v
}

func cards(floats []models.FloatRecord) []Card {
	active := 0
	var sum float64
	for _, f := range floats {
		if f.Status == models.FloatActive {
			active++
		}
		sum += f.SurfaceTemperature
	}

	avg := "n/a"
	if len(floats) > 0 {
		avg = humanize.FtoaWithDigits(sum/float64(len(floats)), 1) + "°C"
	}

	return []Card{
		{Title: "Active Floats", Value: humanize.Comma(int64(active)), Note: humanize.Comma(int64(len(floats))) + " tracked"},
		{Title: "Profiles Today", Value: humanize.Comma(profilesToday)},
		{Title: "Avg Temperature", Value: avg, Note: "surface"},
		{Title: "Data Quality", Value: humanize.FtoaWithDigits(dataQuality, 1) + "%"},
	}
}

func oceans(floats []models.FloatRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range floats {
		if f.Ocean != "" && !seen[f.Ocean] {
			seen[f.Ocean] = true
			out = append(out, f.Ocean)
		}
	}
	sort.Strings(out)
	return out
}
