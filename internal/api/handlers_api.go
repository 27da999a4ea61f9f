package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/lox/floatchat/internal/dashboard"
	"github.com/lox/floatchat/internal/imagegen"
	"github.com/lox/floatchat/internal/mapview"
	"github.com/lox/floatchat/internal/metrics"
	"github.com/lox/floatchat/internal/models"
	"github.com/lox/floatchat/internal/profile"
)

const dateLayout = "2006-01-02"

var floatIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

func (s *Server) handleAPIFloats(w http.ResponseWriter, r *http.Request) {
	floats, err := s.floats.ListFloats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, floats)
}

type profileQuery struct {
	Request profile.Request
	Metric  profile.Metric
}

// parseProfileQuery reads the float ID path value and the date, maxDepth and
// metric query parameters. Date defaults to today in UTC and maxDepth to 2000;
// maxDepth beyond profile.MaxMaxDepth is rejected.
func (s *Server) parseProfileQuery(r *http.Request) (profileQuery, error) {
	floatID := r.PathValue("floatID")
	if !floatIDPattern.MatchString(floatID) {
		return profileQuery{}, fmt.Errorf("%w: invalid float id %q", errBadRequest, floatID)
	}

	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		date = s.now().UTC().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return profileQuery{}, fmt.Errorf("%w: date must be YYYY-MM-DD", errBadRequest)
	}

	maxDepth := profile.DefaultMaxDepth
	if v := q.Get("maxDepth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return profileQuery{}, fmt.Errorf("%w: maxDepth must be an integer", errBadRequest)
		}
		if err := profile.CheckMaxDepth(n); err != nil {
			return profileQuery{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		maxDepth = n
	}

	metric, err := profile.ParseMetric(q.Get("metric"))
	if err != nil {
		return profileQuery{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	return profileQuery{
		Request: profile.NewRequest(floatID, date, maxDepth),
		Metric:  metric,
	}, nil
}

type ProfileResponse struct {
	Request profile.Request `json:"request"`
	Metric  profile.Metric  `json:"metric"`
	Unit    string          `json:"unit"`
	Rows    profile.Series  `json:"rows"`
	Points  []profile.Point `json:"points"`
	Summary profile.Summary `json:"summary"`
}

func (s *Server) buildProfile(pq profileQuery) (ProfileResponse, error) {
	rows := profile.Generate(pq.Request)
	metrics.ProfilesGenerated.Inc()

	sum, err := profile.Summarize(rows)
	if err != nil {
		return ProfileResponse{}, fmt.Errorf("summarize %s: %w", pq.Request.FloatID, err)
	}
	return ProfileResponse{
		Request: pq.Request,
		Metric:  pq.Metric,
		Unit:    pq.Metric.Unit(),
		Rows:    rows,
		Points:  rows.Points(pq.Metric),
		Summary: sum,
	}, nil
}

func (s *Server) handleAPIProfile(w http.ResponseWriter, r *http.Request) {
	pq, err := s.parseProfileQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.buildProfile(pq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProfileChart(w http.ResponseWriter, r *http.Request) {
	pq, err := s.parseProfileQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	thumb := r.URL.Query().Get("size") == "thumb"

	key := imagegen.ChartKey{
		FloatID:  pq.Request.FloatID,
		Date:     pq.Request.Date,
		MaxDepth: pq.Request.MaxDepth,
		Metric:   pq.Metric,
		Thumb:    thumb,
	}
	data, ok := s.charts.Get(key)
	if !ok {
		rows := profile.Generate(pq.Request)
		metrics.ProfilesGenerated.Inc()
		title := fmt.Sprintf("Float %s  %s  0-%d m", pq.Request.FloatID, pq.Request.Date, pq.Request.MaxDepth)
		data, err = imagegen.RenderProfile(rows, pq.Metric, imagegen.ChartOptions{Title: title, Thumb: thumb})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.charts.Set(key, data)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	floats, err := s.floats.ListFloats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	state := dashboard.State{
		Status: r.URL.Query().Get("status"),
		Ocean:  r.URL.Query().Get("ocean"),
	}
	writeJSON(w, http.StatusOK, dashboard.Build(floats, state, s.now()))
}

type MapResponse struct {
	View   mapview.View         `json:"view"`
	Floats []models.FloatRecord `json:"floats"`
	Stats  mapview.Stats        `json:"stats"`
}

// parseView reads an optional viewport. Bounds must be given as all four of
// north, south, east and west or not at all.
func parseView(r *http.Request) (mapview.View, error) {
	q := r.URL.Query()
	v := mapview.DefaultView()

	if q.Has("lat") || q.Has("lng") {
		lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
		lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
		if err1 != nil || err2 != nil {
			return v, fmt.Errorf("%w: lat and lng must be numbers", errBadRequest)
		}
		v.Center = models.LatLng{Lat: lat, Lng: lng}
		if err := mapview.Validate(v.Center); err != nil {
			return v, err
		}
	}
	if z := q.Get("zoom"); z != "" {
		n, err := strconv.Atoi(z)
		if err != nil || n < 0 || n > 20 {
			return v, fmt.Errorf("%w: zoom must be 0-20", errBadRequest)
		}
		v.Zoom = n
	}

	names := []string{"north", "south", "east", "west"}
	present := 0
	for _, n := range names {
		if q.Has(n) {
			present++
		}
	}
	if present == 0 {
		return v, nil
	}
	if present != len(names) {
		return v, fmt.Errorf("%w: bounds need north, south, east and west", errBadRequest)
	}

	var vals [4]float64
	for i, n := range names {
		f, err := strconv.ParseFloat(q.Get(n), 64)
		if err != nil {
			return v, fmt.Errorf("%w: %s must be a number", errBadRequest, n)
		}
		vals[i] = f
	}
	b := mapview.Bounds{North: vals[0], South: vals[1], East: vals[2], West: vals[3]}
	if err := b.Validate(); err != nil {
		return v, err
	}
	v.Bounds = &b
	return v, nil
}

func (s *Server) handleAPIMap(w http.ResponseWriter, r *http.Request) {
	view, err := parseView(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	floats, err := s.floats.ListFloats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	visible := mapview.FloatsInView(floats, view)
	writeJSON(w, http.StatusOK, MapResponse{
		View:   view,
		Floats: visible,
		Stats:  mapview.Summarize(visible, s.now()),
	})
}

func (s *Server) handleAPIMapClick(w http.ResponseWriter, r *http.Request) {
	var p models.LatLng
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&p); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: body must be {\"lat\": n, \"lng\": n}", errBadRequest))
		return
	}
	floats, err := s.floats.ListFloats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	click, err := mapview.Nearest(floats, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, click)
}
