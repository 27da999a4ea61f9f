package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lox/floatchat/internal/chat"
	"github.com/lox/floatchat/internal/dashboard"
	"github.com/lox/floatchat/internal/mapview"
	"github.com/lox/floatchat/internal/models"
	"github.com/lox/floatchat/internal/profile"
	"github.com/lox/floatchat/internal/store"
)

const sessionCookie = "floatchat_session"

// sessionID returns the visitor's chat session, issuing a new one if the
// cookie is missing or malformed.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && sessionIDPattern.MatchString(c.Value) {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	floats, err := s.floats.ListFloats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	state := dashboard.State{
		Status: r.URL.Query().Get("status"),
		Ocean:  r.URL.Query().Get("ocean"),
	}
	now := s.now()
	view := mapview.DefaultView()

	data := IndexData{
		SessionID:     sessionID(w, r),
		Dashboard:     dashboard.Build(floats, state, now),
		Statuses:      []string{string(models.FloatActive), string(models.FloatProcessing), string(models.FloatInactive)},
		Map:           view,
		MapStats:      mapview.Summarize(mapview.FloatsInView(floats, view), now),
		Floats:        floats,
		SampleQueries: chat.SampleQueries(),
	}

	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("template error", zap.String("template", "index.html"), zap.Error(err))
	}
}

func (s *Server) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	pq, err := s.parseProfileQuery(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	rows := profile.Generate(pq.Request)
	sum, err := profile.Summarize(rows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	f, err := s.store.GetFloat(r.Context(), pq.Request.FloatID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	q := url.Values{}
	q.Set("date", pq.Request.Date)
	q.Set("maxDepth", fmt.Sprint(pq.Request.MaxDepth))
	q.Set("metric", string(pq.Metric))
	base := "/api/profiles/" + url.PathEscape(pq.Request.FloatID)

	data := ProfilePageData{
		Float:    f,
		Request:  pq.Request,
		Metric:   pq.Metric,
		Metrics:  []profile.Metric{profile.MetricTemperature, profile.MetricSalinity},
		Summary:  sum,
		ChartURL: base + "/chart.png?" + q.Encode(),
		DataURL:  base + "?" + q.Encode(),
	}
	for _, l := range []profile.Layer{profile.LayerMixed, profile.LayerThermocline, profile.LayerDeep} {
		data.Layers = append(data.Layers, LayerRow{Name: string(l), Rows: sum.Layers[l]})
	}

	if err := s.tmpl.ExecuteTemplate(w, "profile.html", data); err != nil {
		s.logger.Error("template error", zap.String("template", "profile.html"), zap.Error(err))
	}
}

type HealthStatus struct {
	Status           string `json:"status"`
	MigrationVersion int    `json:"migrationVersion"`
	Floats           int    `json:"floats"`
	Error            string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok"}

	fail := func(err error) {
		health.Status = "error"
		health.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, health)
	}

	if err := s.store.Ping(r.Context()); err != nil {
		fail(err)
		return
	}
	version, err := s.store.MigrationVersion()
	if err != nil {
		fail(err)
		return
	}
	health.MigrationVersion = version

	floats, err := s.floats.ListFloats(r.Context())
	if err != nil {
		fail(err)
		return
	}
	health.Floats = len(floats)

	writeJSON(w, http.StatusOK, health)
}
