package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lox/floatchat/internal/analysis"
	"github.com/lox/floatchat/internal/chat"
	"github.com/lox/floatchat/internal/fixtures"
	"github.com/lox/floatchat/internal/imagegen"
	"github.com/lox/floatchat/internal/metrics"
	"github.com/lox/floatchat/internal/store"
)

const (
	chartCacheTTL     = 10 * time.Minute
	chartCacheEntries = 256
	maxUploadBytes    = 32 << 20
)

type Server struct {
	store     *store.Store
	port      string
	logger    *zap.Logger
	tmpl      *template.Template
	floats    fixtures.Provider
	assistant *chat.Assistant
	analysis  *analysis.Runner
	charts    *imagegen.ChartCache
	now       func() time.Time

	chatLocks sessionLocks
}

func NewServer(st *store.Store, port string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:     st,
		port:      port,
		logger:    logger,
		tmpl:      newTemplates(),
		floats:    fixtures.NewStoreProvider(st),
		assistant: chat.NewAssistant(nil, logger),
		analysis:  analysis.NewRunner(st, logger),
		charts:    imagegen.NewChartCache(chartCacheTTL, chartCacheEntries),
		now:       time.Now,
	}
}

// SetFloatProvider replaces the source of float records.
func (s *Server) SetFloatProvider(p fixtures.Provider) {
	s.floats = p
}

// SetResponder configures a free-text responder for chat queries that match
// no rule.
func (s *Server) SetResponder(r chat.Responder) {
	s.assistant = chat.NewAssistant(r, s.logger)
}

// AnalysisRunner returns the runner so the caller can start it alongside the server.
func (s *Server) AnalysisRunner() *analysis.Runner {
	return s.analysis
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, h))
	}

	handle("GET /{$}", s.handleIndex)
	handle("GET /profile/{floatID}", s.handleProfilePage)
	handle("GET /health", s.handleHealth)

	handle("GET /api/floats", s.handleAPIFloats)
	handle("GET /api/profiles/{floatID}", s.handleAPIProfile)
	handle("GET /api/profiles/{floatID}/chart.png", s.handleProfileChart)
	handle("GET /api/dashboard", s.handleAPIDashboard)
	handle("GET /api/map", s.handleAPIMap)
	handle("POST /api/map/click", s.handleAPIMapClick)

	handle("GET /api/chat/{session}", s.handleChatHistory)
	handle("POST /api/chat/{session}", s.handleChatSend)
	handle("POST /api/chat/{session}/messages/{id}/retry", s.handleChatRetry)
	handle("POST /api/chat/{session}/messages/{id}/flag", s.handleChatFlag)

	handle("POST /api/analysis", s.handleAnalysisUpload)
	handle("GET /api/analysis", s.handleAnalysisList)
	handle("GET /api/analysis/{id}", s.handleAnalysisGet)
	handle("DELETE /api/analysis/files/{name}", s.handleAnalysisRemove)

	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server: listening", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request latency by route pattern and status code.
func (s *Server) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(route, strconv.Itoa(rec.status)).Observe(elapsed.Seconds())
		s.logger.Debug("http: request",
			zap.String("route", route),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed))
	})
}
