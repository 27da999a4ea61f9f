package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/lox/floatchat/internal/analysis"
	"github.com/lox/floatchat/internal/models"
)

// JobView is an analysis job with its insights decoded.
type JobView struct {
	models.AnalysisJob
	Insights *analysis.Insights `json:"insights,omitempty"`
}

func jobView(j models.AnalysisJob) (JobView, error) {
	in, err := analysis.DecodeInsights(j)
	if err != nil {
		return JobView{}, err
	}
	return JobView{AnalysisJob: j, Insights: in}, nil
}

type uploadResponse struct {
	Jobs     []models.AnalysisJob `json:"jobs"`
	Rejected []string             `json:"rejected,omitempty"`
}

// readUploads accepts either a multipart form with "files" parts or a JSON
// list of {name, size}. File contents are never read.
func readUploads(w http.ResponseWriter, r *http.Request) ([]analysis.Upload, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		var body struct {
			Files []analysis.Upload `json:"files"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON body", errBadRequest)
		}
		return body.Files, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("%w: expected multipart form with files", errBadRequest)
	}
	defer r.MultipartForm.RemoveAll()

	var uploads []analysis.Upload
	for _, fh := range r.MultipartForm.File["files"] {
		uploads = append(uploads, analysis.Upload{Name: fh.Filename, Size: fh.Size})
	}
	return uploads, nil
}

func (s *Server) handleAnalysisUpload(w http.ResponseWriter, r *http.Request) {
	uploads, err := readUploads(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(uploads) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: no files", errBadRequest))
		return
	}

	jobs, rejected, err := s.analysis.Submit(r.Context(), uploads)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, uploadResponse{Jobs: jobs, Rejected: rejected})
}

func (s *Server) handleAnalysisList(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.analysis.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		v, err := jobView(j)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAnalysisGet(w http.ResponseWriter, r *http.Request) {
	j, err := s.analysis.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := jobView(*j)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleAnalysisRemove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	n, err := s.analysis.Remove(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fileName": name, "deleted": n})
}
