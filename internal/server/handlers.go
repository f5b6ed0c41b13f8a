package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/notify"
	"github.com/spigell/cv-screener/internal/report"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/session"
	"github.com/spigell/cv-screener/internal/verdict"
)

const dateLayout = "2006-01-02"

type sessionResponse struct {
	ID        string                    `json:"id"`
	StartedAt time.Time                 `json:"started_at"`
	Job       candidate.Job             `json:"job"`
	Counts    map[candidate.Verdict]int `json:"counts"`
	Stages    []verdict.Status          `json:"stages"`
	Records   []*candidate.Record       `json:"candidates"`
}

type overrideRequest struct {
	Verdict string  `json:"verdict"`
	Notes   *string `json:"notes"`
}

type retuneRequest struct {
	Thresholds candidate.Thresholds `json:"thresholds"`
	TopN       int                  `json:"top_n"`
}

type interviewRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type notifyResult struct {
	Recipient  string `json:"recipient"`
	ResumeFile string `json:"resume_file"`
	Sent       bool   `json:"sent"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	job, err := jobFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	uploads, err := uploadsFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sess, err := s.deps.Sessions.Analyze(r.Context(), job, uploads, func(dispatched, total int, msg string) {
		s.logger.Debug(msg, zap.Int("dispatched", dispatched), zap.Int("total", total))
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sess))
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.deps.Sessions.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetune(w http.ResponseWriter, r *http.Request) {
	var req retuneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	sess, err := s.deps.Sessions.Retune(req.Thresholds, req.TopN)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sess))
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Current()
	if err != nil {
		writeSessionError(w, err)
		return
	}

	records := sess.Batch.Items
	if raw := r.URL.Query().Get("verdict"); raw != "" {
		v, err := candidate.ParseVerdict(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		records = sess.Batch.ByVerdict(v)
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	rec, err := s.deps.Sessions.Override(chi.URLParam(r, "file"), req.Verdict, req.Notes)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSummaryPDF(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Current()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	file := chi.URLParam(r, "file")
	rec := sess.Batch.Find(file)
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", verdict.ErrUnknownCandidate, file))
		return
	}

	data, err := report.RenderSummaryPDF(rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	name := report.PDFNames(sess.Batch.Items)[rec.ResumeFile]
	s.persist(r, s.deps.Containers.Reports, name, data)
	writeFile(w, "application/pdf", name, data)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	v, err := candidate.ParseVerdict(chi.URLParam(r, "verdict"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, err := s.deps.Sessions.Current()
	if err != nil {
		writeSessionError(w, err)
		return
	}

	data, err := report.RenderCSV(sess.Batch.ByVerdict(v))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	name := report.CSVName(v, s.now())
	s.persist(r, s.deps.Containers.Exports, name, data)
	writeFile(w, "text/csv; charset=utf-8", name, data)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Current()
	if err != nil {
		writeSessionError(w, err)
		return
	}

	data, err := report.RenderAnalyticsXLSX(sess.Job, sess.Batch, s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.persist(r, s.deps.Containers.Reports, report.XLSXName, data)
	writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", report.XLSXName, data)
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if s.deps.Notifier == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("notifications are disabled"))
		return
	}
	v, err := candidate.ParseVerdict(chi.URLParam(r, "verdict"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, err := s.deps.Sessions.Current()
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toNotifyResults(s.deps.Notifier.NotifyAll(r.Context(), sess.Batch.ByVerdict(v))))
}

func (s *Server) handleMissingInfo(w http.ResponseWriter, r *http.Request) {
	if s.deps.Notifier == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("notifications are disabled"))
		return
	}
	sess, err := s.deps.Sessions.Current()
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toNotifyResults(s.deps.Notifier.RequestMissingInfo(r.Context(), sess.Batch.MissingContact())))
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("interview scheduling is disabled"))
		return
	}

	var req interviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	rec, err := s.deps.Sessions.Candidate(chi.URLParam(r, "file"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if rec.Verdict != candidate.Shortlist {
		writeError(w, http.StatusConflict, errors.New("interviews can only be scheduled for shortlisted candidates"))
		return
	}

	date := notify.DefaultDate(s.now())
	if strings.TrimSpace(req.Date) != "" {
		if date, err = time.Parse(dateLayout, req.Date); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid date %q", req.Date))
			return
		}
	}

	link, err := s.deps.Scheduler.Schedule(r.Context(), rec.Email, rec.DisplayName(), date, req.Time)
	switch {
	case errors.Is(err, notify.ErrInvalidSlot), errors.Is(err, notify.ErrNoEmail):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"meet_link": link})
}

func (s *Server) persist(r *http.Request, container, name string, data []byte) {
	if err := s.deps.Blobs.Put(r.Context(), container, name, data); err != nil {
		s.logger.Warn("persisting export failed", zap.String("name", name), zap.Error(err))
	}
}

func jobFromForm(r *http.Request) (candidate.Job, error) {
	job := candidate.Job{
		Description:     r.FormValue("jd"),
		Role:            strings.TrimSpace(r.FormValue("role")),
		Domain:          strings.TrimSpace(r.FormValue("domain")),
		Skills:          strings.TrimSpace(r.FormValue("skills")),
		ExperienceRange: r.FormValue("experience"),
		Thresholds:      candidate.DefaultThresholds(),
	}

	fields := []struct {
		key    string
		target *float64
	}{
		{"jd_threshold", &job.Thresholds.JDSimilarity},
		{"skills_threshold", &job.Thresholds.Skills},
		{"domain_threshold", &job.Thresholds.Domain},
		{"experience_threshold", &job.Thresholds.Experience},
		{"score_threshold", &job.Thresholds.FinalScore},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(r.FormValue(f.key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return job, fmt.Errorf("invalid %s %q", f.key, raw)
		}
		*f.target = v
	}

	if raw := strings.TrimSpace(r.FormValue("top_n")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return job, fmt.Errorf("invalid top_n %q", raw)
		}
		job.TopN = n
	}
	return job, nil
}

func uploadsFromForm(r *http.Request) ([]screening.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File["resumes"]
	uploads := make([]screening.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, screening.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

func toResponse(sess session.Session) sessionResponse {
	return sessionResponse{
		ID:        sess.ID,
		StartedAt: sess.StartedAt,
		Job:       sess.Job,
		Counts:    sess.Batch.Counts(),
		Stages:    sess.Stages,
		Records:   sess.Batch.Items,
	}
}

func toNotifyResults(results []notify.Result) []notifyResult {
	out := make([]notifyResult, 0, len(results))
	for _, r := range results {
		nr := notifyResult{Recipient: r.Recipient, ResumeFile: r.ResumeFile, Sent: r.Sent}
		if r.Err != nil {
			nr.Error = r.Err.Error()
		}
		out = append(out, nr)
	}
	return out
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrAnalysisLoaded):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, session.ErrNoAnalysis), errors.Is(err, verdict.ErrUnknownCandidate):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
