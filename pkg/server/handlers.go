package server

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/rankbars/pkg/buildinfo"
	rberr "github.com/matzehuels/rankbars/pkg/errors"
	rbio "github.com/matzehuels/rankbars/pkg/io"
	"github.com/matzehuels/rankbars/pkg/pipeline"
	"github.com/matzehuels/rankbars/pkg/render/bars/styles"
	"github.com/matzehuels/rankbars/pkg/snapshot"
	"github.com/matzehuels/rankbars/pkg/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

// =============================================================================
// Snapshots and charts
// =============================================================================

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	year, err := rberr.ParseYear(chi.URLParam(r, "year"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.runner.Load(r.Context(), year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rbio.NewDocument(year, snap))
}

type diffResponse struct {
	Year     int               `json:"year"`
	Previous int               `json:"previousYear,omitempty"`
	Entries  []snapshot.Record `json:"entries"`
	Exits    []snapshot.Record `json:"exits"`
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	year, err := rberr.ParseYear(chi.URLParam(r, "year"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.runner.Period(r.Context(), year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := diffResponse{
		Year:    year,
		Entries: nonNil(p.Diff.Entries),
		Exits:   nonNil(p.Diff.Exits),
	}
	if len(p.Previous) > 0 {
		resp.Previous = year - 1
	}
	writeJSON(w, http.StatusOK, resp)
}

func nonNil(recs []snapshot.Record) []snapshot.Record {
	if recs == nil {
		return []snapshot.Record{}
	}
	return recs
}

// handleChart renders the animated, clickable chart of a year.
//
// Query parameters:
//   - width: viewport width in pixels
//   - from: year to animate from, or "none" to enter every row
//   - static: "1" or "true" for the settled chart without animation
//   - theme: built-in theme name
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	year, err := rberr.ParseYear(chi.URLParam(r, "year"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := chartOptions(year, r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.chartPeriod(r, year, r.URL.Query().Get("from"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	artifacts, _, err := s.runner.RenderWithCacheInfo(r.Context(), p, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSVG(w, artifacts[pipeline.FormatSVG])
}

func chartOptions(year int, q url.Values) (pipeline.Options, error) {
	opts := pipeline.Options{
		Year:        year,
		Formats:     []string{pipeline.FormatSVG},
		Animate:     true,
		Interactive: true,
	}
	if raw := q.Get("width"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return opts, rberr.New(rberr.ErrCodeInvalidInput, "invalid width %q", raw)
		}
		opts.Width = v
	}
	if raw := q.Get("static"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, rberr.New(rberr.ErrCodeInvalidInput, "invalid static flag %q", raw)
		}
		opts.Static = v
	}
	if name := q.Get("theme"); name != "" {
		if _, ok := styles.Builtin(name); !ok {
			return opts, rberr.New(rberr.ErrCodeInvalidInput, "unknown theme %q", name)
		}
		opts.Theme = name
	}
	return opts, nil
}

// chartPeriod resolves the period a chart animates through. An empty from
// uses the preceding year.
func (s *Server) chartPeriod(r *http.Request, year int, from string) (*pipeline.Period, error) {
	ctx := r.Context()
	maxEntries := s.runner.Chart.Normalize().MaxEntriesExits
	switch from {
	case "":
		return s.runner.Period(ctx, year)
	case "none":
		cur, err := s.runner.Load(ctx, year)
		if err != nil {
			return nil, err
		}
		return pipeline.NewPeriod(year, cur, nil, maxEntries), nil
	}
	fromYear, err := rberr.ParseYear(from)
	if err != nil {
		return nil, err
	}
	cur, err := s.runner.Load(ctx, year)
	if err != nil {
		return nil, err
	}
	prev, err := s.runner.Load(ctx, fromYear)
	if err != nil {
		return nil, err
	}
	return pipeline.NewPeriod(year, cur, prev, maxEntries), nil
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	year, err := rberr.ParseYear(chi.URLParam(r, "year"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.runner.Period(r.Context(), year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	artifacts, _, err := s.runner.RenderWithCacheInfo(r.Context(), p, pipeline.Options{
		Year:    year,
		Formats: []string{pipeline.FormatFlow},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSVG(w, artifacts[pipeline.FormatFlow])
}

// =============================================================================
// Notes
// =============================================================================

// companyParam returns the unescaped {company} path segment.
func companyParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "company")
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", rberr.Wrap(rberr.ErrCodeInvalidKey, err, "invalid company name %q", raw)
	}
	if err := rberr.ValidateKey(name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	company, err := companyParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := s.store.GetNote(r.Context(), company)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

type noteRequest struct {
	Field   string `json:"field"`
	Content string `json:"content"`
}

func (s *Server) handleSetNote(w http.ResponseWriter, r *http.Request) {
	s.editNote(w, r, true)
}

func (s *Server) handleClearNote(w http.ResponseWriter, r *http.Request) {
	s.editNote(w, r, false)
}

func (s *Server) editNote(w http.ResponseWriter, r *http.Request, set bool) {
	company, err := companyParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req noteRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if set {
		err = s.store.SetNoteField(r.Context(), company, req.Field, req.Content)
	} else {
		err = s.store.ClearNoteField(r.Context(), company, req.Field)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := s.store.GetNote(r.Context(), company)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("note updated", "company", company, "field", req.Field, "cleared", !set)
	writeJSON(w, http.StatusOK, note)
}

// =============================================================================
// Annual notes
// =============================================================================

func (s *Server) handleGetAnnualNote(w http.ResponseWriter, r *http.Request) {
	year, err := rberr.ParseYear(chi.URLParam(r, "year"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := s.store.GetAnnualNote(r.Context(), year)
	if rberr.Is(err, rberr.ErrCodeNotFound) || isNotFound(err) {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleSetAnnualNote(w http.ResponseWriter, r *http.Request) {
	year, err := rberr.ParseYear(chi.URLParam(r, "year"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var upd store.AnnualNoteUpdate
	if err := decodeBody(w, r, &upd); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetAnnualNote(r.Context(), year, upd); err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := s.store.GetAnnualNote(r.Context(), year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// =============================================================================
// Company documents
// =============================================================================

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := companyParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.store.GetCompany(r.Context(), company)
	if isNotFound(err) {
		s.writeError(w, r, rberr.Wrap(rberr.ErrCodeNotFound, err, "company %q not found", company))
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type companyFieldRequest struct {
	Field string `json:"field"`
	Text  any    `json:"text"`
}

func (s *Server) handleSetCompanyField(w http.ResponseWriter, r *http.Request) {
	company, err := companyParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req companyFieldRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, created, err := s.store.SetCompanyField(r.Context(), company, req.Field, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, doc)
}

func (s *Server) handleUnsetCompanyField(w http.ResponseWriter, r *http.Request) {
	company, err := companyParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req companyFieldRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.store.UnsetCompanyField(r.Context(), company, req.Field)
	if isNotFound(err) {
		s.writeError(w, r, rberr.Wrap(rberr.ErrCodeNotFound, err, "company %q not found", company))
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// =============================================================================
// Password verification
// =============================================================================

type verifyRequest struct {
	Password string `json:"password"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(w, r, &req); err != nil || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Error: "Password is required"})
		return
	}
	if s.password == "" {
		s.logger.Error("edit password not configured")
		writeJSON(w, http.StatusInternalServerError, verifyResponse{Error: "Server configuration error"})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Success: passwordMatches(req.Password, s.password)})
}
