package server

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jwulff/lotscope-go/internal/analysis"
	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/jwulff/lotscope-go/internal/sensordata"
	lsrender "github.com/jwulff/lotscope-go/internal/render"
)

type healthResponse struct {
	Status string `json:"status"`
	Dates  int    `json:"dates"`
}

type datesResponse struct {
	Dates []domain.Date `json:"dates"`
}

type errorsResponse struct {
	Date      domain.Date `json:"date"`
	HasErrors bool        `json:"has_errors"`
	Processes []string    `json:"processes"`
}

type readingsResponse struct {
	Date    domain.Date  `json:"date"`
	Tag     domain.Tag   `json:"tag,omitempty"`
	Count   int          `json:"count"`
	Columns []string     `json:"columns"`
	Rows    [][]string   `json:"rows"`
	Tags    []domain.Tag `json:"tags"`
}

type discardsResponse struct {
	Discards []sensordata.Discard `json:"discards"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{Status: "ok", Dates: len(s.catalog.ListAvailableDates())})
}

func (s *Server) handleListDates(w http.ResponseWriter, r *http.Request) {
	dates := s.catalog.ListAvailableDates()
	if dates == nil {
		dates = []domain.Date{}
	}
	render.JSON(w, r, datesResponse{Dates: dates})
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	date, apiErr := s.parseDate(r)
	if apiErr != nil {
		render.Render(w, r, apiErr)
		return
	}
	procs := s.catalog.ErrorProcesses(date).Sorted()
	render.JSON(w, r, errorsResponse{Date: date, HasErrors: len(procs) > 0, Processes: procs})
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	date, apiErr := s.parseDate(r)
	if apiErr != nil {
		render.Render(w, r, apiErr)
		return
	}
	req := readingsRequest{Tag: r.URL.Query().Get("tag")}
	if err := s.validate.Struct(req); err != nil {
		render.Render(w, r, errInvalidRequest(CodeInvalidQuery, "invalid query", fieldErrors(err)))
		return
	}

	tt, ok, err := s.catalog.Tagged(date)
	if err != nil {
		s.renderInternal(w, r, err)
		return
	}
	if !ok {
		render.Render(w, r, errNoData(date.String()))
		return
	}

	resp := readingsResponse{Date: date, Columns: tt.Table.Columns, Rows: tt.Table.Rows, Tags: tt.Tags}
	if req.Tag != "" {
		tag, _ := domain.ParseTag(req.Tag)
		filtered := tt.Filter(tag)
		resp.Tag = tag
		resp.Rows = filtered.Rows
		resp.Tags = make([]domain.Tag, filtered.Len())
		for i := range resp.Tags {
			resp.Tags[i] = tag
		}
	}
	if resp.Rows == nil {
		resp.Rows = [][]string{}
	}
	if resp.Tags == nil {
		resp.Tags = []domain.Tag{}
	}
	resp.Count = len(resp.Rows)
	render.JSON(w, r, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, apiErr := s.summarize(r)
	if apiErr != nil {
		render.Render(w, r, apiErr)
		return
	}
	render.JSON(w, r, summary)
}

func (s *Server) handleDiscards(w http.ResponseWriter, r *http.Request) {
	discards := s.catalog.Discards()
	if discards == nil {
		discards = []sensordata.Discard{}
	}
	render.JSON(w, r, discardsResponse{Discards: discards})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := lsrender.RenderIndex(&buf, lsrender.IndexData{
		Dates:    s.catalog.ListAvailableDates(),
		Discards: s.catalog.Discards(),
	})
	if err != nil {
		s.htmlError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, apiErr := s.summarize(r)
	if apiErr != nil {
		s.htmlError(w, r, apiErr.StatusCode, apiErr)
		return
	}
	var buf bytes.Buffer
	if err := lsrender.RenderDashboard(&buf, lsrender.DashboardData{Summary: summary, AssetsHost: s.assetsHost}); err != nil {
		s.htmlError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	tt, apiErr := s.tagged(r)
	if apiErr != nil {
		s.htmlError(w, r, apiErr.StatusCode, apiErr)
		return
	}
	var buf bytes.Buffer
	if err := lsrender.WriteWorkbook(&buf, tt); err != nil {
		s.htmlError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tt.Date.String()+".xlsx"))
	w.Write(buf.Bytes())
}

func (s *Server) parseDate(r *http.Request) (domain.Date, *APIError) {
	req := dateRequest{Date: chi.URLParam(r, "date")}
	if err := s.validate.Struct(req); err != nil {
		return domain.Date{}, errInvalidRequest(CodeInvalidDate, "invalid date", fieldErrors(err))
	}
	date, _ := domain.ParseISODate(req.Date)
	return date, nil
}

func (s *Server) tagged(r *http.Request) (*domain.TaggedTable, *APIError) {
	date, apiErr := s.parseDate(r)
	if apiErr != nil {
		return nil, apiErr
	}
	tt, ok, err := s.catalog.Tagged(date)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to tag readings",
			slog.String("date", date.String()),
			slog.String("error", err.Error()),
		)
		return nil, errInternal(err)
	}
	if !ok {
		return nil, errNoData(date.String())
	}
	return tt, nil
}

func (s *Server) summarize(r *http.Request) (*analysis.Summary, *APIError) {
	tt, apiErr := s.tagged(r)
	if apiErr != nil {
		return nil, apiErr
	}
	summary, err := analysis.Summarize(tt)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to summarize readings",
			slog.String("date", tt.Date.String()),
			slog.String("error", err.Error()),
		)
		return nil, errInternal(err)
	}
	return summary, nil
}

func (s *Server) renderInternal(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "request failed", slog.String("error", err.Error()))
	render.Render(w, r, errInternal(err))
}

func (s *Server) htmlError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "page failed", slog.String("error", err.Error()))
	}
	http.Error(w, err.Error(), status)
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}
