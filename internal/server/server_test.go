package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jwulff/lotscope-go/internal/catalog"
	"github.com/jwulff/lotscope-go/internal/config"
	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/jwulff/lotscope-go/internal/logging"
	"github.com/jwulff/lotscope-go/internal/sensordata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var (
	day1 = domain.NewDate(2024, 3, 15)
	day2 = domain.NewDate(2024, 3, 16)
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	table := domain.NewTable("Temp", "Current", "Process")
	for _, row := range [][]string{
		{"70", "1.0", "1"},
		{"71", "1.4", "2"},
		{"72", "1.1", "1"},
		{"75", "1.9", "2"},
	} {
		require.NoError(t, table.AppendRow(row))
	}
	return catalog.New(
		[]domain.ErrorLotRecord{{Date: day1, LotIndex: 1, Process: "2"}},
		&sensordata.Result{
			Index: sensordata.Index{
				day1: table,
				day2: domain.NewTable("Temp", "Current", "Process"),
			},
			Discards: []sensordata.Discard{{Path: "kemp-abh-sensor-garbage.csv", Reason: "bad date"}},
		},
	)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(newTestCatalog(t), Options{Logger: logging.Discard()})
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	decode(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.Dates)
}

func TestListDates(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/dates")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dates":["2024-03-15","2024-03-16"]}`, rec.Body.String())
}

func TestListDatesEmpty(t *testing.T) {
	s := New(catalog.New(nil, &sensordata.Result{}), Options{Logger: logging.Discard()})
	rec := get(t, s, "/api/dates")
	assert.JSONEq(t, `{"dates":[]}`, rec.Body.String())
}

func TestErrors(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/dates/2024-03-15/errors")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date":"2024-03-15","has_errors":true,"processes":["2"]}`, rec.Body.String())

	rec = get(t, s, "/api/dates/2024-03-16/errors")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date":"2024-03-16","has_errors":false,"processes":[]}`, rec.Body.String())
}

func TestErrorsInvalidDate(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/dates/15-03-2024/errors")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body APIError
	decode(t, rec, &body)
	assert.Equal(t, CodeInvalidDate, body.ErrorCode)
}

func TestReadings(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/dates/2024-03-15/readings")
	require.Equal(t, http.StatusOK, rec.Code)

	var body readingsResponse
	decode(t, rec, &body)
	assert.Equal(t, 4, body.Count)
	assert.Equal(t, []string{"Temp", "Current", "Process"}, body.Columns)
	assert.Equal(t, []domain.Tag{domain.TagNormal, domain.TagError, domain.TagNormal, domain.TagError}, body.Tags)
}

func TestReadingsFilteredByTag(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/dates/2024-03-15/readings?tag=error")
	require.Equal(t, http.StatusOK, rec.Code)

	var body readingsResponse
	decode(t, rec, &body)
	assert.Equal(t, domain.TagError, body.Tag)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, [][]string{{"71", "1.4", "2"}, {"75", "1.9", "2"}}, body.Rows)
}

func TestReadingsPresentButEmpty(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/dates/2024-03-16/readings")
	require.Equal(t, http.StatusOK, rec.Code)

	var body readingsResponse
	decode(t, rec, &body)
	assert.Equal(t, 0, body.Count)
	assert.NotNil(t, body.Rows)
}

func TestReadingsAbsentDate(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/dates/2024-01-01/readings")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body APIError
	decode(t, rec, &body)
	assert.Equal(t, CodeNoData, body.ErrorCode)
	assert.Equal(t, "no data for this date", body.Message)
}

func TestReadingsInvalidQuery(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/dates/2024-03-15/readings?tag=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body APIError
	decode(t, rec, &body)
	assert.Equal(t, CodeInvalidQuery, body.ErrorCode)
}

func TestInvalidDateCodeConsistentAcrossRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/dates/2024-13-45/errors",
		"/api/dates/2024-13-45/readings",
		"/api/dates/2024-13-45/readings?tag=bogus",
		"/api/dates/2024-13-45/summary",
	} {
		rec := get(t, s, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)

		var body APIError
		decode(t, rec, &body)
		assert.Equal(t, CodeInvalidDate, body.ErrorCode, path)
	}
}

func TestSummary(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/dates/2024-03-15/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "2024-03-15", body["date"])
	assert.Equal(t, float64(4), body["rows"])
	assert.Contains(t, body, "temp_density")
	assert.Contains(t, body, "correlation")
}

func TestSummaryAbsentDate(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/dates/2024-01-01/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiscards(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/discards")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"discards":[{"path":"kemp-abh-sensor-garbage.csv","reason":"bad date"}]}`, rec.Body.String())
}

func TestIndexPage(t *testing.T) {
	rec := get(t, newTestServer(t), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `href="/dates/2024-03-15"`)
}

func TestDashboardPage(t *testing.T) {
	rec := get(t, newTestServer(t), "/dates/2024-03-15")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Temp vs Current")

	rec = get(t, newTestServer(t), "/dates/2024-01-01")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data for this date")
}

func TestWorkbookDownload(t *testing.T) {
	rec := get(t, newTestServer(t), "/dates/2024-03-15/export.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "2024-03-15.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Error")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	get(t, s, "/api/dates")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lotscope_http_requests_total{code="200",route="/api/dates"} 1`)
}

func TestRequestIDHeaderPropagated(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &logs)
	s := New(newTestCatalog(t), Options{Logger: logger})

	req := httptest.NewRequest(http.MethodGet, "/api/dates", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, logs.String(), `"request_id":"abc-123"`)
	assert.Contains(t, logs.String(), `"msg":"request completed"`)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := config.Default().Server
	cfg.Addr = addr
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- newTestServer(t).Run(ctx, cfg) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.False(t, errors.Is(err, http.ErrServerClosed))
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
