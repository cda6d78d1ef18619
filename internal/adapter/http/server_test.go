package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/hazard-alerts/internal/adapter/http"
	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/couchcryptid/hazard-alerts/internal/observability"
	"github.com/couchcryptid/hazard-alerts/internal/reports"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultGeo = domain.Geo{Lat: 3.4516, Lon: -76.5320}

// --- mocks ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockAssessor struct {
	err     error
	gotReq  domain.AssessmentRequest
	gotGeo  domain.Geo
	level   domain.Severity
	alerts  []domain.Alert
	current domain.Conditions
}

func (m *mockAssessor) Assess(_ context.Context, req domain.AssessmentRequest) (domain.AlertReport, error) {
	m.gotReq = req
	if m.err != nil {
		return domain.AlertReport{}, m.err
	}
	return domain.AlertReport{
		RequestID: req.RequestID,
		Geo:       req.Geo(),
		Location:  "Cali, Valle del Cauca",
		Level:     m.level,
		Alerts:    m.alerts,
	}, nil
}

func (m *mockAssessor) Conditions(_ context.Context, geo domain.Geo) (domain.ConditionsReport, error) {
	m.gotGeo = geo
	if m.err != nil {
		return domain.ConditionsReport{}, m.err
	}
	return domain.ConditionsReport{Geo: geo, Location: "Cali, Valle del Cauca", Level: m.level, Conditions: m.current}, nil
}

type mockPublisher struct {
	err    error
	events []domain.OutputEvent
}

func (m *mockPublisher) Publish(_ context.Context, event domain.OutputEvent) error {
	m.events = append(m.events, event)
	return m.err
}

type testEnv struct {
	srv       *httpadapter.Server
	assessor  *mockAssessor
	store     *reports.Store
	publisher *mockPublisher
	clock     *clockwork.FakeClock
}

func newTestEnv(readyErr error) *testEnv {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC))
	env := &testEnv{
		assessor:  &mockAssessor{},
		store:     reports.NewStore(clock),
		publisher: &mockPublisher{},
		clock:     clock,
	}
	env.srv = httpadapter.NewServer(":0", httpadapter.Dependencies{
		Ready:      &mockReadiness{err: readyErr},
		Assessor:   env.assessor,
		Reports:    env.store,
		Publisher:  env.publisher,
		DefaultGeo: defaultGeo,
		Metrics:    observability.NewMetricsForTesting(),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return env
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := newTestEnv(nil).do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := newTestEnv(nil).do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := newTestEnv(fmt.Errorf("not ready yet")).do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newTestEnv(nil).do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- alerts ---

func TestAlerts_UsesQueryCoordinates(t *testing.T) {
	env := newTestEnv(nil)
	env.assessor.level = domain.SeverityDanger
	env.assessor.alerts = []domain.Alert{{ID: "heavy_rain-1", Kind: domain.HazardHeavyRain, Level: domain.SeverityDanger, Time: "in 2 hours"}}

	rec := env.do(http.MethodGet, "/v1/alerts?lat=6.2442&lon=-75.5812", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, domain.Geo{Lat: 6.2442, Lon: -75.5812}, env.assessor.gotReq.Geo())
	assert.NotEmpty(t, env.assessor.gotReq.RequestID)

	report := decode[domain.AlertReport](t, rec)
	assert.Equal(t, domain.SeverityDanger, report.Level)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, "in 2 hours", report.Alerts[0].Time)
}

func TestAlerts_DefaultsMissingCoordinates(t *testing.T) {
	env := newTestEnv(nil)

	rec := env.do(http.MethodGet, "/v1/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultGeo, env.assessor.gotReq.Geo())

	rec = env.do(http.MethodGet, "/v1/alerts?lat=4.5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Geo{Lat: 4.5, Lon: defaultGeo.Lon}, env.assessor.gotReq.Geo())
}

func TestAlerts_InvalidCoordinates(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"lat=91&lon=0", "lat: latitude"},
		{"lat=0&lon=-181", "lon: longitude"},
		{"lat=north", "lat: not a number"},
		{"lat=NaN", "lat: latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := newTestEnv(nil).do(http.MethodGet, "/v1/alerts?"+tt.query, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode[map[string]string](t, rec)
			assert.Equal(t, "invalid", body["status"])
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestAlerts_UpstreamFailure(t *testing.T) {
	env := newTestEnv(nil)
	env.assessor.err = errors.New("open-meteo API error: status 503")

	rec := env.do(http.MethodGet, "/v1/alerts", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "unavailable", body["status"])
	assert.Contains(t, body["error"], "status 503")
}

// --- conditions ---

func TestConditions(t *testing.T) {
	env := newTestEnv(nil)
	env.assessor.level = domain.SeverityWarning
	env.assessor.current = domain.Conditions{TemperatureC: 26.4, WeatherCode: 61, Weather: "Slight rain", Category: domain.WeatherRain}

	rec := env.do(http.MethodGet, "/v1/conditions?lat=3.5&lon=-76.5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Geo{Lat: 3.5, Lon: -76.5}, env.assessor.gotGeo)

	report := decode[domain.ConditionsReport](t, rec)
	assert.Equal(t, domain.SeverityWarning, report.Level)
	assert.Equal(t, "Slight rain", report.Conditions.Weather)
	assert.Equal(t, domain.WeatherRain, report.Conditions.Category)
}

func TestConditions_UpstreamFailure(t *testing.T) {
	env := newTestEnv(nil)
	env.assessor.err = errors.New("timeout")

	rec := env.do(http.MethodGet, "/v1/conditions", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// --- reports ---

func TestCreateReport(t *testing.T) {
	env := newTestEnv(nil)

	rec := env.do(http.MethodPost, "/v1/reports", `{
		"type": "flooding",
		"description": "  Nivel de agua alto en la calle principal ",
		"location": "El Hormiguero, Valle del Cauca",
		"lat": 3.35, "lon": -76.49,
		"has_photo": true
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	report := decode[reports.Report](t, rec)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "Inundación", report.TypeLabel)
	assert.Equal(t, "Nivel de agua alto en la calle principal", report.Description)
	assert.Equal(t, &domain.Geo{Lat: 3.35, Lon: -76.49}, report.Geo)
	assert.True(t, report.HasPhoto)
	assert.Equal(t, 1, report.ReportCount)

	require.Len(t, env.publisher.events, 1)
	assert.Equal(t, []byte(report.ID), env.publisher.events[0].Key)
	assert.Len(t, env.store.Recent(10), 1)
}

func TestCreateReport_PublishFailureStillStores(t *testing.T) {
	env := newTestEnv(nil)
	env.publisher.err = errors.New("broker down")

	rec := env.do(http.MethodPost, "/v1/reports", `{"type": "rain"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, env.store.Recent(10), 1)
}

func TestCreateReport_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing type", `{"description": "x"}`, "type: required"},
		{"unknown type", `{"type": "earthquake"}`, "type: oneof"},
		{"bad latitude", `{"type": "rain", "lat": 95, "lon": 0}`, "lat: latitude"},
		{"lat without lon", `{"type": "rain", "lat": 3.4}`, "sent together"},
		{"unknown field", `{"type": "rain", "severity": "high"}`, "unknown field"},
		{"not json", `{`, "decode body"},
		{"long description", `{"type": "rain", "description": "` + strings.Repeat("a", 1001) + `"}`, "description: max=1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(nil)
			rec := env.do(http.MethodPost, "/v1/reports", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode[map[string]string](t, rec)
			assert.Contains(t, body["error"], tt.want)
			assert.Empty(t, env.store.Recent(10))
			assert.Empty(t, env.publisher.events)
		})
	}
}

func TestListReports(t *testing.T) {
	env := newTestEnv(nil)
	for _, typ := range []string{"rain", "river", "damage"} {
		_, err := env.store.Add(reports.NewReport{Type: typ})
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
	}

	rec := env.do(http.MethodGet, "/v1/reports?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Reports []reports.Report `json:"reports"`
	}](t, rec)
	require.Len(t, body.Reports, 2)
	assert.Equal(t, "damage", body.Reports[0].Type)
	assert.Equal(t, "river", body.Reports[1].Type)

	rec = env.do(http.MethodGet, "/v1/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct {
		Reports []reports.Report `json:"reports"`
	}](t, rec).Reports, 3)
}

func TestListReports_InvalidLimit(t *testing.T) {
	for _, limit := range []string{"0", "101", "ten"} {
		rec := newTestEnv(nil).do(http.MethodGet, "/v1/reports?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestReportTypes(t *testing.T) {
	rec := newTestEnv(nil).do(http.MethodGet, "/v1/reports/types", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Types []reports.IncidentType `json:"types"`
	}](t, rec)
	assert.Equal(t, reports.Catalogue, body.Types)
}
