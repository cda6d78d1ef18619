package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/couchcryptid/hazard-alerts/internal/reports"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 << 10

type coordinateQuery struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

type listReportsQuery struct {
	Limit int `json:"limit" validate:"min=1,max=100"`
}

type createReportRequest struct {
	Type        string   `json:"type" validate:"required,oneof=flooding landslide rain river damage other"`
	Description string   `json:"description" validate:"max=1000"`
	Location    string   `json:"location" validate:"max=200"`
	Lat         *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon         *float64 `json:"lon" validate:"omitempty,longitude"`
	HasPhoto    bool     `json:"has_photo"`
	HasAudio    bool     `json:"has_audio"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	geo, err := s.parseCoordinates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err)
		return
	}

	report, err := s.deps.Assessor.Assess(r.Context(), domain.AssessmentRequest{
		RequestID: middleware.GetReqID(r.Context()),
		Lat:       geo.Lat,
		Lon:       geo.Lon,
	})
	if err != nil {
		s.deps.Metrics.Assessments.WithLabelValues("http", "error").Inc()
		s.logger.Error("assessment failed", "lat", geo.Lat, "lon", geo.Lon, "error", err)
		writeError(w, http.StatusBadGateway, "unavailable", err)
		return
	}
	s.deps.Metrics.Assessments.WithLabelValues("http", "success").Inc()
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleConditions(w http.ResponseWriter, r *http.Request) {
	geo, err := s.parseCoordinates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err)
		return
	}

	report, err := s.deps.Assessor.Conditions(r.Context(), geo)
	if err != nil {
		s.logger.Error("conditions lookup failed", "lat", geo.Lat, "lon", geo.Lon, "error", err)
		writeError(w, http.StatusBadGateway, "unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	q := listReportsQuery{Limit: reports.DefaultRecentLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid", fmt.Errorf("limit: %w", err))
			return
		}
		q.Limit = n
	}
	if err := s.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", validationError(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reports": s.deps.Reports.Recent(q.Limit)})
}

func (s *Server) handleReportTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"types": reports.Catalogue})
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", fmt.Errorf("decode body: %w", err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", validationError(err))
		return
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		writeError(w, http.StatusBadRequest, "invalid", errors.New("lat and lon must be sent together"))
		return
	}

	in := reports.NewReport{
		Type:        req.Type,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		HasPhoto:    req.HasPhoto,
		HasAudio:    req.HasAudio,
	}
	if req.Lat != nil && req.Lon != nil {
		in.Geo = &domain.Geo{Lat: *req.Lat, Lon: *req.Lon}
	}

	report, err := s.deps.Reports.Add(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err)
		return
	}
	s.deps.Metrics.IncidentReports.WithLabelValues(report.Type).Inc()
	s.publishReport(r, report)

	writeJSON(w, http.StatusCreated, report)
}

// publishReport forwards a stored report downstream. Failures are logged;
// the report is already stored and the caller still gets 201.
func (s *Server) publishReport(r *http.Request, report reports.Report) {
	if s.deps.Publisher == nil {
		return
	}
	event, err := reports.ToEvent(report)
	if err == nil {
		err = s.deps.Publisher.Publish(r.Context(), event)
	}
	if err != nil {
		s.logger.Warn("publish incident report failed", "report_id", report.ID, "error", err)
	}
}

// parseCoordinates reads lat/lon query parameters. Each missing value falls
// back to the configured default coordinate.
func (s *Server) parseCoordinates(r *http.Request) (domain.Geo, error) {
	q := coordinateQuery{Lat: s.deps.DefaultGeo.Lat, Lon: s.deps.DefaultGeo.Lon}
	params := []struct {
		name string
		dst  *float64
	}{{"lat", &q.Lat}, {"lon", &q.Lon}}
	for _, p := range params {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Geo{}, fmt.Errorf("%s: not a number", p.name)
		}
		*p.dst = v
	}
	if err := s.validate.Struct(q); err != nil {
		return domain.Geo{}, validationError(err)
	}
	return domain.Geo{Lat: q.Lat, Lon: q.Lon}, nil
}

// validationError flattens validator errors into "field: rule" pairs.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fe.Field()+": "+rule)
	}
	return errors.New(strings.Join(parts, "; "))
}

func writeError(w http.ResponseWriter, status int, label string, err error) {
	writeJSON(w, status, map[string]string{
		"status": label,
		"error":  err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
