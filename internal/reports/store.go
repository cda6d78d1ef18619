// Package reports keeps community incident reports in memory.
package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultRecentLimit is the number of reports Recent returns for a non-positive limit.
const DefaultRecentLimit = 10

// ErrInvalidReport is returned when a report names an unknown incident type.
var ErrInvalidReport = errors.New("invalid incident report")

// IncidentType describes one selectable kind of incident.
type IncidentType struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// Catalogue lists the accepted incident types in display order.
var Catalogue = []IncidentType{
	{ID: "flooding", Label: "Inundación", Icon: "🌊"},
	{ID: "landslide", Label: "Deslizamiento", Icon: "⛰️"},
	{ID: "rain", Label: "Lluvia fuerte", Icon: "🌧️"},
	{ID: "river", Label: "Río crecido", Icon: "🏞️"},
	{ID: "damage", Label: "Daño estructural", Icon: "🏚️"},
	{ID: "other", Label: "Otro", Icon: "📝"},
}

// LookupType returns the catalogue entry for id.
func LookupType(id string) (IncidentType, bool) {
	for _, t := range Catalogue {
		if t.ID == id {
			return t, true
		}
	}
	return IncidentType{}, false
}

// NewReport is the caller-supplied part of a report.
type NewReport struct {
	Type        string
	Description string
	Location    string
	Geo         *domain.Geo
	HasPhoto    bool
	HasAudio    bool
}

// Report is a stored incident report.
type Report struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	TypeLabel   string      `json:"type_label"`
	Icon        string      `json:"icon"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	Geo         *domain.Geo `json:"geo,omitempty"`
	HasPhoto    bool        `json:"has_photo"`
	HasAudio    bool        `json:"has_audio"`
	Timestamp   time.Time   `json:"timestamp"`
	ReportCount int         `json:"report_count"`
}

// Store is a mutex-guarded in-memory report list. Contents do not survive restarts.
type Store struct {
	mu      sync.RWMutex
	reports []Report
	clock   clockwork.Clock
}

// NewStore creates an empty store stamping reports with clock.
func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{clock: clock}
}

// Add stores a report, assigning its ID, labels and timestamp.
func (s *Store) Add(in NewReport) (Report, error) {
	t, ok := LookupType(in.Type)
	if !ok {
		return Report{}, fmt.Errorf("%w: unknown type %q", ErrInvalidReport, in.Type)
	}

	r := Report{
		ID:          uuid.NewString(),
		Type:        t.ID,
		TypeLabel:   t.Label,
		Icon:        t.Icon,
		Description: in.Description,
		Location:    in.Location,
		Geo:         in.Geo,
		HasPhoto:    in.HasPhoto,
		HasAudio:    in.HasAudio,
		Timestamp:   s.clock.Now(),
		ReportCount: 1,
	}

	s.mu.Lock()
	s.reports = append(s.reports, r)
	s.mu.Unlock()
	return r, nil
}

// All returns every report, newest first. Reports with equal timestamps
// are returned most recently added first.
func (s *Store) All() []Report {
	s.mu.RLock()
	out := make([]Report, len(s.reports))
	for i, r := range s.reports {
		out[len(s.reports)-1-i] = r
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b Report) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// Recent returns at most limit reports, newest first.
func (s *Store) Recent(limit int) []Report {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	all := s.All()
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// ToEvent serializes a report for the incident report topic, keyed by report ID.
func ToEvent(r Report) (domain.OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize incident report: %w", err)
	}
	return domain.OutputEvent{
		Key:   []byte(r.ID),
		Value: data,
		Headers: map[string]string{
			"type":      r.Type,
			"timestamp": r.Timestamp.Format(time.RFC3339),
		},
	}, nil
}
