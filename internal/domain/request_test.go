package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssessmentRequest(t *testing.T) {
	t.Run("payload with request id", func(t *testing.T) {
		raw := RawEvent{Key: []byte("key-1"), Value: []byte(`{"request_id":"req-9","lat":3.4516,"lon":-76.532}`)}
		req, err := ParseAssessmentRequest(raw)

		require.NoError(t, err)
		assert.Equal(t, "req-9", req.RequestID)
		assert.Equal(t, 3.4516, req.Lat)
		assert.Equal(t, -76.532, req.Lon)
	})

	t.Run("key used when request id missing", func(t *testing.T) {
		raw := RawEvent{Key: []byte("key-2"), Value: []byte(`{"lat":6.25,"lon":-75.56}`)}
		req, err := ParseAssessmentRequest(raw)

		require.NoError(t, err)
		assert.Equal(t, "key-2", req.RequestID)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseAssessmentRequest(RawEvent{Value: []byte("{invalid json")})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse assessment request")
	})

	t.Run("coordinates out of range", func(t *testing.T) {
		_, err := ParseAssessmentRequest(RawEvent{Value: []byte(`{"lat":123,"lon":0}`)})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCoordinates)
	})
}

func TestSerializeAlertReport(t *testing.T) {
	generated := time.Date(2024, time.October, 14, 9, 0, 0, 0, time.UTC)
	report := AlertReport{
		RequestID:   "req-1",
		Geo:         Geo{Lat: 3.45, Lon: -76.53},
		Location:    testLocation,
		GeneratedAt: generated,
		Level:       SeverityDanger,
		Alerts:      []Alert{{ID: "thunderstorm-1", Kind: HazardThunderstorm, Level: SeverityDanger, Time: "now"}},
	}

	out, err := SerializeAlertReport(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("req-1"), out.Key)
	assert.Equal(t, "danger", out.Headers["level"])
	assert.Equal(t, generated.Format(time.RFC3339), out.Headers["generated_at"])

	var roundtrip AlertReport
	require.NoError(t, json.Unmarshal(out.Value, &roundtrip))
	assert.Equal(t, report.Location, roundtrip.Location)
	assert.Equal(t, SeverityDanger, roundtrip.Level)
	require.Len(t, roundtrip.Alerts, 1)
	assert.Equal(t, HazardThunderstorm, roundtrip.Alerts[0].Kind)
}
