package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCoordinates is returned for latitude/longitude outside WGS-84 bounds.
var ErrInvalidCoordinates = errors.New("coordinates out of range")

// ParseAssessmentRequest deserializes a RawEvent's value into an
// AssessmentRequest. The message key is used as the request ID when the
// payload does not carry one.
func ParseAssessmentRequest(raw RawEvent) (AssessmentRequest, error) {
	var req AssessmentRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return AssessmentRequest{}, fmt.Errorf("parse assessment request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = string(raw.Key)
	}
	if !req.Geo().Valid() {
		return AssessmentRequest{}, fmt.Errorf("parse assessment request %q: %w", req.RequestID, ErrInvalidCoordinates)
	}
	return req, nil
}

// SerializeAlertReport marshals a report for the alert topic. The key is the
// request ID so all reports for one request land on the same partition.
func SerializeAlertReport(report AlertReport) (OutputEvent, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize alert report: %w", err)
	}
	return OutputEvent{
		Key:   []byte(report.RequestID),
		Value: data,
		Headers: map[string]string{
			"level":        report.Level.String(),
			"generated_at": report.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}
