package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/couchcryptid/hazard-alerts/internal/observability"
)

// ReportAssessor produces an alert report for one request. *Assessor implements it.
type ReportAssessor interface {
	Assess(ctx context.Context, req domain.AssessmentRequest) (domain.AlertReport, error)
}

// AssessmentTransformer implements Transformer: it parses an assessment
// request, evaluates it and serializes the resulting report.
type AssessmentTransformer struct {
	assessor ReportAssessor
	metrics  *observability.Metrics
}

// NewTransformer creates an AssessmentTransformer.
func NewTransformer(assessor ReportAssessor, metrics *observability.Metrics) *AssessmentTransformer {
	return &AssessmentTransformer{assessor: assessor, metrics: metrics}
}

func (t *AssessmentTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseAssessmentRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	report, err := t.assessor.Assess(ctx, req)
	if err != nil {
		t.metrics.Assessments.WithLabelValues("kafka", "error").Inc()
		return domain.OutputEvent{}, fmt.Errorf("assess request %q: %w", req.RequestID, err)
	}
	t.metrics.Assessments.WithLabelValues("kafka", "success").Inc()

	return domain.SerializeAlertReport(report)
}
