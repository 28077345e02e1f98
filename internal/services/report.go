package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/ecobuddy/internal/logging"
	"github.com/HammerMeetNail/ecobuddy/internal/metrics"
	"github.com/HammerMeetNail/ecobuddy/internal/models"
	"github.com/HammerMeetNail/ecobuddy/internal/services/ai"
)

// Surface names the entry point a report was requested from, for metrics.
type Surface string

const (
	SurfaceWeb Surface = "web"
	SurfaceAPI Surface = "api"
	SurfaceCLI Surface = "cli"
)

// ReportService turns lifestyle inputs into a full report: the estimate
// plus model-generated suggestions. It holds no per-request state and is
// safe for concurrent use.
type ReportService struct {
	factors EmissionFactors
	client  ai.LanguageModelClient
	now     func() time.Time
}

// NewReportService creates a service using factors and client. A nil client
// yields reports whose suggestions carry a "not configured" message.
func NewReportService(factors EmissionFactors, client ai.LanguageModelClient) *ReportService {
	return &ReportService{
		factors: factors,
		client:  client,
		now:     time.Now,
	}
}

func (s *ReportService) Factors() EmissionFactors {
	return s.factors
}

// Estimate validates inputs and computes the emissions only.
func (s *ReportService) Estimate(inputs models.LifestyleInputs) (models.EmissionsReport, error) {
	if err := inputs.Validate(); err != nil {
		metrics.ReportsRejected.Inc()
		return models.EmissionsReport{}, err
	}
	report, err := Estimate(inputs, s.factors)
	if err != nil {
		metrics.ReportsRejected.Inc()
		return models.EmissionsReport{}, err
	}
	return report, nil
}

// Generate validates inputs, estimates emissions and requests suggestions.
// The returned error is non-nil only for invalid inputs; a failed
// suggestion request is reported inside the Report.
func (s *ReportService) Generate(ctx context.Context, surface Surface, inputs models.LifestyleInputs) (*models.Report, error) {
	emissions, err := s.Estimate(inputs)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:          uuid.New(),
		Inputs:      inputs,
		Emissions:   emissions,
		GeneratedAt: s.now().UTC(),
	}

	metrics.ReportsGenerated.WithLabelValues(string(surface), string(inputs.ShoppingFrequency)).Inc()
	metrics.ReportTotalKgCO2.Observe(emissions.TotalKgCO2)

	ctx = ai.WithReportID(ctx, report.ID)
	report.Suggestions = ai.RequestSuggestions(ctx, inputs, emissions.TotalKgCO2, s.client)

	outcome := "success"
	if report.Suggestions.Failed() {
		outcome = "error"
	}
	metrics.SuggestionOutcomes.WithLabelValues(outcome).Inc()

	logging.Info("Report generated", map[string]interface{}{
		"report_id":         report.ID.String(),
		"surface":           string(surface),
		"total_kg_co2":      emissions.Rounded(),
		"suggestion_status": outcome,
	})

	return report, nil
}
