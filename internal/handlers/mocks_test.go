package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/ecobuddy/internal/models"
	"github.com/HammerMeetNail/ecobuddy/internal/services"
)

type mockReportGenerator struct {
	GenerateFunc func(ctx context.Context, surface services.Surface, inputs models.LifestyleInputs) (*models.Report, error)
	FactorsFunc  func() services.EmissionFactors

	lastSurface services.Surface
	lastInputs  models.LifestyleInputs
	calls       int
}

func (m *mockReportGenerator) Generate(ctx context.Context, surface services.Surface, inputs models.LifestyleInputs) (*models.Report, error) {
	m.calls++
	m.lastSurface = surface
	m.lastInputs = inputs
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, surface, inputs)
	}
	return estimatedReport(inputs, models.SuggestionResult{Text: "1. Walk\n2. Insulate\n3. Eat greens"})
}

func (m *mockReportGenerator) Factors() services.EmissionFactors {
	if m.FactorsFunc != nil {
		return m.FactorsFunc()
	}
	return services.DefaultFactors()
}

// estimatedReport runs the real estimator so handler tests see real totals.
func estimatedReport(inputs models.LifestyleInputs, suggestions models.SuggestionResult) (*models.Report, error) {
	if err := inputs.Validate(); err != nil {
		return nil, err
	}
	emissions, err := services.Estimate(inputs, services.DefaultFactors())
	if err != nil {
		return nil, err
	}
	return &models.Report{
		ID:          uuid.MustParse("6f1c2d3e-4b5a-4c7d-8e9f-0a1b2c3d4e5f"),
		Inputs:      inputs,
		Emissions:   emissions,
		Suggestions: suggestions,
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}
