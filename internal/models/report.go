package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

const EmissionsUnit = "kg CO₂"

// EmissionsBreakdown holds the monthly kg CO2e contribution of each activity.
type EmissionsBreakdown struct {
	Car         float64 `json:"car"`
	Electricity float64 `json:"electricity"`
	Meat        float64 `json:"meat"`
	Flights     float64 `json:"flights"`
	Shopping    float64 `json:"shopping"`
}

// EmissionsReport is the estimated monthly footprint. TotalKgCO2 is kept
// unrounded; use Rounded or FormatTotal for display.
type EmissionsReport struct {
	TotalKgCO2 float64            `json:"total_kg_co2"`
	Breakdown  EmissionsBreakdown `json:"breakdown"`
}

// maxRoundable is the magnitude above which float64 has no fractional
// digits left to round.
const maxRoundable = 1 << 52

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	if math.Abs(v) >= maxRoundable {
		return v
	}
	return math.Round(v*100) / 100
}

// Rounded returns the total rounded to two decimal places.
func (r EmissionsReport) Rounded() float64 {
	return Round2(r.TotalKgCO2)
}

// FormatTotal renders the rounded total as shown to users, e.g.
// "403.45 kg CO₂".
func (r EmissionsReport) FormatTotal() string {
	return fmt.Sprintf("%.2f %s", r.Rounded(), EmissionsUnit)
}

// SuggestionResult carries either generated tips or the reason there are none.
type SuggestionResult struct {
	Text         string `json:"text,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

func (s SuggestionResult) Failed() bool {
	return s.ErrorMessage != ""
}

// Report is the response to a single "Generate Report" action. It is built
// per request and never stored.
type Report struct {
	ID          uuid.UUID        `json:"id"`
	Inputs      LifestyleInputs  `json:"inputs"`
	Emissions   EmissionsReport  `json:"emissions"`
	Suggestions SuggestionResult `json:"suggestions"`
	GeneratedAt time.Time        `json:"generated_at"`
}
