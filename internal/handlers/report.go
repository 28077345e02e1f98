package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/ecobuddy/internal/models"
	"github.com/HammerMeetNail/ecobuddy/internal/services"
)

// MaxReportBodyBytes caps report request bodies, JSON or form encoded.
const MaxReportBodyBytes = 4 * 1024

// ReportGenerator is the subset of *services.ReportService the handlers use.
type ReportGenerator interface {
	Generate(ctx context.Context, surface services.Surface, inputs models.LifestyleInputs) (*models.Report, error)
	Factors() services.EmissionFactors
}

type ReportHandler struct {
	reports ReportGenerator
}

func NewReportHandler(reports ReportGenerator) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// ReportRequest mirrors models.LifestyleInputs. Pointer fields distinguish
// an omitted value from an explicit zero.
type ReportRequest struct {
	DailyTravelKm         *float64 `json:"daily_travel_km"`
	MonthlyElectricityKwh *float64 `json:"monthly_electricity_kwh"`
	WeeklyMeatMeals       *float64 `json:"weekly_meat_meals"`
	FlightsPerYear        *float64 `json:"flights_per_year"`
	ShoppingFrequency     string   `json:"shopping_frequency"`
}

type BreakdownResponse struct {
	Car         float64 `json:"car"`
	Electricity float64 `json:"electricity"`
	Meat        float64 `json:"meat"`
	Flights     float64 `json:"flights"`
	Shopping    float64 `json:"shopping"`
}

type ReportResponse struct {
	ID           uuid.UUID               `json:"id"`
	Inputs       models.LifestyleInputs  `json:"inputs"`
	TotalKgCO2   float64                 `json:"total_kg_co2"`
	TotalDisplay string                  `json:"total_display"`
	Breakdown    BreakdownResponse       `json:"breakdown"`
	Suggestions  models.SuggestionResult `json:"suggestions"`
	GeneratedAt  time.Time               `json:"generated_at"`
}

// inputs fills omitted fields from models.DefaultInputs, matching the
// pre-filled web form.
func (req ReportRequest) inputs() (models.LifestyleInputs, error) {
	in := models.DefaultInputs()
	if req.DailyTravelKm != nil {
		in.DailyTravelKm = *req.DailyTravelKm
	}
	if req.MonthlyElectricityKwh != nil {
		in.MonthlyElectricityKwh = *req.MonthlyElectricityKwh
	}
	if req.WeeklyMeatMeals != nil {
		in.WeeklyMeatMeals = *req.WeeklyMeatMeals
	}
	if req.FlightsPerYear != nil {
		in.FlightsPerYear = *req.FlightsPerYear
	}
	if req.ShoppingFrequency != "" {
		freq, err := models.ParseShoppingFrequency(req.ShoppingFrequency)
		if err != nil {
			return models.LifestyleInputs{}, err
		}
		in.ShoppingFrequency = freq
	}
	return in, nil
}

func roundBreakdown(b models.EmissionsBreakdown) BreakdownResponse {
	return BreakdownResponse{
		Car:         models.Round2(b.Car),
		Electricity: models.Round2(b.Electricity),
		Meat:        models.Round2(b.Meat),
		Flights:     models.Round2(b.Flights),
		Shopping:    models.Round2(b.Shopping),
	}
}

func newReportResponse(report *models.Report) ReportResponse {
	return ReportResponse{
		ID:           report.ID,
		Inputs:       report.Inputs,
		TotalKgCO2:   report.Emissions.Rounded(),
		TotalDisplay: report.Emissions.FormatTotal(),
		Breakdown:    roundBreakdown(report.Emissions.Breakdown),
		Suggestions:  report.Suggestions,
		GeneratedAt:  report.GeneratedAt,
	}
}

// Create handles POST /api/report. Only JSON bodies are accepted, which also
// keeps cross-site form posts away from this route.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req ReportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxReportBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Request body is required")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inputs, err := req.inputs()
	if err != nil {
		writeError(w, http.StatusBadRequest, inputErrorMessage(err))
		return
	}

	report, err := h.reports.Generate(r.Context(), services.SurfaceAPI, inputs)
	if err != nil {
		if isInputError(err) {
			writeError(w, http.StatusBadRequest, inputErrorMessage(err))
			return
		}
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, newReportResponse(report))
}

// Factors handles GET /api/factors.
func (h *ReportHandler) Factors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reports.Factors())
}

func isInputError(err error) bool {
	return errors.Is(err, models.ErrNegativeInput) ||
		errors.Is(err, models.ErrInvalidCategory) ||
		errors.Is(err, models.ErrOutOfRange)
}

func inputErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidCategory):
		return "Shopping frequency must be one of Rarely, Monthly or Weekly."
	case errors.Is(err, models.ErrNegativeInput):
		return "Inputs must be finite numbers of zero or more."
	case errors.Is(err, models.ErrOutOfRange):
		return "Inputs are too large to estimate."
	default:
		return "Invalid input."
	}
}
