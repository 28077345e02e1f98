package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HammerMeetNail/ecobuddy/internal/assets"
	"github.com/HammerMeetNail/ecobuddy/internal/logging"
	"github.com/HammerMeetNail/ecobuddy/internal/middleware"
	"github.com/HammerMeetNail/ecobuddy/internal/models"
	"github.com/HammerMeetNail/ecobuddy/internal/services"
)

const formUnreadableMessage = "The form could not be read. Please try again."

type PageHandler struct {
	templates *template.Template
	reports   ReportGenerator
}

// NewPageHandler parses every template in templatesDir. manifest may be nil,
// in which case static assets are linked by their unhashed names.
func NewPageHandler(templatesDir string, manifest *assets.Manifest, reports ReportGenerator) (*PageHandler, error) {
	templates, err := template.New("").
		Funcs(template.FuncMap{"asset": manifest.Path}).
		ParseGlob(filepath.Join(templatesDir, "*.html"))
	if err != nil {
		return nil, err
	}

	return &PageHandler{templates: templates, reports: reports}, nil
}

// FormValues holds the form fields exactly as the user typed them, so a
// rejected submission re-renders unchanged.
type FormValues struct {
	DailyTravelKm         string
	MonthlyElectricityKwh string
	WeeklyMeatMeals       string
	FlightsPerYear        string
	ShoppingFrequency     string
}

type BreakdownRow struct {
	Label string
	Value string
}

type ReportView struct {
	TotalDisplay    string
	Breakdown       []BreakdownRow
	Suggestions     string
	SuggestionError string
}

type PageData struct {
	Title           string
	CSRFToken       string
	Form            FormValues
	ShoppingOptions []models.ShoppingFrequency
	Error           string
	Report          *ReportView
}

func formValuesFrom(in models.LifestyleInputs) FormValues {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return FormValues{
		DailyTravelKm:         format(in.DailyTravelKm),
		MonthlyElectricityKwh: format(in.MonthlyElectricityKwh),
		WeeklyMeatMeals:       format(in.WeeklyMeatMeals),
		FlightsPerYear:        format(in.FlightsPerYear),
		ShoppingFrequency:     string(in.ShoppingFrequency),
	}
}

func (h *PageHandler) pageData(r *http.Request, form FormValues) PageData {
	return PageData{
		Title:           "EcoBuddy - Your AI Carbon Footprint Guide",
		CSRFToken:       middleware.CSRFTokenFromContext(r.Context()),
		Form:            form,
		ShoppingOptions: models.ShoppingFrequencies,
	}
}

// Index renders the input form pre-filled with the default inputs.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFound(w, r)
		return
	}
	h.render(w, http.StatusOK, "index.html", h.pageData(r, formValuesFrom(models.DefaultInputs())))
}

// Report handles the form submission. Invalid inputs re-render the form
// with an inline error; a failed suggestion request still shows the total.
// The body size limit is applied by the router, ahead of CSRF checks.
func (h *PageHandler) Report(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		data := h.pageData(r, formValuesFrom(models.DefaultInputs()))
		data.Error = formUnreadableMessage
		h.render(w, http.StatusBadRequest, "index.html", data)
		return
	}

	form := submittedForm(r)
	data := h.pageData(r, form)

	inputs, err := parseForm(form)
	if err != nil {
		data.Error = err.Error()
		h.render(w, http.StatusBadRequest, "index.html", data)
		return
	}

	report, err := h.reports.Generate(r.Context(), services.SurfaceWeb, inputs)
	if err != nil {
		if isInputError(err) {
			data.Error = inputErrorMessage(err)
			h.render(w, http.StatusBadRequest, "index.html", data)
			return
		}
		logging.Error("Report generation failed", map[string]interface{}{"error": err.Error()})
		h.InternalError(w, r)
		return
	}

	data.Report = newReportView(report)
	h.render(w, http.StatusOK, "index.html", data)
}

// CSRFFailed re-renders the form when a submission is rejected before it
// reaches Report, usually because the CSRF cookie expired.
func (h *PageHandler) CSRFFailed(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.Warn("Form submission rejected", map[string]interface{}{
		"status": status,
		"reason": message,
	})

	if status == http.StatusRequestEntityTooLarge {
		data := h.pageData(r, formValuesFrom(models.DefaultInputs()))
		data.Error = formUnreadableMessage
		h.render(w, status, "index.html", data)
		return
	}

	data := h.pageData(r, submittedForm(r))
	data.Error = "Your session expired. Please submit the form again."
	h.render(w, status, "index.html", data)
}

func submittedForm(r *http.Request) FormValues {
	return FormValues{
		DailyTravelKm:         strings.TrimSpace(r.PostFormValue("daily_travel_km")),
		MonthlyElectricityKwh: strings.TrimSpace(r.PostFormValue("monthly_electricity_kwh")),
		WeeklyMeatMeals:       strings.TrimSpace(r.PostFormValue("weekly_meat_meals")),
		FlightsPerYear:        strings.TrimSpace(r.PostFormValue("flights_per_year")),
		ShoppingFrequency:     strings.TrimSpace(r.PostFormValue("shopping_frequency")),
	}
}

func newReportView(report *models.Report) *ReportView {
	b := report.Emissions.Breakdown
	row := func(label string, v float64) BreakdownRow {
		return BreakdownRow{Label: label, Value: fmt.Sprintf("%.2f %s", v, models.EmissionsUnit)}
	}
	return &ReportView{
		TotalDisplay: report.Emissions.FormatTotal(),
		Breakdown: []BreakdownRow{
			row("Car travel", b.Car),
			row("Electricity", b.Electricity),
			row("Meat meals", b.Meat),
			row("Flights", b.Flights),
			row("Shopping", b.Shopping),
		},
		Suggestions:     report.Suggestions.Text,
		SuggestionError: report.Suggestions.ErrorMessage,
	}
}

// parseForm converts submitted strings into inputs. Range checks are left
// to LifestyleInputs.Validate.
func parseForm(form FormValues) (models.LifestyleInputs, error) {
	var in models.LifestyleInputs
	fields := []struct {
		label string
		raw   string
		dst   *float64
	}{
		{"Daily travel", form.DailyTravelKm, &in.DailyTravelKm},
		{"Monthly electricity", form.MonthlyElectricityKwh, &in.MonthlyElectricityKwh},
		{"Weekly meat meals", form.WeeklyMeatMeals, &in.WeeklyMeatMeals},
		{"Flights per year", form.FlightsPerYear, &in.FlightsPerYear},
	}
	for _, f := range fields {
		if f.raw == "" {
			return in, fmt.Errorf("%s is required.", f.label)
		}
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return in, fmt.Errorf("%s must be a number.", f.label)
		}
		*f.dst = v
	}

	if form.ShoppingFrequency == "" {
		return in, errors.New("Shopping frequency is required.")
	}
	freq, err := models.ParseShoppingFrequency(form.ShoppingFrequency)
	if err != nil {
		return in, errors.New(inputErrorMessage(err))
	}
	in.ShoppingFrequency = freq
	return in, nil
}

// render executes into a buffer first so a template failure can still
// produce a clean 500 instead of a half-written page.
func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logging.Error("Template render failed", map[string]interface{}{
			"template": name,
			"error":    err.Error(),
		})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// NotFound renders the 404 error page.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err := h.templates.ExecuteTemplate(w, "404.html", nil); err != nil {
		http.Error(w, "Page not found", http.StatusNotFound)
	}
}

// InternalError renders the 500 error page.
func (h *PageHandler) InternalError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if err := h.templates.ExecuteTemplate(w, "500.html", nil); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
