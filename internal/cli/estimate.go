package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/ecobuddy/internal/models"
	"github.com/HammerMeetNail/ecobuddy/internal/services"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// EstimateParams holds the flag values of the estimate command.
type EstimateParams struct {
	TravelKm       float64
	ElectricityKwh float64
	MeatMeals      float64
	Flights        float64
	Shopping       string
	Suggest        bool
	Output         string
}

type estimateOutput struct {
	ID           *uuid.UUID                `json:"id,omitempty"`
	Inputs       models.LifestyleInputs    `json:"inputs"`
	TotalKgCO2   float64                   `json:"total_kg_co2"`
	TotalDisplay string                    `json:"total_display"`
	Breakdown    models.EmissionsBreakdown `json:"breakdown"`
	Suggestions  *models.SuggestionResult  `json:"suggestions,omitempty"`
}

// NewEstimateCmd creates the "estimate" subcommand. Flags default to the
// same values the web form is pre-filled with.
func NewEstimateCmd(newClient ClientFactory) *cobra.Command {
	defaults := models.DefaultInputs()
	params := EstimateParams{Output: outputText}

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate monthly emissions from lifestyle inputs",
		Long: `Estimate monthly CO₂ emissions from travel, electricity, diet, flights
and shopping habits.

Examples:
  # Estimate with the default inputs
  ecobuddy estimate

  # Custom inputs plus Gemini suggestions
  ecobuddy estimate --travel-km 40 --flights 6 --shopping weekly --suggest

  # Machine-readable output
  ecobuddy estimate --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEstimate(cmd, params, newClient)
		},
	}

	cmd.Flags().Float64Var(&params.TravelKm, "travel-km", defaults.DailyTravelKm, "Daily travel by car (km)")
	cmd.Flags().Float64Var(&params.ElectricityKwh, "electricity-kwh", defaults.MonthlyElectricityKwh, "Monthly electricity usage (kWh)")
	cmd.Flags().Float64Var(&params.MeatMeals, "meat-meals", defaults.WeeklyMeatMeals, "Meat meals per week")
	cmd.Flags().Float64Var(&params.Flights, "flights", defaults.FlightsPerYear, "Short-haul flights per year")
	cmd.Flags().StringVar(&params.Shopping, "shopping", string(defaults.ShoppingFrequency), "Shopping frequency (Rarely, Monthly, Weekly)")
	cmd.Flags().BoolVar(&params.Suggest, "suggest", false, "Ask Gemini for three reduction tips")
	cmd.Flags().StringVarP(&params.Output, "output", "o", outputText, "Output format (text, json)")

	return cmd
}

func (p EstimateParams) inputs() (models.LifestyleInputs, error) {
	freq, err := models.ParseShoppingFrequency(p.Shopping)
	if err != nil {
		return models.LifestyleInputs{}, err
	}
	in := models.LifestyleInputs{
		DailyTravelKm:         p.TravelKm,
		MonthlyElectricityKwh: p.ElectricityKwh,
		WeeklyMeatMeals:       p.MeatMeals,
		FlightsPerYear:        p.Flights,
		ShoppingFrequency:     freq,
	}
	return in, in.Validate()
}

func runEstimate(cmd *cobra.Command, params EstimateParams, newClient ClientFactory) error {
	output := strings.ToLower(params.Output)
	if output != outputText && output != outputJSON {
		return fmt.Errorf("unsupported output format %q (use text or json)", params.Output)
	}

	inputs, err := params.inputs()
	if err != nil {
		return fmt.Errorf("invalid inputs: %w", err)
	}

	var out estimateOutput
	if params.Suggest {
		client, err := newClient()
		if err != nil {
			return fmt.Errorf("configuring Gemini client: %w", err)
		}
		report, err := services.NewReportService(services.DefaultFactors(), client).Generate(cmd.Context(), services.SurfaceCLI, inputs)
		if err != nil {
			return fmt.Errorf("generating report: %w", err)
		}
		out = newEstimateOutput(inputs, report.Emissions)
		out.ID = &report.ID
		out.Suggestions = &report.Suggestions
	} else {
		emissions, err := services.NewReportService(services.DefaultFactors(), nil).Estimate(inputs)
		if err != nil {
			return fmt.Errorf("estimating emissions: %w", err)
		}
		out = newEstimateOutput(inputs, emissions)
	}

	if output == outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return renderText(cmd.OutOrStdout(), out)
}

func newEstimateOutput(inputs models.LifestyleInputs, e models.EmissionsReport) estimateOutput {
	return estimateOutput{
		Inputs:       inputs,
		TotalKgCO2:   e.Rounded(),
		TotalDisplay: e.FormatTotal(),
		Breakdown: models.EmissionsBreakdown{
			Car:         models.Round2(e.Breakdown.Car),
			Electricity: models.Round2(e.Breakdown.Electricity),
			Meat:        models.Round2(e.Breakdown.Meat),
			Flights:     models.Round2(e.Breakdown.Flights),
			Shopping:    models.Round2(e.Breakdown.Shopping),
		},
	}
}

func renderText(w io.Writer, out estimateOutput) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimated Monthly Emissions: %s\n\n", out.TotalDisplay)

	rows := []struct {
		label string
		value float64
	}{
		{"Car travel", out.Breakdown.Car},
		{"Electricity", out.Breakdown.Electricity},
		{"Meat meals", out.Breakdown.Meat},
		{"Flights", out.Breakdown.Flights},
		{"Shopping", out.Breakdown.Shopping},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "  %-12s %10.2f %s\n", r.label, r.value, models.EmissionsUnit)
	}

	if s := out.Suggestions; s != nil {
		if s.Failed() {
			fmt.Fprintf(&b, "\n%s\n", s.ErrorMessage)
		} else {
			fmt.Fprintf(&b, "\nPersonalized Suggestions:\n%s\n", s.Text)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
