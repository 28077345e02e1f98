package ai

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/HammerMeetNail/ecobuddy/internal/models"
)

const tipCount = 3

// BuildPrompt renders the instruction sent to the model. Input values are
// written with the shortest decimal form that parses back to the same
// float64, so the prompt reflects exactly what the estimate used.
func BuildPrompt(inputs models.LifestyleInputs, total float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI Sustainability Agent. Based on this user's data, give %d tips to reduce their carbon footprint:\n", tipCount)
	fmt.Fprintf(&b, "- Daily travel: %s km\n", formatNumber(inputs.DailyTravelKm))
	fmt.Fprintf(&b, "- Electricity: %s kWh/month\n", formatNumber(inputs.MonthlyElectricityKwh))
	fmt.Fprintf(&b, "- Meat meals: %s/week\n", formatNumber(inputs.WeeklyMeatMeals))
	fmt.Fprintf(&b, "- Flights: %s/year\n", formatNumber(inputs.FlightsPerYear))
	fmt.Fprintf(&b, "- Shopping: %s\n", inputs.ShoppingFrequency)
	fmt.Fprintf(&b, "- Estimated monthly emissions: %.2f %s\n", total, models.EmissionsUnit)
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
