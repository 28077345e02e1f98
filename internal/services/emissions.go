package services

import (
	"fmt"
	"math"

	"github.com/HammerMeetNail/ecobuddy/internal/models"
)

const (
	daysPerMonth  = 30
	weeksPerMonth = 4
	monthsPerYear = 12
)

// EmissionFactors converts activity quantities into kg CO2e.
type EmissionFactors struct {
	CarPerKm          float64                              `json:"car_per_km"`
	ElectricityPerKwh float64                              `json:"electricity_per_kwh"`
	MeatMeal          float64                              `json:"meat_meal"`
	ShortFlight       float64                              `json:"short_flight"`
	Shopping          map[models.ShoppingFrequency]float64 `json:"shopping"`
}

var defaultFactors = EmissionFactors{
	CarPerKm:          0.204,
	ElectricityPerKwh: 0.419,
	MeatMeal:          1.5,
	ShortFlight:       750,
	Shopping: map[models.ShoppingFrequency]float64{
		models.ShoppingRarely:  10,
		models.ShoppingMonthly: 30,
		models.ShoppingWeekly:  60,
	},
}

// DefaultFactors returns a copy of the built-in factor table. Callers may
// modify the copy without affecting other requests.
func DefaultFactors() EmissionFactors {
	f := defaultFactors
	f.Shopping = make(map[models.ShoppingFrequency]float64, len(defaultFactors.Shopping))
	for k, v := range defaultFactors.Shopping {
		f.Shopping[k] = v
	}
	return f
}

// Estimate computes the monthly footprint for inputs. It fails when the
// shopping frequency is missing from the factor table, or when the inputs
// are so large that a term or the total overflows float64.
func Estimate(inputs models.LifestyleInputs, factors EmissionFactors) (models.EmissionsReport, error) {
	shopping, ok := factors.Shopping[inputs.ShoppingFrequency]
	if !ok {
		return models.EmissionsReport{}, fmt.Errorf("%w: %q", models.ErrInvalidCategory, inputs.ShoppingFrequency)
	}

	b := models.EmissionsBreakdown{
		Car:         inputs.DailyTravelKm * daysPerMonth * factors.CarPerKm,
		Electricity: inputs.MonthlyElectricityKwh * factors.ElectricityPerKwh,
		Meat:        inputs.WeeklyMeatMeals * weeksPerMonth * factors.MeatMeal,
		Flights:     inputs.FlightsPerYear * factors.ShortFlight / monthsPerYear,
		Shopping:    shopping,
	}

	total := b.Car + b.Electricity + b.Meat + b.Flights + b.Shopping
	for _, v := range []float64{b.Car, b.Electricity, b.Meat, b.Flights, total} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return models.EmissionsReport{}, models.ErrOutOfRange
		}
	}

	return models.EmissionsReport{
		TotalKgCO2: total,
		Breakdown:  b,
	}, nil
}
