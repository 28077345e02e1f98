package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidCategory = errors.New("invalid shopping frequency")
	ErrNegativeInput   = errors.New("inputs must be non-negative numbers")
	ErrOutOfRange      = errors.New("inputs are too large to estimate")
)

// ShoppingFrequency is how often the user buys new non-essential goods.
type ShoppingFrequency string

const (
	ShoppingRarely  ShoppingFrequency = "Rarely"
	ShoppingMonthly ShoppingFrequency = "Monthly"
	ShoppingWeekly  ShoppingFrequency = "Weekly"
)

// ShoppingFrequencies lists the selectable buckets in display order.
var ShoppingFrequencies = []ShoppingFrequency{
	ShoppingRarely,
	ShoppingMonthly,
	ShoppingWeekly,
}

// ParseShoppingFrequency matches s against the known buckets, ignoring case
// and surrounding whitespace.
func ParseShoppingFrequency(s string) (ShoppingFrequency, error) {
	s = strings.TrimSpace(s)
	for _, f := range ShoppingFrequencies {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (f ShoppingFrequency) Valid() bool {
	for _, known := range ShoppingFrequencies {
		if f == known {
			return true
		}
	}
	return false
}

// LifestyleInputs is one user's answers to the calculator form.
type LifestyleInputs struct {
	DailyTravelKm         float64           `json:"daily_travel_km"`
	MonthlyElectricityKwh float64           `json:"monthly_electricity_kwh"`
	WeeklyMeatMeals       float64           `json:"weekly_meat_meals"`
	FlightsPerYear        float64           `json:"flights_per_year"`
	ShoppingFrequency     ShoppingFrequency `json:"shopping_frequency"`
}

// DefaultInputs returns the values the form is pre-filled with.
func DefaultInputs() LifestyleInputs {
	return LifestyleInputs{
		DailyTravelKm:         15,
		MonthlyElectricityKwh: 350,
		WeeklyMeatMeals:       5,
		FlightsPerYear:        2,
		ShoppingFrequency:     ShoppingRarely,
	}
}

// Validate checks that every numeric field is a finite, non-negative number
// and that the shopping frequency is one of the known buckets.
func (in LifestyleInputs) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"daily_travel_km", in.DailyTravelKm},
		{"monthly_electricity_kwh", in.MonthlyElectricityKwh},
		{"weekly_meat_meals", in.WeeklyMeatMeals},
		{"flights_per_year", in.FlightsPerYear},
	}
	for _, f := range fields {
		// NaN fails the comparison as well
		if !(f.value >= 0) || math.IsInf(f.value, 1) {
			return fmt.Errorf("%w: %s", ErrNegativeInput, f.name)
		}
	}
	if !in.ShoppingFrequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, in.ShoppingFrequency)
	}
	return nil
}
