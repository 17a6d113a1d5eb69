package insights

import (
	"math"

	"github.com/shopspring/decimal"
)

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func percent(v float64) string {
	return decimal.NewFromFloat(v * 100).StringFixed(0) + "%"
}

// roundUp rounds v up to a whole currency unit.
func roundUp(v float64) float64 {
	return math.Ceil(v - 1e-9)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
