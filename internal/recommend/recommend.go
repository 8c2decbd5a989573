// Package recommend maps an NPK soil reading to a fertilizer recommendation.
package recommend

import "strings"

// Deficiency thresholds in mg/kg. A nutrient is low when strictly below.
const (
	NitrogenMin   = 20
	PhosphorusMin = 15
	PotassiumMin  = 25
)

// BalancedMessage is returned when no nutrient is low.
const BalancedMessage = "Balanced, no fertilizer needed."

const (
	nitrogenAdvice   = "nitrogen-rich fertilizer"
	phosphorusAdvice = "phosphorus-rich fertilizer"
	potassiumAdvice  = "potassium-rich fertilizer"
)

// Recommend returns a one-sentence recommendation for the reading.
// Suggestions always appear in N, P, K order.
func Recommend(nitrogen, phosphorus, potassium int) string {
	var parts []string
	if nitrogen < NitrogenMin {
		parts = append(parts, nitrogenAdvice)
	}
	if phosphorus < PhosphorusMin {
		parts = append(parts, phosphorusAdvice)
	}
	if potassium < PotassiumMin {
		parts = append(parts, potassiumAdvice)
	}

	switch len(parts) {
	case 0:
		return BalancedMessage
	case 1:
		return "Apply " + parts[0] + "."
	default:
		return "Apply " + strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1] + "."
	}
}
