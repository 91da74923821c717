package planning

import (
	"context"
	"math"

	applog "batchline/internal/log"
	"batchline/internal/metrics"
	"batchline/models"
)

// SuggestionBound is the largest magnitude a suggested target may take.
const SuggestionBound = 1e12

// SuggestNextSprintTargets spreads the gap between planned-to-date and
// actual-to-date consumption evenly over the remaining sprints:
//
//	suggested = w + (w*(executed+remaining) - Σactual) / remaining
//
// where w is the formula weight of the item. Over-delivery lowers the next
// target and may make it negative. Non-finite results become 0 and every
// value is clamped to [-SuggestionBound, SuggestionBound]. A non-positive
// remaining count yields an empty map.
func SuggestNextSprintTargets(ctx context.Context, process models.Process, remaining int) map[string]float64 {
	suggestions := make(map[string]float64)
	if remaining <= 0 {
		return suggestions
	}
	metrics.Suggestions.Inc()

	total := float64(len(process.Sprints) + remaining)
	actuals := AccumulateActuals(process.Sprints)

	for _, entry := range process.Formula.Entries {
		id := entry.Item.ID
		expected := entry.Weight * total
		gap := expected - actuals[id]
		suggested := entry.Weight + gap/float64(remaining)

		if math.IsNaN(suggested) || math.IsInf(suggested, 0) {
			metrics.NumericAnomalies.Inc()
			applog.Debug(ctx, "non-finite sprint target replaced by zero",
				"process_id", process.ID,
				"item_id", id,
				"weight", entry.Weight,
				"actual", actuals[id],
				"remaining", remaining,
			)
			suggested = 0
		}
		suggestions[id] = clamp(suggested, -SuggestionBound, SuggestionBound)
	}
	return suggestions
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
