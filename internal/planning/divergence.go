// Package planning derives next-sprint targets from a process's sprint
// history. Everything here is a pure function of the process value.
package planning

import "batchline/models"

// AccumulateDivergence sums actual minus target per item over every sprint.
// Items without a recorded actual contribute zero.
func AccumulateDivergence(sprints []models.Sprint) map[string]float64 {
	acc := make(map[string]float64)
	for _, sprint := range sprints {
		for _, item := range sprint.Items {
			acc[item.Item.ID] += item.Divergence()
		}
	}
	return acc
}

// SprintDivergence is the divergence of one sprint.
type SprintDivergence struct {
	SprintID string             `json:"sprint_id"`
	Number   int                `json:"number"`
	Total    float64            `json:"total"`
	PerItem  map[string]float64 `json:"per_item"`
}

// Report is a process's divergence per sprint and accumulated per item.
type Report struct {
	ProcessID string             `json:"process_id"`
	Total     float64            `json:"total"`
	PerItem   map[string]float64 `json:"per_item"`
	Sprints   []SprintDivergence `json:"sprints"`
}

// DivergenceReport summarises the sprint history of process.
func DivergenceReport(process models.Process) Report {
	report := Report{
		ProcessID: process.ID,
		PerItem:   AccumulateDivergence(process.Sprints),
		Sprints:   make([]SprintDivergence, 0, len(process.Sprints)),
	}
	for _, sprint := range process.Sprints {
		total := sprint.TotalDivergence()
		report.Total += total
		report.Sprints = append(report.Sprints, SprintDivergence{
			SprintID: sprint.ID,
			Number:   sprint.Number,
			Total:    total,
			PerItem:  sprint.DivergencePerItem(),
		})
	}
	return report
}

// AccumulateActuals sums the recorded actuals per item over every sprint.
func AccumulateActuals(sprints []models.Sprint) map[string]float64 {
	acc := make(map[string]float64)
	for _, sprint := range sprints {
		for _, item := range sprint.Items {
			var actual float64
			if item.Actual != nil {
				actual = *item.Actual
			}
			acc[item.Item.ID] += actual
		}
	}
	return acc
}
