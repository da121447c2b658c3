package history

import (
	"gonum.org/v1/gonum/stat"
)

// Trend summarizes a series of records.
type Trend struct {
	Count           int     `json:"count"`
	MeanRightLogMAR float64 `json:"mean_right_logmar"`
	MeanLeftLogMAR  float64 `json:"mean_left_logmar"`

	// Change is latest minus earliest; negative means acuity improved.
	RightChange float64 `json:"right_change"`
	LeftChange  float64 `json:"left_change"`
}

// ComputeTrend summarizes records ordered newest first, as returned by
// Lister.List.
func ComputeTrend(records []Record) Trend {
	n := len(records)
	if n == 0 {
		return Trend{}
	}

	right := make([]float64, n)
	left := make([]float64, n)
	for i, rec := range records {
		right[i] = rec.RightLogMAR
		left[i] = rec.LeftLogMAR
	}

	return Trend{
		Count:           n,
		MeanRightLogMAR: stat.Mean(right, nil),
		MeanLeftLogMAR:  stat.Mean(left, nil),
		RightChange:     right[0] - right[n-1],
		LeftChange:      left[0] - left[n-1],
	}
}
