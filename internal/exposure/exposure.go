// Package exposure derives days-on-market statistics from archived,
// evaluated objects.
package exposure

import (
	"math"
	"sort"

	"flipradar/server/internal/evaluations"
	"flipradar/server/internal/models"
)

const hoursPerDay = 24

// Compute returns median/average/min/max days on market for one subsegment's
// objects. Eligibility requires archive status and an evaluation; price and
// area do not matter for exposure. Days are floor((updated-created)/24h)
// clamped to a minimum of 1: a same-day or anomalous negative observation
// still counts as one day of exposure. An empty eligible set yields nil
// fields, not an error.
func Compute(objects []models.RealEstateObject, snap evaluations.Snapshot) models.ExposureResult {
	var days []int
	for _, obj := range objects {
		if obj.Status != models.StatusArchive {
			continue
		}
		if _, ok := snap.Get(obj.ID); !ok {
			continue
		}
		d := int(math.Floor(obj.Updated.Sub(obj.Created).Hours() / hoursPerDay))
		if d < 1 {
			d = 1
		}
		days = append(days, d)
	}

	result := models.ExposureResult{SampleCount: len(days)}
	if len(days) == 0 {
		return result
	}

	sort.Ints(days)

	median := medianOf(days)
	average := int(math.Round(mean(days)))
	minDays := days[0]
	maxDays := days[len(days)-1]

	result.MedianDays = &median
	result.AverageDays = &average
	result.MinDays = &minDays
	result.MaxDays = &maxDays
	return result
}

// medianOf expects a sorted slice: middle element for odd counts, the
// rounded two-point average for even counts.
func medianOf(sorted []int) int {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return int(math.Round(float64(sorted[n/2-1]+sorted[n/2]) / 2))
}

func mean(values []int) float64 {
	var sum int
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
