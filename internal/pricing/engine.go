// Package pricing computes confidence-weighted reference prices per square
// meter from evaluated, sold objects. Recent sales and higher-quality
// evaluations carry more weight.
package pricing

import (
	"math"
	"time"

	"flipradar/server/internal/evaluations"
	"flipradar/server/internal/models"
)

const hoursPerDay = 24

// Policy holds the tunable pricing parameters: the tag weight table and the
// recency decay shape.
type Policy struct {
	Weights            map[models.EvaluationTag]float64
	RecencyFloor       float64
	RecencyHorizonDays int
}

// DefaultPolicy returns the stock policy used when no configuration is
// supplied.
func DefaultPolicy() Policy {
	return Policy{
		Weights: map[models.EvaluationTag]float64{
			models.TagFlipping:           1.0,
			models.TagDesignerRenovation: 0.9,
			models.TagEuroRenovation:     0.8,
		},
		RecencyFloor:       0.7,
		RecencyHorizonDays: 365,
	}
}

// Engine computes reference prices for pre-filtered subsegment object lists.
// It is a pure computation over its inputs; the caller supplies the asOf
// timestamp so results stay deterministic.
type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// RecencyFactor returns the decay multiplier for a sale last updated at the
// given time: a linear decay from 1.0 (just sold) down to the policy floor
// at the horizon. It never drops below the floor regardless of age.
func (e *Engine) RecencyFactor(updated, asOf time.Time) float64 {
	days := asOf.Sub(updated).Hours() / hoursPerDay
	factor := 1 - days/float64(e.policy.RecencyHorizonDays)
	return math.Max(e.policy.RecencyFloor, factor)
}

// ComputeReferencePrice aggregates the weighted price per square meter over
// one subsegment's objects. Only archived objects with an evaluation, a
// positive weight, a positive price and a positive area contribute. An empty
// eligible set yields a result with nil price fields, not an error.
func (e *Engine) ComputeReferencePrice(objects []models.RealEstateObject, snap evaluations.Snapshot, asOf time.Time) (models.ReferencePriceResult, error) {
	result := models.ReferencePriceResult{
		TotalObjectCount: len(objects),
	}

	var weightSum, weightedPriceSum, areaSum float64
	var eligible int

	for _, obj := range objects {
		if obj.Status != models.StatusArchive {
			continue
		}
		tag, ok := snap.Get(obj.ID)
		if !ok {
			continue
		}
		weight, err := snap.WeightOf(tag)
		if err != nil {
			// a tag with no weight entry is a config mismatch, fail loud
			return models.ReferencePriceResult{}, err
		}
		if weight <= 0 || obj.CurrentPrice <= 0 || obj.AreaTotal <= 0 {
			continue
		}

		pricePerMeter := float64(obj.CurrentPrice) / obj.AreaTotal
		adjusted := weight * e.RecencyFactor(obj.Updated, asOf)

		weightedPriceSum += pricePerMeter * adjusted
		weightSum += adjusted
		areaSum += obj.AreaTotal
		eligible++
	}

	if eligible == 0 || weightSum == 0 {
		// weightSum == 0 is unreachable with positive weights and a
		// positive recency floor, but guards the division below
		return result, nil
	}

	perMeter := weightedPriceSum / weightSum
	repArea := areaSum / float64(eligible)

	perMeterRounded := roundHalfAway(perMeter)
	totalRounded := roundHalfAway(perMeter * repArea)

	result.PerMeterPrice = &perMeterRounded
	result.TotalPrice = &totalRounded
	result.RepresentativeArea = &repArea
	result.EvaluatedObjectCount = eligible
	return result, nil
}

func roundHalfAway(v float64) int64 {
	return int64(math.Round(v))
}
