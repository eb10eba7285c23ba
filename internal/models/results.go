package models

// EvaluationTag is a user-assigned quality tag on a sold object. Tags
// calibrate how representative the object's realized price is.
type EvaluationTag string

const (
	TagFlipping           EvaluationTag = "flipping"
	TagDesignerRenovation EvaluationTag = "designer_renovation"
	TagEuroRenovation     EvaluationTag = "euro_renovation"
)

// ReferencePriceResult is the per-subsegment pricing output. Nil price fields
// mean "no evaluated sold objects available", which is a valid state and not
// an error.
type ReferencePriceResult struct {
	SubsegmentID         int64    `json:"subsegment_id"`
	SegmentName          string   `json:"segment_name"`
	PerMeterPrice        *int64   `json:"per_meter_price"`
	TotalPrice           *int64   `json:"total_price"`
	RepresentativeArea   *float64 `json:"representative_area"`
	TotalObjectCount     int      `json:"total_object_count"`
	EvaluatedObjectCount int      `json:"evaluated_object_count"`
}

// ExposureResult holds days-on-market statistics for a subsegment. All
// fields are nil when no archived, evaluated objects exist.
type ExposureResult struct {
	MedianDays  *int `json:"median_days"`
	AverageDays *int `json:"average_days"`
	MinDays     *int `json:"min_days"`
	MaxDays     *int `json:"max_days"`
	SampleCount int  `json:"sample_count"`
}

// SubsegmentReport is one aggregator output record: the pricing and exposure
// results for a single subsegment.
type SubsegmentReport struct {
	SubsegmentID   int64                `json:"subsegment_id"`
	SubsegmentName string               `json:"subsegment_name"`
	SegmentID      int64                `json:"segment_id"`
	SegmentName    string               `json:"segment_name"`
	Price          ReferencePriceResult `json:"price"`
	Exposure       ExposureResult       `json:"exposure"`
}
