// Package aggregator orchestrates segment resolution, subsegment matching
// and the pricing/exposure engines into per-subsegment report cards, and
// tracks the drill-down scope selected by the caller.
package aggregator

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/evaluations"
	"flipradar/server/internal/exposure"
	"flipradar/server/internal/matching"
	"flipradar/server/internal/models"
	"flipradar/server/internal/pricing"
	"flipradar/server/internal/resolver"
)

// ScopeKind names the selection states of the aggregator.
type ScopeKind int

const (
	ScopeUnscoped ScopeKind = iota
	ScopeSegment
	ScopeSubsegment
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeUnscoped:
		return "unscoped"
	case ScopeSegment:
		return "segment"
	case ScopeSubsegment:
		return "subsegment"
	default:
		return "unknown"
	}
}

// Scope is the current selection context.
type Scope struct {
	Kind         ScopeKind
	SegmentID    int64
	SubsegmentID int64
}

// Dataset is the immutable data snapshot one aggregator instance works over.
// All collections are supplied pre-loaded by the caller; the aggregator never
// fetches from storage.
type Dataset struct {
	Area        *models.MapArea
	Segments    []models.Segment
	Subsegments []models.Subsegment
	Addresses   []models.Address
	Objects     []models.RealEstateObject
}

// Aggregator computes subsegment reports over one dataset snapshot. Segment
// address resolution is cached for the lifetime of the instance, which is
// also what makes drill-out an O(1) restore.
type Aggregator struct {
	data       Dataset
	snap       evaluations.Snapshot
	pricer     *pricing.Engine
	logger     *logrus.Logger
	mu         sync.Mutex
	scope      Scope
	working    []models.RealEstateObject
	saved      []models.RealEstateObject
	savedScope Scope

	addrCache    map[int64]resolver.AddressSet
	resolveCalls int
}

// New creates an aggregator over a dataset snapshot. The working object set
// starts out as the full object population.
func New(data Dataset, snap evaluations.Snapshot, pricer *pricing.Engine, logger *logrus.Logger) *Aggregator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Aggregator{
		data:      data,
		snap:      snap,
		pricer:    pricer,
		logger:    logger,
		working:   data.Objects,
		addrCache: make(map[int64]resolver.AddressSet),
	}
}

// Scope returns the current selection context.
func (a *Aggregator) Scope() Scope {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scope
}

// WorkingSet returns the object set downstream consumers should display:
// the full population, or the drilled subsegment's membership.
func (a *Aggregator) WorkingSet() []models.RealEstateObject {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.working
}

// SetSegmentScope narrows aggregation to a single segment's subsegments.
// It also exits any active drill.
func (a *Aggregator) SetSegmentScope(segmentID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scope = Scope{Kind: ScopeSegment, SegmentID: segmentID}
	a.working = a.data.Objects
	a.saved = nil
}

// ClearScope returns to the unscoped state covering every segment.
func (a *Aggregator) ClearScope() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scope = Scope{Kind: ScopeUnscoped}
	a.working = a.data.Objects
	a.saved = nil
}

// DrillIn narrows the working object set to one subsegment's membership,
// saving the current state so DrillOut can restore it without recomputation.
func (a *Aggregator) DrillIn(subsegmentID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sub := a.subsegmentByID(subsegmentID)
	if sub == nil {
		return fmt.Errorf("unknown subsegment %d", subsegmentID)
	}

	// A drill from within a drill first restores the pre-drill state, so
	// drills never stack and the saved set always holds the pre-drill scope.
	if a.scope.Kind == ScopeSubsegment {
		a.working = a.saved
		a.scope = a.savedScope
	}

	segment := a.segmentByID(sub.SegmentID)
	membership := a.objectsForSubsegment(sub, segment)

	a.saved = a.working
	a.savedScope = a.scope
	a.working = membership
	a.scope = Scope{Kind: ScopeSubsegment, SegmentID: sub.SegmentID, SubsegmentID: sub.ID}
	return nil
}

// DrillOut restores the pre-drill working set and scope. It performs no
// address resolution. Calling it outside a drill is a no-op.
func (a *Aggregator) DrillOut() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.scope.Kind != ScopeSubsegment {
		return
	}
	a.working = a.saved
	a.scope = a.savedScope
	a.saved = nil
}

// Aggregate computes one report per subsegment in scope, in stable
// segment-then-subsegment iteration order. A subsegment that cannot be
// resolved degrades to an empty report; the batch always completes.
func (a *Aggregator) Aggregate(asOf time.Time) []models.SubsegmentReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	reports := make([]models.SubsegmentReport, 0)
	for _, sub := range a.subsegmentsInScope() {
		reports = append(reports, a.reportFor(sub, asOf))
	}
	return reports
}

// subsegmentsInScope lists the subsegments the current scope covers,
// preserving segment-then-subsegment order.
func (a *Aggregator) subsegmentsInScope() []models.Subsegment {
	switch a.scope.Kind {
	case ScopeSegment:
		return a.subsegmentsOfSegment(a.scope.SegmentID)
	case ScopeSubsegment:
		if sub := a.subsegmentByID(a.scope.SubsegmentID); sub != nil {
			return []models.Subsegment{*sub}
		}
		return nil
	default:
		var subs []models.Subsegment
		for _, seg := range a.data.Segments {
			subs = append(subs, a.subsegmentsOfSegment(seg.ID)...)
		}
		return subs
	}
}

func (a *Aggregator) reportFor(sub models.Subsegment, asOf time.Time) models.SubsegmentReport {
	report := models.SubsegmentReport{
		SubsegmentID:   sub.ID,
		SubsegmentName: sub.Name,
		SegmentID:      sub.SegmentID,
		Price:          models.ReferencePriceResult{SubsegmentID: sub.ID},
	}

	segment := a.segmentByID(sub.SegmentID)
	if segment == nil {
		a.logger.WithFields(logrus.Fields{
			"subsegment_id": sub.ID,
			"segment_id":    sub.SegmentID,
		}).Warn("Subsegment references a missing segment, emitting empty report")
		return report
	}
	report.SegmentName = segment.Name
	report.Price.SegmentName = segment.Name

	objects := a.objectsForSubsegment(&sub, segment)

	price, err := a.pricer.ComputeReferencePrice(objects, a.snap, asOf)
	if err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"subsegment_id": sub.ID,
			"segment_id":    segment.ID,
		}).Warn("Reference price computation failed, emitting empty report")
		report.Price.TotalObjectCount = len(objects)
		return report
	}
	price.SubsegmentID = sub.ID
	price.SegmentName = segment.Name

	report.Price = price
	report.Exposure = exposure.Compute(objects, a.snap)
	return report
}

// objectsForSubsegment filters the object population down to the addresses
// of the owning segment and the subsegment's own filter spec.
func (a *Aggregator) objectsForSubsegment(sub *models.Subsegment, segment *models.Segment) []models.RealEstateObject {
	addrSet := a.resolveSegment(segment)

	var matched []models.RealEstateObject
	for _, obj := range a.data.Objects {
		if !addrSet.Contains(obj.AddressID) {
			continue
		}
		if !matching.MatchObject(obj, sub.Filters) {
			continue
		}
		matched = append(matched, obj)
	}
	return matched
}

// resolveSegment returns the segment's address set, resolving at most once
// per segment per aggregator instance.
func (a *Aggregator) resolveSegment(segment *models.Segment) resolver.AddressSet {
	if segment == nil {
		return resolver.AddressSet{}
	}
	if cached, ok := a.addrCache[segment.ID]; ok {
		return cached
	}
	a.resolveCalls++
	set := resolver.Resolve(segment, a.data.Area, a.data.Addresses)
	a.addrCache[segment.ID] = set
	return set
}

func (a *Aggregator) segmentByID(id int64) *models.Segment {
	for i := range a.data.Segments {
		if a.data.Segments[i].ID == id {
			return &a.data.Segments[i]
		}
	}
	return nil
}

func (a *Aggregator) subsegmentByID(id int64) *models.Subsegment {
	for i := range a.data.Subsegments {
		if a.data.Subsegments[i].ID == id {
			return &a.data.Subsegments[i]
		}
	}
	return nil
}

func (a *Aggregator) subsegmentsOfSegment(segmentID int64) []models.Subsegment {
	var subs []models.Subsegment
	for _, sub := range a.data.Subsegments {
		if sub.SegmentID == segmentID {
			subs = append(subs, sub)
		}
	}
	return subs
}
