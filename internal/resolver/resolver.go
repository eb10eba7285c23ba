// Package resolver maps segments to the set of addresses that belong to
// them, combining area membership with the segment's structural filters.
package resolver

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"flipradar/server/internal/matching"
	"flipradar/server/internal/models"
)

// AddressSet is the resolved membership of a segment, keyed by address id.
type AddressSet map[int64]struct{}

// Contains reports whether the set includes the given address id.
func (s AddressSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Resolve returns the ids of the addresses belonging to a segment: addresses
// in the segment's area, narrowed by the segment's filters when present.
// A nil segment or area resolves to an empty set rather than an error;
// callers treat an empty set as "no objects belong to this segment".
// The result depends only on the inputs, so it is cacheable per segment.
func Resolve(segment *models.Segment, area *models.MapArea, addresses []models.Address) AddressSet {
	resolved := make(AddressSet)
	if segment == nil || area == nil || segment.MapAreaID != area.ID {
		return resolved
	}

	for _, addr := range addresses {
		if !inArea(addr, area) {
			continue
		}
		if !matching.MatchAddress(addr, segment.Filters) {
			continue
		}
		resolved[addr.ID] = struct{}{}
	}
	return resolved
}

// inArea checks area membership by the stored area id first, and falls back
// to polygon containment for addresses tagged with a different area but
// located inside the area's boundary.
func inArea(addr models.Address, area *models.MapArea) bool {
	if addr.MapAreaID == area.ID {
		return true
	}
	if len(area.Polygon) == 0 || addr.Longitude == nil || addr.Latitude == nil {
		return false
	}
	point := orb.Point{*addr.Longitude, *addr.Latitude}
	return planar.PolygonContains(area.Polygon, point)
}
