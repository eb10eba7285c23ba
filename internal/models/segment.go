package models

import "github.com/paulmach/orb"

// MapArea is a geographic area owning a set of segments. The polygon is
// optional; when present it is used for point-in-polygon address membership.
type MapArea struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Polygon orb.Polygon `json:"polygon,omitempty"`
}

// Segment is a named partition of an area's addresses defined by structural
// filters over Address attributes.
type Segment struct {
	ID        int64          `json:"id"`
	MapAreaID int64          `json:"map_area_id"`
	Name      string         `json:"name"`
	Filters   *AddressFilter `json:"filters,omitempty"`
}

// Subsegment partitions a segment's objects (not its addresses) by
// object-level filters.
type Subsegment struct {
	ID        int64         `json:"id"`
	SegmentID int64         `json:"segment_id"`
	Name      string        `json:"name"`
	Filters   *ObjectFilter `json:"filters,omitempty"`
}

// IntRange is an inclusive [From, To] constraint. A nil bound is open.
type IntRange struct {
	From *int `json:"from,omitempty"`
	To   *int `json:"to,omitempty"`
}

// FloatRange is an inclusive [From, To] constraint. A nil bound is open.
type FloatRange struct {
	From *float64 `json:"from,omitempty"`
	To   *float64 `json:"to,omitempty"`
}

// AddressFilter is the structural filter spec of a segment, interpreted over
// Address attributes. Absent constraints never exclude; present constraints
// are ANDed. AddressIDs is an explicit allow-list with union semantics.
type AddressFilter struct {
	HouseClasses     []string  `json:"house_classes,omitempty"`
	HouseSeries      []string  `json:"house_series,omitempty"`
	WallMaterials    []string  `json:"wall_materials,omitempty"`
	CeilingMaterials []string  `json:"ceiling_materials,omitempty"`
	HasGas           *bool     `json:"has_gas,omitempty"`
	FloorsTotal      *IntRange `json:"floors_total,omitempty"`
	BuildYear        *IntRange `json:"build_year,omitempty"`
	AddressIDs       []int64   `json:"address_ids,omitempty"`
}

// ObjectFilter is the filter spec of a subsegment, interpreted over
// RealEstateObject attributes.
type ObjectFilter struct {
	PropertyTypes []string    `json:"property_types,omitempty"`
	AreaTotal     *FloatRange `json:"area_total,omitempty"`
	CurrentPrice  *FloatRange `json:"current_price,omitempty"`
	Rooms         *IntRange   `json:"rooms,omitempty"`
	Floor         *IntRange   `json:"floor,omitempty"`
}
