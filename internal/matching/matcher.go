// Package matching evaluates segment and subsegment filter specs against
// address and object records. All functions are pure and safe for
// concurrent use.
package matching

import "flipradar/server/internal/models"

// MatchAddress reports whether an address satisfies a segment's filter spec.
// A nil or empty filter matches everything. Constraints are ANDed; a record
// missing an attribute referenced by an active constraint fails closed.
// Membership in the explicit allow-list matches unconditionally. When the
// allow-list is the only constraint present, addresses outside it do not
// match.
func MatchAddress(addr models.Address, f *models.AddressFilter) bool {
	if f == nil {
		return true
	}

	if containsID(f.AddressIDs, addr.ID) {
		return true
	}

	hasOther := len(f.HouseClasses) > 0 || len(f.HouseSeries) > 0 ||
		len(f.WallMaterials) > 0 || len(f.CeilingMaterials) > 0 ||
		f.HasGas != nil || f.FloorsTotal != nil || f.BuildYear != nil
	if !hasOther {
		// allow-list was the only constraint, or the filter is empty
		return len(f.AddressIDs) == 0
	}

	if !inSetPtr(addr.HouseClass, f.HouseClasses) {
		return false
	}
	if !inSetPtr(addr.HouseSeries, f.HouseSeries) {
		return false
	}
	if !inSetPtr(addr.WallMaterial, f.WallMaterials) {
		return false
	}
	if !inSetPtr(addr.CeilingMaterial, f.CeilingMaterials) {
		return false
	}
	if f.HasGas != nil {
		if addr.HasGas == nil || *addr.HasGas != *f.HasGas {
			return false
		}
	}
	if !inIntRangePtr(addr.FloorsTotal, f.FloorsTotal) {
		return false
	}
	if !inIntRangePtr(addr.BuildYear, f.BuildYear) {
		return false
	}
	return true
}

// MatchObject reports whether an object satisfies a subsegment's filter spec.
func MatchObject(obj models.RealEstateObject, f *models.ObjectFilter) bool {
	if f == nil {
		return true
	}

	if len(f.PropertyTypes) > 0 {
		if obj.PropertyType == "" || !inSet(obj.PropertyType, f.PropertyTypes) {
			return false
		}
	}
	if f.AreaTotal != nil {
		if obj.AreaTotal <= 0 || !inFloatRange(obj.AreaTotal, f.AreaTotal) {
			return false
		}
	}
	if f.CurrentPrice != nil {
		if obj.CurrentPrice <= 0 || !inFloatRange(float64(obj.CurrentPrice), f.CurrentPrice) {
			return false
		}
	}
	if !inIntRangePtr(obj.Rooms, f.Rooms) {
		return false
	}
	if !inIntRangePtr(obj.Floor, f.Floor) {
		return false
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func inSet(value string, set []string) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}

// inSetPtr treats an empty set as "constraint absent" and a nil attribute as
// non-matching when the constraint is active.
func inSetPtr(value *string, set []string) bool {
	if len(set) == 0 {
		return true
	}
	if value == nil {
		return false
	}
	return inSet(*value, set)
}

func inIntRangePtr(value *int, r *models.IntRange) bool {
	if r == nil {
		return true
	}
	if value == nil {
		return false
	}
	if r.From != nil && *value < *r.From {
		return false
	}
	if r.To != nil && *value > *r.To {
		return false
	}
	return true
}

func inFloatRange(value float64, r *models.FloatRange) bool {
	if r.From != nil && value < *r.From {
		return false
	}
	if r.To != nil && value > *r.To {
		return false
	}
	return true
}
