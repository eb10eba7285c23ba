package models

import "time"

// ObjectStatus describes where a real-estate object is in its market lifecycle.
type ObjectStatus string

const (
	StatusActive  ObjectStatus = "active"
	StatusArchive ObjectStatus = "archive"
)

// Property type values used by subsegment filters.
const (
	PropertyTypeStudio = "studio"
	PropertyType1K     = "1k"
	PropertyType2K     = "2k"
	PropertyType3K     = "3k"
	PropertyType4KPlus = "4k+"
)

// RealEstateObject is a deduplicated property record as delivered by the
// ingestion pipeline. For archived objects Updated marks the date the listing
// left the market. The engine never mutates these records.
type RealEstateObject struct {
	ID           int64        `json:"id" gorm:"primaryKey;column:id"`
	Status       ObjectStatus `json:"status" gorm:"column:status"`
	AddressID    int64        `json:"address_id" gorm:"column:address_id"`
	CurrentPrice int64        `json:"current_price" gorm:"column:current_price"`
	AreaTotal    float64      `json:"area_total" gorm:"column:area_total"`
	PropertyType string       `json:"property_type" gorm:"column:property_type"`
	Rooms        *int         `json:"rooms" gorm:"column:rooms"`
	Floor        *int         `json:"floor" gorm:"column:floor"`
	FloorsTotal  *int         `json:"floors_total" gorm:"column:floors_total"`
	Created      time.Time    `json:"created" gorm:"column:created"`
	Updated      time.Time    `json:"updated" gorm:"column:updated"`
}

// TableName keeps the gorm upsert path on the same table as the query layer.
func (RealEstateObject) TableName() string {
	return "objects"
}

// Address holds the structural attributes segment filters match against.
// Owned by the external store; read-only here.
type Address struct {
	ID              int64    `json:"id"`
	MapAreaID       int64    `json:"map_area_id"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	BuildYear       *int     `json:"build_year"`
	FloorsTotal     *int     `json:"floors_total"`
	WallMaterial    *string  `json:"wall_material"`
	CeilingMaterial *string  `json:"ceiling_material"`
	HouseSeries     *string  `json:"house_series"`
	HouseClass      *string  `json:"house_class"`
	HasGas          *bool    `json:"has_gas"`
}
