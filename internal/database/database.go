package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"flipradar/server/internal/aggregator"
	"flipradar/server/internal/models"
)

type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

// GetMapAreas returns all configured map areas.
func (d *Database) GetMapAreas() ([]models.MapArea, error) {
	rows, err := d.db.Query(`SELECT id, name, polygon FROM map_areas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query map areas: %w", err)
	}
	defer rows.Close()

	var areas []models.MapArea
	for rows.Next() {
		area, err := scanMapArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, *area)
	}
	return areas, rows.Err()
}

// GetMapArea returns one map area, or nil when it does not exist.
func (d *Database) GetMapArea(id int64) (*models.MapArea, error) {
	row := d.db.QueryRow(`SELECT id, name, polygon FROM map_areas WHERE id = ?`, id)

	area, err := scanMapArea(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return area, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMapArea(row rowScanner) (*models.MapArea, error) {
	var area models.MapArea
	var polygonJSON sql.NullString

	if err := row.Scan(&area.ID, &area.Name, &polygonJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan map area: %w", err)
	}

	if polygonJSON.Valid && polygonJSON.String != "" {
		geom, err := geojson.UnmarshalGeometry([]byte(polygonJSON.String))
		if err != nil {
			return nil, fmt.Errorf("failed to parse area polygon: %w", err)
		}
		if polygon, ok := geom.Geometry().(orb.Polygon); ok {
			area.Polygon = polygon
		}
	}
	return &area, nil
}

// GetSegmentsByArea returns the segments owned by an area, in id order.
func (d *Database) GetSegmentsByArea(areaID int64) ([]models.Segment, error) {
	rows, err := d.db.Query(`
		SELECT id, map_area_id, name, filters
		FROM segments
		WHERE map_area_id = ?
		ORDER BY id
	`, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segments []models.Segment
	for rows.Next() {
		var seg models.Segment
		var filtersJSON sql.NullString

		if err := rows.Scan(&seg.ID, &seg.MapAreaID, &seg.Name, &filtersJSON); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		if filtersJSON.Valid && filtersJSON.String != "" {
			var filters models.AddressFilter
			if err := json.Unmarshal([]byte(filtersJSON.String), &filters); err != nil {
				return nil, fmt.Errorf("failed to parse segment %d filters: %w", seg.ID, err)
			}
			seg.Filters = &filters
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// GetSegmentByID returns one segment, or nil when it does not exist.
func (d *Database) GetSegmentByID(id int64) (*models.Segment, error) {
	var seg models.Segment
	var filtersJSON sql.NullString

	err := d.db.QueryRow(`
		SELECT id, map_area_id, name, filters FROM segments WHERE id = ?
	`, id).Scan(&seg.ID, &seg.MapAreaID, &seg.Name, &filtersJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query segment: %w", err)
	}

	if filtersJSON.Valid && filtersJSON.String != "" {
		var filters models.AddressFilter
		if err := json.Unmarshal([]byte(filtersJSON.String), &filters); err != nil {
			return nil, fmt.Errorf("failed to parse segment %d filters: %w", seg.ID, err)
		}
		seg.Filters = &filters
	}
	return &seg, nil
}

// GetSubsegmentByID returns one subsegment, or nil when it does not exist.
func (d *Database) GetSubsegmentByID(id int64) (*models.Subsegment, error) {
	var sub models.Subsegment
	var filtersJSON sql.NullString

	err := d.db.QueryRow(`
		SELECT id, segment_id, name, filters FROM subsegments WHERE id = ?
	`, id).Scan(&sub.ID, &sub.SegmentID, &sub.Name, &filtersJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query subsegment: %w", err)
	}

	if filtersJSON.Valid && filtersJSON.String != "" {
		var filters models.ObjectFilter
		if err := json.Unmarshal([]byte(filtersJSON.String), &filters); err != nil {
			return nil, fmt.Errorf("failed to parse subsegment %d filters: %w", sub.ID, err)
		}
		sub.Filters = &filters
	}
	return &sub, nil
}

// GetSubsegmentsBySegment returns the subsegments of one segment, in id order.
func (d *Database) GetSubsegmentsBySegment(segmentID int64) ([]models.Subsegment, error) {
	rows, err := d.db.Query(`
		SELECT id, segment_id, name, filters
		FROM subsegments
		WHERE segment_id = ?
		ORDER BY id
	`, segmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subsegments: %w", err)
	}
	defer rows.Close()

	return scanSubsegments(rows)
}

// GetSubsegmentsByArea returns every subsegment of every segment in an area,
// in segment-then-subsegment order.
func (d *Database) GetSubsegmentsByArea(areaID int64) ([]models.Subsegment, error) {
	rows, err := d.db.Query(`
		SELECT sub.id, sub.segment_id, sub.name, sub.filters
		FROM subsegments sub
		JOIN segments seg ON seg.id = sub.segment_id
		WHERE seg.map_area_id = ?
		ORDER BY sub.segment_id, sub.id
	`, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subsegments: %w", err)
	}
	defer rows.Close()

	return scanSubsegments(rows)
}

func scanSubsegments(rows *sql.Rows) ([]models.Subsegment, error) {
	var subsegments []models.Subsegment
	for rows.Next() {
		var sub models.Subsegment
		var filtersJSON sql.NullString

		if err := rows.Scan(&sub.ID, &sub.SegmentID, &sub.Name, &filtersJSON); err != nil {
			return nil, fmt.Errorf("failed to scan subsegment: %w", err)
		}
		if filtersJSON.Valid && filtersJSON.String != "" {
			var filters models.ObjectFilter
			if err := json.Unmarshal([]byte(filtersJSON.String), &filters); err != nil {
				return nil, fmt.Errorf("failed to parse subsegment %d filters: %w", sub.ID, err)
			}
			sub.Filters = &filters
		}
		subsegments = append(subsegments, sub)
	}
	return subsegments, rows.Err()
}

// GetAddressesInArea returns the addresses stored under an area.
func (d *Database) GetAddressesInArea(areaID int64) ([]models.Address, error) {
	rows, err := d.db.Query(`
		SELECT id, map_area_id, latitude, longitude, build_year, floors_total,
		       wall_material, ceiling_material, house_series, house_class, has_gas
		FROM addresses
		WHERE map_area_id = ?
		ORDER BY id
	`, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var addresses []models.Address
	for rows.Next() {
		var addr models.Address
		var latitude, longitude sql.NullFloat64
		var buildYear, floorsTotal sql.NullInt64
		var wallMaterial, ceilingMaterial, houseSeries, houseClass sql.NullString
		var hasGas sql.NullBool

		err := rows.Scan(
			&addr.ID,
			&addr.MapAreaID,
			&latitude,
			&longitude,
			&buildYear,
			&floorsTotal,
			&wallMaterial,
			&ceilingMaterial,
			&houseSeries,
			&houseClass,
			&hasGas,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}

		if latitude.Valid {
			lat := latitude.Float64
			addr.Latitude = &lat
		}
		if longitude.Valid {
			lon := longitude.Float64
			addr.Longitude = &lon
		}
		if buildYear.Valid {
			by := int(buildYear.Int64)
			addr.BuildYear = &by
		}
		if floorsTotal.Valid {
			ft := int(floorsTotal.Int64)
			addr.FloorsTotal = &ft
		}
		if wallMaterial.Valid {
			addr.WallMaterial = &wallMaterial.String
		}
		if ceilingMaterial.Valid {
			addr.CeilingMaterial = &ceilingMaterial.String
		}
		if houseSeries.Valid {
			addr.HouseSeries = &houseSeries.String
		}
		if houseClass.Valid {
			addr.HouseClass = &houseClass.String
		}
		if hasGas.Valid {
			gas := hasGas.Bool
			addr.HasGas = &gas
		}

		addresses = append(addresses, addr)
	}
	return addresses, rows.Err()
}

// GetObjectsByArea returns objects whose address belongs to an area.
func (d *Database) GetObjectsByArea(areaID int64) ([]models.RealEstateObject, error) {
	rows, err := d.db.Query(`
		SELECT o.id, o.status, o.address_id, o.current_price, o.area_total,
		       o.property_type, o.rooms, o.floor, o.floors_total,
		       COALESCE(o.created, ''), COALESCE(o.updated, '')
		FROM objects o
		JOIN addresses a ON a.id = o.address_id
		WHERE a.map_area_id = ?
		ORDER BY o.id
	`, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	var objects []models.RealEstateObject
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, *obj)
	}
	return objects, rows.Err()
}

// GetObjectByID returns one object, or nil when it does not exist.
func (d *Database) GetObjectByID(id int64) (*models.RealEstateObject, error) {
	row := d.db.QueryRow(`
		SELECT id, status, address_id, current_price, area_total,
		       property_type, rooms, floor, floors_total,
		       COALESCE(created, ''), COALESCE(updated, '')
		FROM objects
		WHERE id = ?
	`, id)

	obj, err := scanObject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func scanObject(row rowScanner) (*models.RealEstateObject, error) {
	var obj models.RealEstateObject
	var status, propertyType sql.NullString
	var currentPrice sql.NullInt64
	var areaTotal sql.NullFloat64
	var rooms, floor, floorsTotal sql.NullInt64
	var created, updated string

	err := row.Scan(
		&obj.ID,
		&status,
		&obj.AddressID,
		&currentPrice,
		&areaTotal,
		&propertyType,
		&rooms,
		&floor,
		&floorsTotal,
		&created,
		&updated,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan object: %w", err)
	}

	if status.Valid {
		obj.Status = models.ObjectStatus(status.String)
	}
	if propertyType.Valid {
		obj.PropertyType = propertyType.String
	}
	if currentPrice.Valid {
		obj.CurrentPrice = currentPrice.Int64
	}
	if areaTotal.Valid {
		obj.AreaTotal = areaTotal.Float64
	}
	if rooms.Valid {
		r := int(rooms.Int64)
		obj.Rooms = &r
	}
	if floor.Valid {
		f := int(floor.Int64)
		obj.Floor = &f
	}
	if floorsTotal.Valid {
		ft := int(floorsTotal.Int64)
		obj.FloorsTotal = &ft
	}
	if created != "" {
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			obj.Created = t
		} else {
			logrus.WithError(err).WithField("object_id", obj.ID).Warn("Failed to parse object created timestamp")
		}
	}
	if updated != "" {
		if t, err := time.Parse(time.RFC3339, updated); err == nil {
			obj.Updated = t
		} else {
			logrus.WithError(err).WithField("object_id", obj.ID).Warn("Failed to parse object updated timestamp")
		}
	}
	return &obj, nil
}

// GetEvaluations returns every persisted evaluation as an object-id to tag map.
func (d *Database) GetEvaluations() (map[int64]models.EvaluationTag, error) {
	rows, err := d.db.Query(`SELECT object_id, tag FROM evaluations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	evals := make(map[int64]models.EvaluationTag)
	for rows.Next() {
		var objectID int64
		var tag string
		if err := rows.Scan(&objectID, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evals[objectID] = models.EvaluationTag(tag)
	}
	return evals, rows.Err()
}

// PutEvaluation persists a user's evaluation of an object.
func (d *Database) PutEvaluation(objectID int64, tag models.EvaluationTag) error {
	_, err := d.db.Exec(`
		INSERT INTO evaluations (object_id, tag, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(object_id) DO UPDATE SET tag = excluded.tag, updated_at = excluded.updated_at
	`, objectID, string(tag), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	return nil
}

// DeleteEvaluation removes an object's persisted evaluation.
func (d *Database) DeleteEvaluation(objectID int64) error {
	_, err := d.db.Exec(`DELETE FROM evaluations WHERE object_id = ?`, objectID)
	if err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}
	return nil
}

// LoadDataset assembles the aggregator's snapshot for one area. A missing
// area yields an empty dataset so the caller can respond with empty reports
// rather than a fault.
func (d *Database) LoadDataset(areaID int64) (aggregator.Dataset, error) {
	var data aggregator.Dataset

	area, err := d.GetMapArea(areaID)
	if err != nil {
		return data, err
	}
	if area == nil {
		return data, nil
	}
	data.Area = area

	if data.Segments, err = d.GetSegmentsByArea(areaID); err != nil {
		return data, err
	}
	if data.Subsegments, err = d.GetSubsegmentsByArea(areaID); err != nil {
		return data, err
	}
	if data.Addresses, err = d.GetAddressesInArea(areaID); err != nil {
		return data, err
	}
	if data.Objects, err = d.GetObjectsByArea(areaID); err != nil {
		return data, err
	}
	return data, nil
}
