package database

import "fmt"

func (d *Database) RunMigrations() error {
	statements := []struct {
		name string
		sql  string
	}{
		{
			name: "map_areas",
			sql: `
				CREATE TABLE IF NOT EXISTS map_areas (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					polygon TEXT,
					created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
				);
			`,
		},
		{
			name: "addresses",
			sql: `
				CREATE TABLE IF NOT EXISTS addresses (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					map_area_id INTEGER NOT NULL,
					latitude REAL,
					longitude REAL,
					build_year INTEGER,
					floors_total INTEGER,
					wall_material TEXT,
					ceiling_material TEXT,
					house_series TEXT,
					house_class TEXT,
					has_gas BOOLEAN,
					created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
				);
			`,
		},
		{
			name: "segments",
			sql: `
				CREATE TABLE IF NOT EXISTS segments (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					map_area_id INTEGER NOT NULL,
					name TEXT NOT NULL,
					filters TEXT,
					created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
				);
			`,
		},
		{
			name: "subsegments",
			sql: `
				CREATE TABLE IF NOT EXISTS subsegments (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					segment_id INTEGER NOT NULL,
					name TEXT NOT NULL,
					filters TEXT,
					created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
				);
			`,
		},
		{
			name: "objects",
			sql: `
				CREATE TABLE IF NOT EXISTS objects (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					status TEXT NOT NULL DEFAULT 'active',
					address_id INTEGER NOT NULL,
					current_price INTEGER,
					area_total REAL,
					property_type TEXT,
					rooms INTEGER,
					floor INTEGER,
					floors_total INTEGER,
					created TIMESTAMP,
					updated TIMESTAMP
				);
			`,
		},
		{
			name: "evaluations",
			sql: `
				CREATE TABLE IF NOT EXISTS evaluations (
					object_id INTEGER PRIMARY KEY,
					tag TEXT NOT NULL,
					updated_at TIMESTAMP
				);
			`,
		},
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.name, err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_addresses_area ON addresses(map_area_id);`,
		`CREATE INDEX IF NOT EXISTS idx_segments_area ON segments(map_area_id);`,
		`CREATE INDEX IF NOT EXISTS idx_subsegments_segment ON subsegments(segment_id);`,
		`CREATE INDEX IF NOT EXISTS idx_objects_address ON objects(address_id);`,
		`CREATE INDEX IF NOT EXISTS idx_objects_status ON objects(status);`,
	}
	for _, idx := range indexes {
		if _, err := d.db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}
