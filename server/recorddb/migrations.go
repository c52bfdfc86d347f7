package recorddb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE vehicle_crossing(
			id INTEGER PRIMARY KEY,
			track_id INT NOT NULL,
			direction TEXT NOT NULL,
			color TEXT NOT NULL,
			type TEXT NOT NULL,
			video_time REAL NOT NULL,
			created_at INT NOT NULL
		);

		CREATE TABLE alert(
			id INTEGER PRIMARY KEY,
			kind TEXT NOT NULL,
			track_id INT NOT NULL,
			message TEXT NOT NULL,
			severity TEXT NOT NULL,
			created_at INT NOT NULL
		);

	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE INDEX idx_vehicle_crossing_created_at ON vehicle_crossing(created_at);
		CREATE INDEX idx_alert_created_at ON alert(created_at);
	`))

	return migs
}
