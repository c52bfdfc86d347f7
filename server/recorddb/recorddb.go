// Package recorddb persists counted crossings and raised alerts to sqlite,
// so that counts and reports survive a restart.
package recorddb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/vigiacam/vigia/pkg/analytics"
	"github.com/vigiacam/vigia/pkg/counter"
	"gorm.io/gorm"
)

type RecordDB struct {
	Log logs.Log
	DB  *gorm.DB
}

// Open or create the record DB
func Open(logger logs.Log, dbFilename string) (*RecordDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0777)
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open database %v: %w", dbFilename, err)
	}
	return &RecordDB{
		Log: logger,
		DB:  db,
	}, nil
}

// RecordCrossing saves one counted vehicle. Implements monitor.Recorder.
func (r *RecordDB) RecordCrossing(rec counter.VehicleRecord) error {
	row := &VehicleCrossing{
		TrackID:   rec.TrackID,
		Direction: string(rec.Direction),
		Color:     string(rec.Color),
		Type:      rec.Type,
		VideoTime: rec.Timestamp,
		CreatedAt: dbh.MakeIntTime(time.Now()),
	}
	return r.DB.Create(row).Error
}

// RecordAlert saves one raised alert. Implements monitor.Recorder.
func (r *RecordDB) RecordAlert(alert analytics.Alert) error {
	row := &AlertRow{
		Kind:      alert.Type,
		TrackID:   alert.TrackID,
		Message:   alert.Message,
		Severity:  alert.Severity,
		CreatedAt: dbh.MakeIntTime(alert.Timestamp),
	}
	return r.DB.Create(row).Error
}

// Crossings returns the most recent crossings, newest first. limit <= 0
// returns everything.
func (r *RecordDB) Crossings(limit int) ([]VehicleCrossing, error) {
	rows := []VehicleCrossing{}
	q := r.DB.Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Alerts returns the most recent alerts, newest first. limit <= 0 returns
// everything.
func (r *RecordDB) Alerts(limit int) ([]AlertRow, error) {
	rows := []AlertRow{}
	q := r.DB.Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DirectionTotals returns the all-time entrada and saida counts.
func (r *RecordDB) DirectionTotals() (entrada, saida int64, err error) {
	if err = r.DB.Model(&VehicleCrossing{}).Where("direction = ?", "entrada").Count(&entrada).Error; err != nil {
		return
	}
	err = r.DB.Model(&VehicleCrossing{}).Where("direction = ?", "saida").Count(&saida).Error
	return
}

// Purge deletes all stored crossings and alerts.
func (r *RecordDB) Purge() error {
	if err := r.DB.Where("1 = 1").Delete(&VehicleCrossing{}).Error; err != nil {
		return err
	}
	return r.DB.Where("1 = 1").Delete(&AlertRow{}).Error
}
