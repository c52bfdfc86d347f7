package recorddb

import "github.com/cyclopcam/dbh"

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// VehicleCrossing is one counted vehicle.
type VehicleCrossing struct {
	BaseModel
	TrackID   int64       `json:"trackID"`
	Direction string      `json:"direction"`
	Color     string      `json:"color"`
	Type      string      `json:"type"`
	VideoTime float64     `json:"videoTime"` // seconds into the stream
	CreatedAt dbh.IntTime `json:"createdAt"`
}

// AlertRow is one raised alert.
type AlertRow struct {
	BaseModel
	Kind      string      `json:"kind"`
	TrackID   int64       `json:"trackID"`
	Message   string      `json:"message"`
	Severity  string      `json:"severity"`
	CreatedAt dbh.IntTime `json:"createdAt"`
}

func (AlertRow) TableName() string {
	return "alert"
}
