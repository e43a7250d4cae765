package models

import (
	"database/sql"
	"time"
)

type Station struct {
	StationID   string
	Name        string
	Latitude    float64
	Longitude   float64
	Region      string // "atlantic", "gulf", "great_lakes", "pacific", "other"
	StationType string
	Active      bool
}

// Measurement is one observation snapshot for one station. Every sensor field
// is independently nullable: NDBC marks missing readings with sentinel values
// that parse to NULL, never to zero.
type Measurement struct {
	ID             int64
	StationID      string
	ObservedAt     time.Time
	WaveHeight     sql.NullFloat64
	DominantPeriod sql.NullFloat64
	WaveDirection  sql.NullFloat64
	WindSpeed      sql.NullFloat64
	WindDirection  sql.NullFloat64
	WindGust       sql.NullFloat64
	Pressure       sql.NullFloat64
	AirTemp        sql.NullFloat64
	WaterTemp      sql.NullFloat64
	Dewpoint       sql.NullFloat64
	Visibility     sql.NullFloat64
	CreatedAt      time.Time
}

const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// IngestionRun is the audit record for one pipeline execution.
type IngestionRun struct {
	ID                int64
	StartedAt         time.Time
	FinishedAt        sql.NullTime
	Status            string
	StationsCount     sql.NullInt64
	MeasurementsCount sql.NullInt64
	ErrorMessage      sql.NullString
}
