package store

import (
	"database/sql"
	"time"

	"github.com/oceanobs/buoywatch/internal/metrics"
	"github.com/oceanobs/buoywatch/internal/models"
)

// StationWithLatest pairs a station with its most recent measurement, or nil
// when the station has not reported yet.
type StationWithLatest struct {
	Station models.Station
	Latest  *models.Measurement
}

const latestJoin = `
	LEFT JOIN measurements m ON m.id = (
		SELECT id FROM measurements
		WHERE station_id = s.station_id
		ORDER BY observed_at DESC
		LIMIT 1
	)`

const stationLatestColumns = `
	s.station_id, s.name, s.latitude, s.longitude, s.region, s.station_type, s.active,
	m.id, m.observed_at, m.wave_height, m.dominant_period, m.wave_direction,
	m.wind_speed, m.wind_direction, m.wind_gust, m.pressure, m.air_temp,
	m.water_temp, m.dewpoint, m.visibility`

func scanStationWithLatest(rows *sql.Rows) (StationWithLatest, error) {
	var r StationWithLatest
	var (
		mid        sql.NullInt64
		observedAt sql.NullTime
		m          models.Measurement
	)
	if err := rows.Scan(
		&r.Station.StationID, &r.Station.Name, &r.Station.Latitude, &r.Station.Longitude,
		&r.Station.Region, &r.Station.StationType, &r.Station.Active,
		&mid, &observedAt, &m.WaveHeight, &m.DominantPeriod, &m.WaveDirection,
		&m.WindSpeed, &m.WindDirection, &m.WindGust, &m.Pressure, &m.AirTemp,
		&m.WaterTemp, &m.Dewpoint, &m.Visibility,
	); err != nil {
		return r, err
	}
	if mid.Valid {
		m.ID = mid.Int64
		m.StationID = r.Station.StationID
		m.ObservedAt = observedAt.Time
		r.Latest = &m
	}
	return r, nil
}

// StationsWithLatest returns every active station left-joined to its most
// recent measurement, ordered by region then name. Stations that have not
// reported appear with Latest nil.
func (s *Store) StationsWithLatest() ([]StationWithLatest, error) {
	rows, err := s.db.Query(`
		SELECT `+stationLatestColumns+`
		FROM stations s`+latestJoin+`
		WHERE s.active = TRUE
		ORDER BY s.region, s.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StationWithLatest
	for rows.Next() {
		r, err := scanStationWithLatest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// StationSeries returns all measurements for one station within the lookback
// window [now-hours, now], ascending by time. The window boundary is
// inclusive. An unknown station yields an empty slice, not an error.
func (s *Store) StationSeries(stationID string, hours int) ([]models.Measurement, error) {
	now := s.clock.Now().UTC()
	since := now.Add(-time.Duration(hours) * time.Hour)

	rows, err := s.db.Query(`
		SELECT id, station_id, observed_at, wave_height, dominant_period, wave_direction,
			wind_speed, wind_direction, wind_gust, pressure, air_temp, water_temp, dewpoint, visibility, created_at
		FROM measurements
		WHERE station_id = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`, stationID, since, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var measurements []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(&m.ID, &m.StationID, &m.ObservedAt, &m.WaveHeight, &m.DominantPeriod, &m.WaveDirection,
			&m.WindSpeed, &m.WindDirection, &m.WindGust, &m.Pressure, &m.AirTemp, &m.WaterTemp, &m.Dewpoint,
			&m.Visibility, &m.CreatedAt); err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}
	return measurements, rows.Err()
}

// StationsInBounds returns active stations whose coordinates fall inside the
// box (inclusive bounds), each with its latest measurement, ordered by name.
// An inverted box (min > max) yields an empty result.
func (s *Store) StationsInBounds(minLat, maxLat, minLon, maxLon float64) ([]StationWithLatest, error) {
	rows, err := s.db.Query(`
		SELECT `+stationLatestColumns+`
		FROM stations s`+latestJoin+`
		WHERE s.active = TRUE
		  AND s.latitude BETWEEN ? AND ?
		  AND s.longitude BETWEEN ? AND ?
		ORDER BY s.name
	`, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StationWithLatest
	for rows.Next() {
		r, err := scanStationWithLatest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// PipelineStatus is an operational snapshot: the most recent run plus
// aggregate store counts.
type PipelineStatus struct {
	LastRun           *models.IngestionRun
	ActiveStations    int64
	TotalMeasurements int64
	OldestMeasurement sql.NullTime
	NewestMeasurement sql.NullTime
}

func (s *Store) PipelineStatus() (*PipelineStatus, error) {
	status := &PipelineStatus{}

	run, err := s.LatestRun()
	if err != nil {
		return nil, err
	}
	status.LastRun = run

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM stations WHERE active = TRUE`).Scan(&status.ActiveStations); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM measurements`).Scan(&status.TotalMeasurements); err != nil {
		return nil, err
	}

	// Plain-column lookups rather than MIN()/MAX(): aggregate expressions lose
	// the DATETIME decltype, so the driver hands back a string that cannot
	// scan into NullTime.
	var bound time.Time
	err = s.db.QueryRow(`SELECT observed_at FROM measurements ORDER BY observed_at ASC LIMIT 1`).Scan(&bound)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, err
	default:
		status.OldestMeasurement = sql.NullTime{Time: bound, Valid: true}
	}
	err = s.db.QueryRow(`SELECT observed_at FROM measurements ORDER BY observed_at DESC LIMIT 1`).Scan(&bound)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, err
	default:
		status.NewestMeasurement = sql.NullTime{Time: bound, Valid: true}
	}

	return status, nil
}

// MeasurementsWithin returns all measurements observed in the last N days
// across every station, ascending by time. days <= 0 returns everything.
// Used by the archive export.
func (s *Store) MeasurementsWithin(days int) ([]models.Measurement, error) {
	query := `
		SELECT id, station_id, observed_at, wave_height, dominant_period, wave_direction,
			wind_speed, wind_direction, wind_gust, pressure, air_temp, water_temp, dewpoint, visibility, created_at
		FROM measurements`
	args := []any{}
	if days > 0 {
		query += ` WHERE observed_at >= ?`
		args = append(args, s.clock.Now().UTC().AddDate(0, 0, -days))
	}
	query += ` ORDER BY observed_at ASC, station_id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var measurements []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(&m.ID, &m.StationID, &m.ObservedAt, &m.WaveHeight, &m.DominantPeriod, &m.WaveDirection,
			&m.WindSpeed, &m.WindDirection, &m.WindGust, &m.Pressure, &m.AirTemp, &m.WaterTemp, &m.Dewpoint,
			&m.Visibility, &m.CreatedAt); err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}
	return measurements, rows.Err()
}

// PruneMeasurements deletes measurements older than the retention window and
// returns the count removed. Runs independently of ingestion.
func (s *Store) PruneMeasurements(olderThanDays int) (int64, error) {
	cutoff := s.clock.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.Exec(`DELETE FROM measurements WHERE observed_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	metrics.MeasurementsPruned.Add(float64(deleted))
	return deleted, nil
}
