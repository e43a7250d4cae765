package store

import (
	"database/sql"
	"log"

	"github.com/jonboulle/clockwork"

	"github.com/oceanobs/buoywatch/internal/metrics"
	"github.com/oceanobs/buoywatch/internal/models"
)

// Batch sizes bound the statement count per transaction. A failed batch is
// retried row by row so one bad row cannot sink its neighbours.
const (
	stationBatchSize     = 200
	measurementBatchSize = 500
)

type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// New wraps an opened database. The clock drives now-relative queries and is
// swappable in tests.
func New(db *sql.DB, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{db: db, clock: clock}
}

func (s *Store) upsertStationTx(tx *sql.Tx, st models.Station) error {
	_, err := tx.Exec(`
		INSERT INTO stations (station_id, name, latitude, longitude, region, station_type, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(station_id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			region = excluded.region,
			station_type = excluded.station_type,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP
	`, st.StationID, st.Name, st.Latitude, st.Longitude, st.Region, st.StationType, st.Active)
	return err
}

// UpsertStations writes station records in batches, insert-or-update keyed by
// station_id. Returns the count of rows written. A batch failure is logged
// and the remaining batches proceed.
func (s *Store) UpsertStations(stations []models.Station) (int, error) {
	written := 0
	for start := 0; start < len(stations); start += stationBatchSize {
		end := start + stationBatchSize
		if end > len(stations) {
			end = len(stations)
		}
		batch := stations[start:end]

		n, err := s.writeStationBatch(batch)
		if err != nil {
			log.Printf("store: station batch %d-%d: %v", start, end, err)
			n = s.writeStationsIndividually(batch)
		}
		written += n
	}
	metrics.StationsUpserted.Add(float64(written))
	return written, nil
}

func (s *Store) writeStationBatch(batch []models.Station) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	for _, st := range batch {
		if err := s.upsertStationTx(tx, st); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(batch), nil
}

func (s *Store) writeStationsIndividually(batch []models.Station) int {
	written := 0
	for _, st := range batch {
		tx, err := s.db.Begin()
		if err != nil {
			continue
		}
		if err := s.upsertStationTx(tx, st); err != nil {
			tx.Rollback()
			log.Printf("store: upsert station %s: %v", st.StationID, err)
			continue
		}
		if err := tx.Commit(); err != nil {
			continue
		}
		written++
	}
	return written
}

func (s *Store) insertMeasurementTx(tx *sql.Tx, m models.Measurement) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO measurements (station_id, observed_at, wave_height, dominant_period, wave_direction,
			wind_speed, wind_direction, wind_gust, pressure, air_temp, water_temp, dewpoint, visibility)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id, observed_at) DO NOTHING
	`, m.StationID, m.ObservedAt, m.WaveHeight, m.DominantPeriod, m.WaveDirection,
		m.WindSpeed, m.WindDirection, m.WindGust, m.Pressure, m.AirTemp, m.WaterTemp, m.Dewpoint, m.Visibility)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertMeasurements writes measurement records in batches. The unique
// (station_id, observed_at) key makes re-ingestion a no-op; the count
// returned reflects genuinely new rows only. Rows referencing an unknown
// station are rejected by the foreign key and skipped.
func (s *Store) InsertMeasurements(measurements []models.Measurement) (int, error) {
	inserted := 0
	for start := 0; start < len(measurements); start += measurementBatchSize {
		end := start + measurementBatchSize
		if end > len(measurements) {
			end = len(measurements)
		}
		batch := measurements[start:end]

		n, err := s.writeMeasurementBatch(batch)
		if err != nil {
			log.Printf("store: measurement batch %d-%d: %v", start, end, err)
			n = s.writeMeasurementsIndividually(batch)
		}
		inserted += n
	}
	metrics.MeasurementsInserted.Add(float64(inserted))
	return inserted, nil
}

func (s *Store) writeMeasurementBatch(batch []models.Measurement) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	inserted := int64(0)
	for _, m := range batch {
		n, err := s.insertMeasurementTx(tx, m)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(inserted), nil
}

func (s *Store) writeMeasurementsIndividually(batch []models.Measurement) int {
	inserted := 0
	for _, m := range batch {
		tx, err := s.db.Begin()
		if err != nil {
			continue
		}
		n, err := s.insertMeasurementTx(tx, m)
		if err != nil {
			tx.Rollback()
			log.Printf("store: insert measurement %s@%s: %v", m.StationID, m.ObservedAt.Format("2006-01-02T15:04"), err)
			continue
		}
		if err := tx.Commit(); err != nil {
			continue
		}
		inserted += int(n)
	}
	return inserted
}
