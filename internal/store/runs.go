package store

import (
	"database/sql"

	"github.com/oceanobs/buoywatch/internal/metrics"
	"github.com/oceanobs/buoywatch/internal/models"
)

const maxErrorMessageLen = 500

// StartRun creates a new ingestion run record in "running" state.
func (s *Store) StartRun() (*models.IngestionRun, error) {
	run := &models.IngestionRun{
		StartedAt: s.clock.Now().UTC(),
		Status:    models.RunStatusRunning,
	}

	result, err := s.db.Exec(`
		INSERT INTO ingestion_runs (started_at, status) VALUES (?, ?)
	`, run.StartedAt, run.Status)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteRun records the run outcome. Called exactly once per run; the row
// is read-only afterward.
func (s *Store) CompleteRun(run *models.IngestionRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: s.clock.Now().UTC(), Valid: true}
	if run.ErrorMessage.Valid && len(run.ErrorMessage.String) > maxErrorMessageLen {
		run.ErrorMessage.String = run.ErrorMessage.String[:maxErrorMessageLen]
	}

	_, err := s.db.Exec(`
		UPDATE ingestion_runs SET
			finished_at = ?,
			status = ?,
			stations_count = ?,
			measurements_count = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.Status, run.StationsCount, run.MeasurementsCount, run.ErrorMessage, run.ID)
	if err != nil {
		return err
	}
	metrics.IngestionRunsTotal.WithLabelValues(run.Status).Inc()
	return nil
}

// LatestRun returns the most recent run record, or nil when no run has
// executed yet.
func (s *Store) LatestRun() (*models.IngestionRun, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, status, stations_count, measurements_count, error_message
		FROM ingestion_runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`)

	var run models.IngestionRun
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status,
		&run.StationsCount, &run.MeasurementsCount, &run.ErrorMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RecentRuns returns the latest run records for operational inspection.
func (s *Store) RecentRuns(limit int) ([]models.IngestionRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, status, stations_count, measurements_count, error_message
		FROM ingestion_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.IngestionRun
	for rows.Next() {
		var run models.IngestionRun
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status,
			&run.StationsCount, &run.MeasurementsCount, &run.ErrorMessage); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
