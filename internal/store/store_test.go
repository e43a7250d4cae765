package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/oceanobs/buoywatch/internal/models"
)

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := clockwork.NewFakeClockAt(testNow)
	store := New(db, clock)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store, clock
}

func testStation(stationID, region string, lat, lon float64) models.Station {
	return models.Station{
		StationID:   stationID,
		Name:        "Station " + stationID,
		Latitude:    lat,
		Longitude:   lon,
		Region:      region,
		StationType: "buoy",
		Active:      true,
	}
}

func testMeasurement(stationID string, observedAt time.Time) models.Measurement {
	return models.Measurement{
		StationID:  stationID,
		ObservedAt: observedAt,
		WaveHeight: sql.NullFloat64{Float64: 1.5, Valid: true},
		WindSpeed:  sql.NullFloat64{Float64: 5.0, Valid: true},
		Pressure:   sql.NullFloat64{Float64: 1015.2, Valid: true},
	}
}

func TestUpsertStations_InsertAndUpdate(t *testing.T) {
	store, _ := setupTestStore(t)

	stations := []models.Station{
		testStation("41001", "atlantic", 34.7, -72.7),
		testStation("42001", "gulf", 25.9, -89.7),
	}
	written, err := store.UpsertStations(stations)
	if err != nil {
		t.Fatalf("UpsertStations: %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}

	stations[0].Name = "East Hatteras"
	stations[0].Active = false
	if _, err := store.UpsertStations(stations[:1]); err != nil {
		t.Fatalf("UpsertStations update: %v", err)
	}

	results, err := store.StationsWithLatest()
	if err != nil {
		t.Fatalf("StationsWithLatest: %v", err)
	}
	// 41001 went inactive, only 42001 remains visible.
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Station.StationID != "42001" {
		t.Errorf("StationID = %q, want 42001", results[0].Station.StationID)
	}

	var name string
	var total int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM stations`).Scan(&total); err != nil {
		t.Fatalf("count stations: %v", err)
	}
	if total != 2 {
		t.Errorf("station rows = %d, want 2 (upsert must not duplicate)", total)
	}
	if err := store.db.QueryRow(`SELECT name FROM stations WHERE station_id = '41001'`).Scan(&name); err != nil {
		t.Fatalf("select name: %v", err)
	}
	if name != "East Hatteras" {
		t.Errorf("name = %q, want 'East Hatteras'", name)
	}
}

func TestUpsertStations_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	written, err := store.UpsertStations(nil)
	if err != nil {
		t.Fatalf("UpsertStations: %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
}

func TestInsertMeasurements_DuplicateIgnored(t *testing.T) {
	store, _ := setupTestStore(t)

	if _, err := store.UpsertStations([]models.Station{testStation("41001", "atlantic", 34.7, -72.7)}); err != nil {
		t.Fatalf("UpsertStations: %v", err)
	}

	observedAt := testNow.Add(-1 * time.Hour)
	inserted, err := store.InsertMeasurements([]models.Measurement{testMeasurement("41001", observedAt)})
	if err != nil {
		t.Fatalf("InsertMeasurements: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("inserted = %d, want 1", inserted)
	}

	// Same (station, observed_at) key with a different reading: the original
	// row wins and the count reflects no new rows.
	dup := testMeasurement("41001", observedAt)
	dup.WaveHeight = sql.NullFloat64{Float64: 9.9, Valid: true}
	inserted, err = store.InsertMeasurements([]models.Measurement{dup})
	if err != nil {
		t.Fatalf("InsertMeasurements duplicate: %v", err)
	}
	if inserted != 0 {
		t.Errorf("inserted = %d, want 0", inserted)
	}

	series, err := store.StationSeries("41001", 24)
	if err != nil {
		t.Fatalf("StationSeries: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("len(series) = %d, want 1", len(series))
	}
	if series[0].WaveHeight.Float64 != 1.5 {
		t.Errorf("WaveHeight = %v, want 1.5 (first write wins)", series[0].WaveHeight.Float64)
	}
}

func TestInsertMeasurements_NullReadings(t *testing.T) {
	store, _ := setupTestStore(t)

	if _, err := store.UpsertStations([]models.Station{testStation("41001", "atlantic", 34.7, -72.7)}); err != nil {
		t.Fatalf("UpsertStations: %v", err)
	}

	m := models.Measurement{StationID: "41001", ObservedAt: testNow.Add(-1 * time.Hour)}
	if _, err := store.InsertMeasurements([]models.Measurement{m}); err != nil {
		t.Fatalf("InsertMeasurements: %v", err)
	}

	series, err := store.StationSeries("41001", 24)
	if err != nil {
		t.Fatalf("StationSeries: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("len(series) = %d, want 1", len(series))
	}
	got := series[0]
	if got.WaveHeight.Valid || got.WindSpeed.Valid || got.Visibility.Valid {
		t.Errorf("missing readings must stay NULL, got %+v", got)
	}
}

func TestInsertMeasurements_OrphanRejected(t *testing.T) {
	store, _ := setupTestStore(t)

	if _, err := store.UpsertStations([]models.Station{testStation("41001", "atlantic", 34.7, -72.7)}); err != nil {
		t.Fatalf("UpsertStations: %v", err)
	}

	inserted, err := store.InsertMeasurements([]models.Measurement{
		testMeasurement("99999", testNow.Add(-1*time.Hour)),
	})
	if err != nil {
		t.Fatalf("InsertMeasurements: %v", err)
	}
	if inserted != 0 {
		t.Errorf("inserted = %d, want 0 (unknown station must be rejected)", inserted)
	}

	// A batch mixing a valid row with an orphan: the batch fails, the per-row
	// fallback keeps the valid one.
	inserted, err = store.InsertMeasurements([]models.Measurement{
		testMeasurement("41001", testNow.Add(-1*time.Hour)),
		testMeasurement("99999", testNow.Add(-2*time.Hour)),
	})
	if err != nil {
		t.Fatalf("InsertMeasurements mixed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1 (orphan skipped, valid row kept)", inserted)
	}

	var total int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM measurements`).Scan(&total); err != nil {
		t.Fatalf("count measurements: %v", err)
	}
	if total != 1 {
		t.Errorf("measurement rows = %d, want 1", total)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}
