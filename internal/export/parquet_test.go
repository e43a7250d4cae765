package export_test

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	parquet "github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/oceanobs/buoywatch/internal/export"
	"github.com/oceanobs/buoywatch/internal/models"
	"github.com/oceanobs/buoywatch/internal/store"
)

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func TestWrite_RoundTrip(t *testing.T) {
	observedAt := testNow.Add(-1 * time.Hour)
	measurements := []models.Measurement{
		{
			StationID:  "41001",
			ObservedAt: observedAt,
			WaveHeight: sql.NullFloat64{Float64: 1.5, Valid: true},
			WindSpeed:  sql.NullFloat64{Float64: 5.0, Valid: true},
		},
		{
			StationID:  "42001",
			ObservedAt: observedAt,
		},
	}

	var buf bytes.Buffer
	count, err := export.Write(&buf, measurements)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err := parquet.Read[export.MeasurementRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "41001", rows[0].StationID)
	assert.Equal(t, observedAt.Unix(), rows[0].ObservedAt)
	require.NotNil(t, rows[0].WaveHeightM)
	assert.Equal(t, 1.5, *rows[0].WaveHeightM)
	assert.Nil(t, rows[0].AirTempC, "missing reading exports as null")

	assert.Equal(t, "42001", rows[1].StationID)
	assert.Nil(t, rows[1].WaveHeightM)
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	count, err := export.Write(&buf, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestWriteFile(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	st := store.New(db, clockwork.NewFakeClockAt(testNow))
	require.NoError(t, st.Migrate())

	_, err = st.UpsertStations([]models.Station{
		{StationID: "41001", Name: "East Hatteras", Latitude: 34.7, Longitude: -72.7, Region: "atlantic", StationType: "buoy", Active: true},
	})
	require.NoError(t, err)
	_, err = st.InsertMeasurements([]models.Measurement{
		{StationID: "41001", ObservedAt: testNow.AddDate(0, 0, -40)},
		{StationID: "41001", ObservedAt: testNow.AddDate(0, 0, -10)},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "measurements.parquet")
	count, err := export.WriteFile(st, path, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// Windowed export only includes the recent row.
	path = filepath.Join(t.TempDir(), "recent.parquet")
	count, err = export.WriteFile(st, path, 15)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
