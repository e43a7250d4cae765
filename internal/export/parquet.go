// Package export writes measurement archives as Parquet files for offline
// analysis. The export reads from the store only; it never blocks ingestion.
package export

import (
	"database/sql"
	"io"
	"os"

	parquet "github.com/parquet-go/parquet-go"

	"github.com/oceanobs/buoywatch/internal/models"
	"github.com/oceanobs/buoywatch/internal/store"
)

// MeasurementRow is the Parquet schema for one archived observation.
// Readings missing at observation time are written as nulls.
type MeasurementRow struct {
	StationID     string   `parquet:"station_id"`
	ObservedAt    int64    `parquet:"observed_at"`
	WaveHeightM   *float64 `parquet:"wave_height_m"`
	DominantPerS  *float64 `parquet:"dominant_period_s"`
	WaveDirDeg    *float64 `parquet:"wave_direction_deg"`
	WindSpeedMS   *float64 `parquet:"wind_speed_ms"`
	WindDirDeg    *float64 `parquet:"wind_direction_deg"`
	WindGustMS    *float64 `parquet:"wind_gust_ms"`
	PressureHPa   *float64 `parquet:"pressure_hpa"`
	AirTempC      *float64 `parquet:"air_temp_c"`
	WaterTempC    *float64 `parquet:"water_temp_c"`
	DewpointC     *float64 `parquet:"dewpoint_c"`
	VisibilityNMI *float64 `parquet:"visibility_nmi"`
}

func nullPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func toRow(m models.Measurement) MeasurementRow {
	return MeasurementRow{
		StationID:     m.StationID,
		ObservedAt:    m.ObservedAt.Unix(),
		WaveHeightM:   nullPtr(m.WaveHeight),
		DominantPerS:  nullPtr(m.DominantPeriod),
		WaveDirDeg:    nullPtr(m.WaveDirection),
		WindSpeedMS:   nullPtr(m.WindSpeed),
		WindDirDeg:    nullPtr(m.WindDirection),
		WindGustMS:    nullPtr(m.WindGust),
		PressureHPa:   nullPtr(m.Pressure),
		AirTempC:      nullPtr(m.AirTemp),
		WaterTempC:    nullPtr(m.WaterTemp),
		DewpointC:     nullPtr(m.Dewpoint),
		VisibilityNMI: nullPtr(m.Visibility),
	}
}

// Write streams measurements to w in Parquet format and returns the row count.
func Write(w io.Writer, measurements []models.Measurement) (int, error) {
	rows := make([]MeasurementRow, 0, len(measurements))
	for _, m := range measurements {
		rows = append(rows, toRow(m))
	}

	pw := parquet.NewGenericWriter[MeasurementRow](w)
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			pw.Close()
			return 0, err
		}
	}
	if err := pw.Close(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// WriteFile exports the last N days of measurements (all days when days <= 0)
// to path. The file is written atomically via a .tmp intermediate.
func WriteFile(st *store.Store, path string, days int) (int, error) {
	measurements, err := st.MeasurementsWithin(days)
	if err != nil {
		return 0, err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}

	count, err := Write(f, measurements)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return count, nil
}
