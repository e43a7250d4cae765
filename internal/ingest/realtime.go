package ingest

import (
	"strings"

	"github.com/oceanobs/buoywatch/internal/models"
)

// ParseRealtime reads a station's realtime2 file, which holds ~45 days of
// hourly observations in standard meteorological format:
//
//	#YY  MM DD hh mm WDIR WSPD GST  WVHT   DPD   APD MWD   PRES  ATMP  WTMP  DEWP  VIS PTDY  TIDE
//
// The station ID comes from the file name, not the rows. Row-level errors
// skip that row only.
func ParseRealtime(stationID string, body []byte) []models.Measurement {
	var measurements []models.Measurement

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 17 {
			continue
		}

		observedAt, ok := utcTimestamp(parts[0], parts[1], parts[2], parts[3], parts[4])
		if !ok {
			continue
		}

		m := models.Measurement{
			StationID:      stationID,
			ObservedAt:     observedAt,
			WindDirection:  nullFloat(parts[5]),
			WindSpeed:      nullFloat(parts[6]),
			WindGust:       nullFloat(parts[7]),
			WaveHeight:     nullFloat(parts[8]),
			DominantPeriod: nullFloat(parts[9]),
			WaveDirection:  nullFloat(parts[11]),
			Pressure:       nullFloat(parts[12]),
			AirTemp:        nullFloat(parts[13]),
			WaterTemp:      nullFloat(parts[14]),
			Dewpoint:       nullFloat(parts[15]),
			Visibility:     nullFloat(parts[16]),
		}

		measurements = append(measurements, m)
	}

	return measurements
}
