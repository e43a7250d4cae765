package ingest

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/oceanobs/buoywatch/internal/models"
)

// NDBC marks missing readings with "MM" or a field-dependent out-of-range
// magnitude. Both normalize to NULL, never to a numeric zero.
const missingToken = "MM"

var missingMagnitudes = map[float64]struct{}{
	99:   {},
	999:  {},
	9999: {},
}

// nullFloat parses one feed value, mapping empty strings, the missing token
// and the sentinel magnitudes to an invalid NullFloat64.
func nullFloat(s string) sql.NullFloat64 {
	s = strings.TrimSpace(s)
	if s == "" || s == missingToken {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	if _, missing := missingMagnitudes[v]; missing {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// utcTimestamp combines feed date components into a UTC instant. Components
// outside calendar range are rejected rather than normalized.
func utcTimestamp(year, month, day, hour, minute string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 23 {
		return time.Time{}, false
	}
	mi, err := strconv.Atoi(minute)
	if err != nil || mi < 0 || mi > 59 {
		return time.Time{}, false
	}
	ts := time.Date(y, time.Month(mo), d, h, mi, 0, 0, time.UTC)
	if ts.Day() != d {
		// time.Date normalizes Feb 30 and friends; treat that as malformed.
		return time.Time{}, false
	}
	return ts, true
}

// ParseLatestObservations reads latest_obs.txt, one whitespace-delimited row
// per station:
//
//	#STN LAT LON YYYY MM DD hh mm WDIR WSPD GST WVHT DPD APD MWD PRES ATMP WTMP DEWP VIS TIDE
//
// Malformed rows (wrong column count, bad date, non-buoy ID) are skipped
// individually.
func ParseLatestObservations(body []byte) []models.Measurement {
	var measurements []models.Measurement

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 19 {
			continue
		}

		stationID := parts[0]
		if !stationIDPattern.MatchString(stationID) {
			continue
		}

		observedAt, ok := utcTimestamp(parts[3], parts[4], parts[5], parts[6], parts[7])
		if !ok {
			continue
		}

		m := models.Measurement{
			StationID:      stationID,
			ObservedAt:     observedAt,
			WindDirection:  nullFloat(parts[8]),
			WindSpeed:      nullFloat(parts[9]),
			WindGust:       nullFloat(parts[10]),
			WaveHeight:     nullFloat(parts[11]),
			DominantPeriod: nullFloat(parts[12]),
			// parts[13] is APD (average period), not stored.
			WaveDirection: nullFloat(parts[14]),
			Pressure:      nullFloat(parts[15]),
			AirTemp:       nullFloat(parts[16]),
			WaterTemp:     nullFloat(parts[17]),
			Dewpoint:      nullFloat(parts[18]),
		}
		if len(parts) > 19 {
			m.Visibility = nullFloat(parts[19])
		}

		measurements = append(measurements, m)
	}

	return measurements
}
