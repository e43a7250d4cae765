package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oceanobs/buoywatch/internal/models"
)

// Buoy-style stations carry 5-digit numeric IDs; the station table mixes in
// ship reports and coastal stations with alphanumeric codes we don't want.
var stationIDPattern = regexp.MustCompile(`^\d{5}$`)

var coordPattern = regexp.MustCompile(`^([0-9.]+)\s*([NSEWnsew])$`)

const maxStationNameLen = 200

// RegionMap maps a two-digit station-ID prefix to an ocean region.
type RegionMap map[string]string

// DefaultRegionMap returns the NDBC prefix classification. Unknown prefixes
// classify as "other".
func DefaultRegionMap() RegionMap {
	return RegionMap{
		"41": "atlantic",    // Western Atlantic
		"42": "gulf",        // Gulf of Mexico
		"44": "atlantic",    // Northeast US Atlantic
		"45": "great_lakes", // Great Lakes
		"46": "pacific",     // Northeast Pacific
		"51": "pacific",     // Hawaii
		"52": "pacific",     // Pacific Islands
	}
}

// StationParser converts station_table.txt into station records. The region
// table is fixed at construction so classification is deterministic.
type StationParser struct {
	regions RegionMap
}

func NewStationParser(regions RegionMap) *StationParser {
	if regions == nil {
		regions = DefaultRegionMap()
	}
	return &StationParser{regions: regions}
}

// Parse reads the pipe-delimited station table. Rows that are malformed,
// non-buoy, or carry unparsable coordinates are dropped; a bad row never
// fails the batch.
func (p *StationParser) Parse(body []byte) []models.Station {
	var stations []models.Station

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "|--") {
			continue
		}

		var parts []string
		for _, f := range strings.Split(line, "|") {
			if f = strings.TrimSpace(f); f != "" {
				parts = append(parts, f)
			}
		}
		if len(parts) < 4 {
			continue
		}

		stationID := parts[0]
		if !stationIDPattern.MatchString(stationID) {
			continue
		}

		lat, err := ParseCoordinate(parts[2])
		if err != nil {
			continue
		}
		lon, err := ParseCoordinate(parts[3])
		if err != nil {
			continue
		}

		name := parts[1]
		if len(name) > maxStationNameLen {
			name = name[:maxStationNameLen]
		}

		stations = append(stations, models.Station{
			StationID:   stationID,
			Name:        name,
			Latitude:    lat,
			Longitude:   lon,
			Region:      p.Classify(stationID),
			StationType: "buoy",
			Active:      true,
		})
	}

	return stations
}

// Classify buckets a station into an ocean region by its ID prefix.
func (p *StationParser) Classify(stationID string) string {
	for prefix, region := range p.regions {
		if strings.HasPrefix(stationID, prefix) {
			return region
		}
	}
	return "other"
}

// ParseCoordinate parses "34.700 N" or "72.700 W" into signed decimal
// degrees. South and west are negative.
func ParseCoordinate(s string) (float64, error) {
	m := coordPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("malformed coordinate %q", s)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed coordinate %q: %w", s, err)
	}
	switch strings.ToUpper(m[2]) {
	case "S", "W":
		value = -value
	}
	return value, nil
}
