package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oceanobs/buoywatch/internal/models"
	"github.com/oceanobs/buoywatch/internal/store"
)

// Wire shapes. Nullable readings serialize as JSON null so consumers can
// distinguish "no data" from zero.

type measurementJSON struct {
	ObservedAt     time.Time `json:"observed_at"`
	WaveHeight     *float64  `json:"wave_height"`
	DominantPeriod *float64  `json:"dominant_period"`
	WaveDirection  *float64  `json:"wave_direction"`
	WindSpeed      *float64  `json:"wind_speed"`
	WindDirection  *float64  `json:"wind_direction"`
	WindGust       *float64  `json:"wind_gust"`
	Pressure       *float64  `json:"pressure"`
	AirTemp        *float64  `json:"air_temp"`
	WaterTemp      *float64  `json:"water_temp"`
	Dewpoint       *float64  `json:"dewpoint"`
	Visibility     *float64  `json:"visibility"`
}

type stationJSON struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Latitude    float64          `json:"latitude"`
	Longitude   float64          `json:"longitude"`
	Region      string           `json:"region"`
	StationType string           `json:"station_type"`
	Latest      *measurementJSON `json:"latest"`
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func toMeasurementJSON(m *models.Measurement) *measurementJSON {
	if m == nil {
		return nil
	}
	return &measurementJSON{
		ObservedAt:     m.ObservedAt,
		WaveHeight:     floatPtr(m.WaveHeight),
		DominantPeriod: floatPtr(m.DominantPeriod),
		WaveDirection:  floatPtr(m.WaveDirection),
		WindSpeed:      floatPtr(m.WindSpeed),
		WindDirection:  floatPtr(m.WindDirection),
		WindGust:       floatPtr(m.WindGust),
		Pressure:       floatPtr(m.Pressure),
		AirTemp:        floatPtr(m.AirTemp),
		WaterTemp:      floatPtr(m.WaterTemp),
		Dewpoint:       floatPtr(m.Dewpoint),
		Visibility:     floatPtr(m.Visibility),
	}
}

func toStationJSON(r store.StationWithLatest) stationJSON {
	return stationJSON{
		ID:          r.Station.StationID,
		Name:        r.Station.Name,
		Latitude:    r.Station.Latitude,
		Longitude:   r.Station.Longitude,
		Region:      r.Station.Region,
		StationType: r.Station.StationType,
		Latest:      toMeasurementJSON(r.Latest),
	}
}

// handleStations returns every active station with its latest measurement.
// GET /api/v1/stations
func (s *Server) handleStations(c *gin.Context) {
	results, err := s.store.StationsWithLatest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	stations := make([]stationJSON, 0, len(results))
	for _, r := range results {
		stations = append(stations, toStationJSON(r))
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stations,
		"meta": gin.H{"count": len(stations)},
	})
}

// handleStationSeries returns a station's measurements within a lookback
// window. Unknown stations yield an empty series, not an error.
// GET /api/v1/stations/:id/series?hours=24
func (s *Server) handleStationSeries(c *gin.Context) {
	stationID := c.Param("id")

	hours := 24
	if hoursStr := c.Query("hours"); hoursStr != "" {
		parsed, err := strconv.Atoi(hoursStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hours"})
			return
		}
		hours = parsed
	}

	measurements, err := s.store.StationSeries(stationID, hours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	series := make([]*measurementJSON, 0, len(measurements))
	for i := range measurements {
		series = append(series, toMeasurementJSON(&measurements[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"station_id": stationID,
		"hours":      hours,
		"data":       series,
		"meta":       gin.H{"count": len(series)},
	})
}

// handleStationsInBounds returns active stations within a bounding box.
// GET /api/v1/stations/bounds?min_lat=&max_lat=&min_lon=&max_lon=
func (s *Server) handleStationsInBounds(c *gin.Context) {
	parse := func(name string) (float64, bool) {
		v, err := strconv.ParseFloat(c.Query(name), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
			return 0, false
		}
		return v, true
	}

	minLat, ok := parse("min_lat")
	if !ok {
		return
	}
	maxLat, ok := parse("max_lat")
	if !ok {
		return
	}
	minLon, ok := parse("min_lon")
	if !ok {
		return
	}
	maxLon, ok := parse("max_lon")
	if !ok {
		return
	}

	results, err := s.store.StationsInBounds(minLat, maxLat, minLon, maxLon)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	stations := make([]stationJSON, 0, len(results))
	for _, r := range results {
		stations = append(stations, toStationJSON(r))
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stations,
		"meta": gin.H{"count": len(stations)},
	})
}

type runJSON struct {
	ID                int64      `json:"id"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at"`
	Status            string     `json:"status"`
	StationsCount     *int64     `json:"stations_count"`
	MeasurementsCount *int64     `json:"measurements_count"`
	ErrorMessage      *string    `json:"error_message"`
}

// handleStatus returns the latest run record plus aggregate store counts.
// GET /api/v1/status
func (s *Server) handleStatus(c *gin.Context) {
	status, err := s.store.PipelineStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var lastRun *runJSON
	if status.LastRun != nil {
		r := status.LastRun
		lastRun = &runJSON{
			ID:        r.ID,
			StartedAt: r.StartedAt,
			Status:    r.Status,
		}
		if r.FinishedAt.Valid {
			t := r.FinishedAt.Time
			lastRun.FinishedAt = &t
		}
		if r.StationsCount.Valid {
			n := r.StationsCount.Int64
			lastRun.StationsCount = &n
		}
		if r.MeasurementsCount.Valid {
			n := r.MeasurementsCount.Int64
			lastRun.MeasurementsCount = &n
		}
		if r.ErrorMessage.Valid {
			msg := r.ErrorMessage.String
			lastRun.ErrorMessage = &msg
		}
	}

	var oldest, newest *time.Time
	if status.OldestMeasurement.Valid {
		t := status.OldestMeasurement.Time
		oldest = &t
	}
	if status.NewestMeasurement.Valid {
		t := status.NewestMeasurement.Time
		newest = &t
	}

	c.JSON(http.StatusOK, gin.H{
		"last_run":           lastRun,
		"active_stations":    status.ActiveStations,
		"total_measurements": status.TotalMeasurements,
		"oldest_measurement": oldest,
		"newest_measurement": newest,
	})
}
