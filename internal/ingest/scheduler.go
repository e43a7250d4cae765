package ingest

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/oceanobs/buoywatch/internal/models"
	"github.com/oceanobs/buoywatch/internal/store"
)

// DefaultBackfillStations is the station set used by the historical backfill
// when none is given: a spread across the Atlantic, Gulf, Northeast Atlantic,
// Pacific and Hawaii networks.
var DefaultBackfillStations = []string{
	"41001", "41002", "41004", "41008", "41009",
	"42001", "42002", "42003", "42019", "42020",
	"44013", "44017", "44025",
	"46001", "46005", "46011", "46025", "46042",
	"51001", "51002", "51003",
}

// Scheduler drives the hourly ingestion pipeline and the retention sweep.
// A run fetches both feeds, writes stations before measurements, and always
// terminates with a logged run status; nothing in a run panics the process.
type Scheduler struct {
	store          *store.Store
	feeds          *FeedClient
	stations       *StationParser
	clock          clockwork.Clock
	ingestInterval time.Duration
	pruneInterval  time.Duration
	retentionDays  int
	fetchTimeout   time.Duration
}

func NewScheduler(st *store.Store, feeds *FeedClient, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		store:          st,
		feeds:          feeds,
		stations:       NewStationParser(nil),
		clock:          clock,
		ingestInterval: 1 * time.Hour,
		pruneInterval:  7 * 24 * time.Hour,
		retentionDays:  0, // disabled unless configured
		fetchTimeout:   2 * time.Minute,
	}
}

// SetRetention enables the periodic retention sweep.
func (s *Scheduler) SetRetention(days int) {
	s.retentionDays = days
}

func (s *Scheduler) Run(ctx context.Context) {
	if err := s.IngestOnce(ctx); err != nil {
		log.Printf("scheduler: ingest: %v", err)
	}

	ingestTicker := s.clock.NewTicker(s.ingestInterval)
	pruneTicker := s.clock.NewTicker(s.pruneInterval)
	defer ingestTicker.Stop()
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-ingestTicker.Chan():
			if err := s.IngestOnce(ctx); err != nil {
				log.Printf("scheduler: ingest: %v", err)
			}
		case <-pruneTicker.Chan():
			if s.retentionDays > 0 {
				s.prune()
			}
		}
	}
}

// IngestOnce executes one full pipeline run: fetch station table, fetch
// latest observations, upsert stations then measurements, record the run.
// A manual invocation behaves identically to a scheduled one.
func (s *Scheduler) IngestOnce(ctx context.Context) error {
	run, err := s.store.StartRun()
	if err != nil {
		log.Printf("scheduler: start run record: %v", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	stationBody, err := s.feeds.Fetch(fetchCtx, StationTablePath)
	cancel()
	if err != nil {
		s.failRun(run, err)
		return err
	}

	stations := s.stations.Parse(stationBody)
	stationCount, err := s.store.UpsertStations(stations)
	if err != nil {
		log.Printf("scheduler: upsert stations: %v", err)
	}
	log.Printf("scheduler: upserted %d stations", stationCount)
	if run != nil {
		run.StationsCount = sql.NullInt64{Int64: int64(stationCount), Valid: true}
	}

	fetchCtx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
	obsBody, err := s.feeds.Fetch(fetchCtx, LatestObsPath)
	cancel()
	if err != nil {
		s.failRun(run, err)
		return err
	}

	measurements := ParseLatestObservations(obsBody)
	measurementCount, err := s.store.InsertMeasurements(measurements)
	if err != nil {
		log.Printf("scheduler: insert measurements: %v", err)
	}
	log.Printf("scheduler: inserted %d measurements", measurementCount)

	if run != nil {
		run.MeasurementsCount = sql.NullInt64{Int64: int64(measurementCount), Valid: true}
		run.Status = models.RunStatusSuccess
		if err := s.store.CompleteRun(run); err != nil {
			log.Printf("scheduler: complete run record: %v", err)
		}
	}
	return nil
}

func (s *Scheduler) failRun(run *models.IngestionRun, cause error) {
	if run == nil {
		return
	}
	run.Status = models.RunStatusError
	run.ErrorMessage = sql.NullString{String: cause.Error(), Valid: true}
	if err := s.store.CompleteRun(run); err != nil {
		log.Printf("scheduler: complete run record: %v", err)
	}
}

// Backfill fetches each station's realtime2 history (~45 days hourly) and
// inserts it. A station whose file is missing is skipped, not fatal.
func (s *Scheduler) Backfill(ctx context.Context, stationIDs []string) error {
	if len(stationIDs) == 0 {
		stationIDs = DefaultBackfillStations
	}

	total := 0
	for _, stationID := range stationIDs {
		fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		body, err := s.feeds.Fetch(fetchCtx, RealtimePath(stationID))
		cancel()
		if err != nil {
			log.Printf("scheduler: backfill %s: %v", stationID, err)
			continue
		}

		measurements := ParseRealtime(stationID, body)
		inserted, err := s.store.InsertMeasurements(measurements)
		if err != nil {
			log.Printf("scheduler: backfill insert %s: %v", stationID, err)
			continue
		}
		log.Printf("scheduler: backfilled %s: %d measurements", stationID, inserted)
		total += inserted
	}

	log.Printf("scheduler: backfill complete: %d measurements", total)
	return nil
}

func (s *Scheduler) prune() {
	deleted, err := s.store.PruneMeasurements(s.retentionDays)
	if err != nil {
		log.Printf("scheduler: prune: %v", err)
		return
	}
	log.Printf("scheduler: pruned %d measurements older than %d days", deleted, s.retentionDays)
}
