package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/oceanobs/buoywatch/internal/api"
	"github.com/oceanobs/buoywatch/internal/export"
	"github.com/oceanobs/buoywatch/internal/ingest"
	"github.com/oceanobs/buoywatch/internal/store"
)

type cli struct {
	DB string `name:"db" default:"data/buoywatch.db" env:"BUOYWATCH_DB" help:"Path to the SQLite database."`

	Serve    serveCmd    `cmd:"" default:"withargs" help:"Run the ingestion scheduler and HTTP API."`
	Ingest   ingestCmd   `cmd:"" help:"Run one ingestion pass and exit."`
	Backfill backfillCmd `cmd:"" help:"Backfill observation history for stations and exit."`
	Prune    pruneCmd    `cmd:"" help:"Delete measurements older than the retention window and exit."`
	Status   statusCmd   `cmd:"" help:"Print recent ingestion runs and store counts."`
	Export   exportCmd   `cmd:"" help:"Export measurements to a Parquet archive."`
}

// app carries the wired dependencies into command Run methods.
type app struct {
	ctx   context.Context
	store *store.Store
	feeds *ingest.FeedClient
}

type serveCmd struct {
	Addr          string `default:":8080" env:"BUOYWATCH_ADDR" help:"HTTP listen address."`
	RetentionDays int    `default:"90" env:"BUOYWATCH_RETENTION_DAYS" help:"Measurement retention window in days (0 disables pruning)."`
	NoPoll        bool   `help:"Disable the scheduler (serve queries only, for local dev)."`
}

func (c *serveCmd) Run(a *app) error {
	server := api.NewServer(a.store, c.Addr)

	if !c.NoPoll {
		scheduler := ingest.NewScheduler(a.store, a.feeds, nil)
		scheduler.SetRetention(c.RetentionDays)
		go scheduler.Run(a.ctx)
	}

	log.Printf("main: serving on %s", c.Addr)
	return server.Run(a.ctx)
}

type ingestCmd struct{}

func (c *ingestCmd) Run(a *app) error {
	return ingest.NewScheduler(a.store, a.feeds, nil).IngestOnce(a.ctx)
}

type backfillCmd struct {
	Stations []string `arg:"" optional:"" help:"Station IDs to backfill (default set when omitted)."`
}

func (c *backfillCmd) Run(a *app) error {
	return ingest.NewScheduler(a.store, a.feeds, nil).Backfill(a.ctx, c.Stations)
}

type pruneCmd struct {
	Days int `default:"90" help:"Delete measurements observed more than this many days ago."`
}

func (c *pruneCmd) Run(a *app) error {
	deleted, err := a.store.PruneMeasurements(c.Days)
	if err != nil {
		return err
	}
	fmt.Printf("pruned %d measurements older than %d days\n", deleted, c.Days)
	return nil
}

type statusCmd struct {
	Limit int `default:"10" help:"Number of recent runs to show."`
}

func (c *statusCmd) Run(a *app) error {
	status, err := a.store.PipelineStatus()
	if err != nil {
		return err
	}

	fmt.Printf("active stations:    %d\n", status.ActiveStations)
	fmt.Printf("total measurements: %d\n", status.TotalMeasurements)
	if status.OldestMeasurement.Valid {
		fmt.Printf("oldest measurement: %s\n", status.OldestMeasurement.Time.Format("2006-01-02 15:04 MST"))
	}
	if status.NewestMeasurement.Valid {
		fmt.Printf("newest measurement: %s\n", status.NewestMeasurement.Time.Format("2006-01-02 15:04 MST"))
	}

	runs, err := a.store.RecentRuns(c.Limit)
	if err != nil {
		return err
	}
	fmt.Println("\nrecent runs:")
	for _, run := range runs {
		line := fmt.Sprintf("  #%d %s %s", run.ID, run.StartedAt.Format("2006-01-02 15:04"), run.Status)
		if run.StationsCount.Valid {
			line += fmt.Sprintf(" stations=%d", run.StationsCount.Int64)
		}
		if run.MeasurementsCount.Valid {
			line += fmt.Sprintf(" measurements=%d", run.MeasurementsCount.Int64)
		}
		if run.ErrorMessage.Valid {
			line += " error=" + run.ErrorMessage.String
		}
		fmt.Println(line)
	}
	return nil
}

type exportCmd struct {
	Out  string `default:"measurements.parquet" help:"Output file path."`
	Days int    `default:"0" help:"Export only the last N days (0 exports everything)."`
}

func (c *exportCmd) Run(a *app) error {
	count, err := export.WriteFile(a.store, c.Out, c.Days)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d measurements to %s\n", count, c.Out)
	return nil
}

func main() {
	var flags cli
	kctx := kong.Parse(&flags,
		kong.Name("buoywatch"),
		kong.Description("NDBC buoy observation ingestion and dashboard API."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	// Pragmas go in the DSN so every pooled connection gets them; a one-off
	// Exec would only configure whichever connection ran it.
	dsn := flags.DB + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("main: open database: %v", err)
	}
	defer db.Close()

	st := store.New(db, nil)
	if err := st.Migrate(); err != nil {
		log.Fatalf("main: migrate: %v", err)
	}
	log.Println("main: database migrated")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&app{
		ctx:   ctx,
		store: st,
		feeds: ingest.NewFeedClient(),
	})
	kctx.FatalIfErrorf(err)
}
