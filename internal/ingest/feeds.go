package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"

	"github.com/oceanobs/buoywatch/internal/metrics"
)

const (
	ndbcHTTPBase = "https://www.ndbc.noaa.gov"
	ndbcFTPHost  = "ftp.ndbc.noaa.gov:21"

	StationTablePath = "/data/stations/station_table.txt"
	LatestObsPath    = "/data/latest_obs/latest_obs.txt"
	realtimeBase     = "/data/realtime2"

	defaultTimeout = 30 * time.Second
)

// RealtimePath returns the feed path for a station's 45-day realtime file.
func RealtimePath(stationID string) string {
	return fmt.Sprintf("%s/%s.txt", realtimeBase, stationID)
}

// FeedProvider fetches one NDBC feed path over a single transport.
type FeedProvider interface {
	Name() string
	Fetch(ctx context.Context, path string) ([]byte, error)
}

type HTTPProvider struct {
	base   string
	client *http.Client
}

func NewHTTPProvider() *HTTPProvider {
	return &HTTPProvider{
		base:   ndbcHTTPBase,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) Fetch(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d", path, resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// FTPProvider fetches feeds from NDBC's anonymous FTP mirror. Used as a
// fallback when the HTTP endpoint is unavailable.
type FTPProvider struct {
	host string
}

func NewFTPProvider() *FTPProvider {
	return &FTPProvider{host: ndbcFTPHost}
}

func (p *FTPProvider) Name() string { return "ftp" }

func (p *FTPProvider) Fetch(ctx context.Context, path string) ([]byte, error) {
	conn, err := ftp.Dial(p.host, ftp.DialWithTimeout(defaultTimeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", path, err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// FeedClient tries each provider in order; the first success wins.
type FeedClient struct {
	providers []FeedProvider
}

func NewFeedClient(providers ...FeedProvider) *FeedClient {
	if len(providers) == 0 {
		providers = []FeedProvider{NewHTTPProvider(), NewFTPProvider()}
	}
	return &FeedClient{providers: providers}
}

func (c *FeedClient) Fetch(ctx context.Context, path string) ([]byte, error) {
	var errs []error
	for _, p := range c.providers {
		start := time.Now()
		body, err := p.Fetch(ctx, path)
		if err == nil {
			metrics.FeedFetchesTotal.WithLabelValues(path, p.Name(), "ok").Inc()
			metrics.FeedFetchLatency.WithLabelValues(path, p.Name()).Observe(time.Since(start).Seconds())
			return body, nil
		}
		metrics.FeedFetchesTotal.WithLabelValues(path, p.Name(), "error").Inc()
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return nil, fmt.Errorf("fetch %s: %w", path, errors.Join(errs...))
}
