// Package gtfs acquires and indexes the bulk GTFS static schedule. The
// archive is downloaded once to a well-known local path and reused across
// restarts; every failure mode surfaces as an error the caller absorbs by
// falling back to estimated travel times.
package gtfs

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

// DefaultURL is the MTA subway schedule archive.
const DefaultURL = "https://rrgtfsfeeds.s3.amazonaws.com/gtfs_subway.zip"

// DefaultTimeout bounds the bulk download; the archive runs to tens of
// megabytes.
const DefaultTimeout = 120 * time.Second

// Source downloads, caches and parses the schedule archive.
type Source struct {
	url        string
	cachePath  string
	httpClient *http.Client
}

// NewSource creates a schedule source caching the archive at
// filepath.Join(cacheDir, "gtfs_subway.zip").
func NewSource(url, cacheDir string, timeout time.Duration) *Source {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Source{
		url:       url,
		cachePath: filepath.Join(cacheDir, "gtfs_subway.zip"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CachePath returns where the raw archive is stored.
func (s *Source) CachePath() string {
	return s.cachePath
}

// Invalidate removes the cached archive so the next load re-downloads.
func (s *Source) Invalidate() error {
	err := os.Remove(s.cachePath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// LoadOrRefresh returns the travel-time index, downloading the archive
// first if no cached copy exists. The cached copy is trusted for the
// whole session; schedule data changes rarely and the download is
// expensive. Any error means "schedule data unavailable" and the caller
// must fall back, not fail.
func (s *Source) LoadOrRefresh(ctx context.Context) (*Index, error) {
	if _, err := os.Stat(s.cachePath); err != nil {
		if err := s.download(ctx); err != nil {
			return nil, err
		}
	}

	sched, err := ParseZip(s.cachePath)
	if err != nil {
		return nil, err
	}

	idx := BuildIndex(sched)
	log.Info().
		Int("stops", len(sched.Stops)).
		Int("routes", len(sched.Routes)).
		Int("segments", idx.Len()).
		Msg("Schedule index built")
	return idx, nil
}

func (s *Source) download(ctx context.Context) error {
	log.Info().Str("url", s.url).Msg("Downloading GTFS schedule archive")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching schedule archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("schedule download: HTTP %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o755); err != nil {
		return err
	}

	// Write to a temp file and rename so a failed download never leaves a
	// truncated archive at the cache path.
	tmp, err := os.CreateTemp(filepath.Dir(s.cachePath), "gtfs_subway-*.zip")
	if err != nil {
		return err
	}
	written, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing schedule archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.cachePath); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	log.Info().
		Str("path", s.cachePath).
		Int64("bytes", written).
		Msg("GTFS schedule archive downloaded")
	return nil
}

// ParseZip reads the schedule files out of a GTFS archive.
func ParseZip(path string) (*Schedule, error) {
	// Some feeds ship rows with missing trailing columns.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	sched := &Schedule{}
	fileMap := map[string]interface{}{
		"stops.txt":      &sched.Stops,
		"routes.txt":     &sched.Routes,
		"trips.txt":      &sched.Trips,
		"stop_times.txt": &sched.StopTimes,
	}

	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening schedule archive: %w", err)
	}
	defer archive.Close()

	found := 0
	for _, zipFile := range archive.File {
		destination, wanted := fileMap[zipFile.Name]
		if !wanted {
			continue
		}

		reader, err := zipFile.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", zipFile.Name, err)
		}
		err = gocsv.Unmarshal(reader, destination)
		reader.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", zipFile.Name, err)
		}
		found++
	}

	if found < len(fileMap) {
		return nil, fmt.Errorf("schedule archive incomplete: %d of %d files present", found, len(fileMap))
	}
	return sched, nil
}
