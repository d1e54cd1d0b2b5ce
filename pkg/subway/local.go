package subway

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/subwaycore/subway-go/internal/config"
	"github.com/subwaycore/subway-go/internal/feed"
	"github.com/subwaycore/subway-go/internal/graph"
	"github.com/subwaycore/subway-go/internal/gtfs"
	"github.com/subwaycore/subway-go/internal/models"
	"github.com/subwaycore/subway-go/internal/transit"
)

// LocalClient runs the whole engine in process: embedded station data,
// the schedule source and the live arrival cache.
type LocalClient struct {
	graph    *graph.Graph
	engine   *transit.Engine
	schedule *gtfs.Source

	cancel context.CancelFunc
	done   chan struct{}
}

// NewLocal builds a local client. The schedule index loads in the
// background; until it lands, travel times use the per-stop estimate.
func NewLocal(cfg config.Config) (*LocalClient, error) {
	g, err := graph.Load()
	if err != nil {
		return nil, err
	}

	arrivals := feed.NewCache(feed.Config{
		LineFeeds: cfg.LineFeeds(),
		APIKey:    cfg.FeedAPIKey,
		TTL:       cfg.FeedTTL(),
		Timeout:   cfg.FeedTimeout(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	c := &LocalClient{
		graph:    g,
		engine:   transit.NewEngine(g, arrivals),
		schedule: gtfs.NewSource(cfg.ScheduleURL, cfg.CacheDir, cfg.ScheduleTimeout()),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(c.done)
		idx, err := c.schedule.LoadOrRefresh(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Schedule data unavailable, using estimated travel times")
			return
		}
		c.engine.SetScheduleIndex(idx)
	}()

	return c, nil
}

// Close stops the background schedule load and waits for it to finish.
func (c *LocalClient) Close() {
	c.cancel()
	<-c.done
}

// RefreshSchedule discards the cached schedule archive, downloads a
// fresh one and swaps the index in atomically.
func (c *LocalClient) RefreshSchedule(ctx context.Context) error {
	if err := c.schedule.Invalidate(); err != nil {
		return err
	}
	idx, err := c.schedule.LoadOrRefresh(ctx)
	if err != nil {
		return err
	}
	c.engine.SetScheduleIndex(idx)
	return nil
}

func (c *LocalClient) FindRoute(ctx context.Context, fromID, toID string) (*models.Route, error) {
	return c.engine.FindRoute(ctx, fromID, toID)
}

func (c *LocalClient) TravelTimeOnLine(ctx context.Context, fromID, toID, line string) (int, error) {
	return c.engine.TravelTimeOnLine(ctx, fromID, toID, line)
}

func (c *LocalClient) GetArrivals(ctx context.Context, stationID string, lines []string) ([]models.Arrival, error) {
	return c.engine.GetArrivals(ctx, stationID, lines)
}

func (c *LocalClient) Compare(ctx context.Context, req models.CompareRequest) (*models.Comparison, error) {
	return c.engine.Compare(ctx, req)
}

func (c *LocalClient) Station(idOrAlias string) (*models.Station, error) {
	return c.engine.Station(idOrAlias)
}

func (c *LocalClient) StationsOnLine(line string) ([]models.Station, error) {
	return c.engine.StationsOnLine(line)
}

func (c *LocalClient) Lines() []string {
	return c.engine.Lines()
}

func (c *LocalClient) NearestStations(lat, lon float64, limit int) []models.Station {
	return c.graph.NearestStations(lat, lon, limit)
}
