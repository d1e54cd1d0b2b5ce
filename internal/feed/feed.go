// Package feed caches real-time train arrival predictions from the MTA
// GTFS-realtime feeds. Entries are cached per feed URL for a short window
// and refreshed with a single-flight discipline, so concurrent queries
// for the same stations never stack duplicate fetches on the provider.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"google.golang.org/protobuf/proto"

	"github.com/subwaycore/subway-go/internal/models"
)

const (
	// DefaultTTL balances freshness against feed-provider load.
	DefaultTTL = 30 * time.Second
	// DefaultTimeout bounds a single live feed fetch.
	DefaultTimeout = 10 * time.Second
)

// FetchFunc retrieves the raw protobuf body of one feed URL.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Config for the arrival cache.
type Config struct {
	// LineFeeds maps a line label to the GTFS-RT feed URL covering it.
	LineFeeds map[string]string
	// APIKey is sent as the x-api-key header when set; some providers
	// require none.
	APIKey  string
	TTL     time.Duration
	Timeout time.Duration
}

type cacheEntry struct {
	fetchedAt time.Time
	feed      *gtfsrt.FeedMessage
}

// Cache fetches and time-bounds-caches arrival predictions.
type Cache struct {
	lineFeeds map[string]string
	ttl       time.Duration

	fetch FetchFunc
	now   func() time.Time

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache creates an arrival cache with the given configuration.
func NewCache(cfg Config) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Cache{
		lineFeeds: cfg.LineFeeds,
		ttl:       ttl,
		now:       time.Now,
		entries:   make(map[string]cacheEntry),
	}
	c.fetch = httpFetcher(&http.Client{Timeout: timeout}, cfg.APIKey)
	return c
}

func httpFetcher(client *http.Client, apiKey string) FetchFunc {
	return func(ctx context.Context, url string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		if apiKey != "" {
			req.Header.Set("x-api-key", apiKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
}

// GetArrivals returns upcoming arrivals at a station, soonest first.
// lines, when non-empty, restricts both which feeds are queried and
// which predictions are returned. An empty result means no real-time
// data is available, never that no trains run.
func (c *Cache) GetArrivals(ctx context.Context, station *models.Station, lines []string) []models.Arrival {
	if station == nil {
		return nil
	}

	filter := make(map[string]bool, len(lines))
	for _, l := range lines {
		filter[strings.ToUpper(l)] = true
	}

	wanted := lines
	if len(wanted) == 0 {
		wanted = station.Lines
	}
	urls := make(map[string]bool)
	for _, line := range wanted {
		if url, ok := c.lineFeeds[strings.ToUpper(line)]; ok {
			urls[url] = true
		}
	}
	ordered := make([]string, 0, len(urls))
	for url := range urls {
		ordered = append(ordered, url)
	}
	sort.Strings(ordered)

	now := c.now()
	var arrivals []models.Arrival
	for _, url := range ordered {
		feed, err := c.feedMessage(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Live feed unavailable")
			continue
		}
		arrivals = append(arrivals, extractArrivals(feed, station, filter, now)...)
	}

	sort.SliceStable(arrivals, func(i, j int) bool {
		if arrivals[i].Minutes != arrivals[j].Minutes {
			return arrivals[i].Minutes < arrivals[j].Minutes
		}
		return arrivals[i].Line < arrivals[j].Line
	})
	return arrivals
}

// feedMessage returns the cached feed for a URL, fetching at most once
// per validity window no matter how many goroutines ask at once.
func (c *Cache) feedMessage(ctx context.Context, url string) (*gtfsrt.FeedMessage, error) {
	if feed, ok := c.fresh(url); ok {
		return feed, nil
	}

	v, err, _ := c.group.Do(url, func() (interface{}, error) {
		// A waiter may have queued behind the flight that just
		// refreshed this entry.
		if feed, ok := c.fresh(url); ok {
			return feed, nil
		}

		body, err := c.fetch(ctx, url)
		if err != nil {
			return nil, err
		}

		feed := &gtfsrt.FeedMessage{}
		if err := proto.Unmarshal(body, feed); err != nil {
			return nil, fmt.Errorf("decoding feed: %w", err)
		}

		c.mu.Lock()
		c.entries[url] = cacheEntry{fetchedAt: c.now(), feed: feed}
		c.mu.Unlock()
		return feed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*gtfsrt.FeedMessage), nil
}

func (c *Cache) fresh(url string) (*gtfsrt.FeedMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[url]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.feed, true
}

func extractArrivals(feed *gtfsrt.FeedMessage, station *models.Station, filter map[string]bool, now time.Time) []models.Arrival {
	var out []models.Arrival
	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}

		routeID := tripUpdate.GetTrip().GetRouteId()
		if len(filter) > 0 && !filter[strings.ToUpper(routeID)] {
			continue
		}

		for _, stu := range tripUpdate.GetStopTimeUpdate() {
			stopID, dir := SplitStopID(stu.GetStopId())
			if stopID != station.GTFSStopID {
				continue
			}

			// Terminal stops often carry only a departure time.
			ts := stu.GetArrival().GetTime()
			if ts == 0 {
				ts = stu.GetDeparture().GetTime()
			}
			if ts == 0 {
				continue
			}

			minutes := int(time.Unix(ts, 0).Sub(now).Minutes())
			if minutes < 0 {
				continue
			}

			out = append(out, models.Arrival{
				Line:       routeID,
				Direction:  dir,
				Minutes:    minutes,
				TripID:     tripUpdate.GetTrip().GetTripId(),
				ObservedAt: now,
			})
		}
	}
	return out
}

// SplitStopID separates a GTFS stop id like "142N" into the station-level
// stop id and the direction encoded in its suffix.
func SplitStopID(stopID string) (string, models.Direction) {
	if len(stopID) > 1 {
		switch stopID[len(stopID)-1] {
		case 'N':
			return stopID[:len(stopID)-1], models.North
		case 'S':
			return stopID[:len(stopID)-1], models.South
		}
	}
	return stopID, ""
}
