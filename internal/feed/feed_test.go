package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/subwaycore/subway-go/internal/models"
)

var baseTime = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func southFerry() *models.Station {
	return &models.Station{
		ID:         "south_ferry",
		Name:       "South Ferry",
		Lines:      []string{"1"},
		GTFSStopID: "142",
	}
}

type tripSpec struct {
	route  string
	tripID string
	stops  map[string]int64 // stop id -> arrival unix time
}

func marshalFeed(t *testing.T, trips ...tripSpec) []byte {
	t.Helper()

	feed := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
		},
	}
	for i, trip := range trips {
		update := &gtfsrt.TripUpdate{
			Trip: &gtfsrt.TripDescriptor{
				RouteId: proto.String(trip.route),
				TripId:  proto.String(trip.tripID),
			},
		}
		for stopID, ts := range trip.stops {
			update.StopTimeUpdate = append(update.StopTimeUpdate, &gtfsrt.TripUpdate_StopTimeUpdate{
				StopId: proto.String(stopID),
				Arrival: &gtfsrt.TripUpdate_StopTimeEvent{
					Time: proto.Int64(ts),
				},
			})
		}
		feed.Entity = append(feed.Entity, &gtfsrt.FeedEntity{
			Id:         proto.String(string(rune('a' + i))),
			TripUpdate: update,
		})
	}

	body, err := proto.Marshal(feed)
	if err != nil {
		t.Fatalf("marshaling feed: %v", err)
	}
	return body
}

func newTestCache(fetch FetchFunc) *Cache {
	c := NewCache(Config{
		LineFeeds: map[string]string{
			"1": "feed://123",
			"2": "feed://123",
			"3": "feed://123",
		},
	})
	c.fetch = fetch
	c.now = func() time.Time { return baseTime }
	return c
}

func TestGetArrivalsSortedAndDirectional(t *testing.T) {
	body := marshalFeed(t,
		tripSpec{route: "1", tripID: "t1", stops: map[string]int64{
			"142N": baseTime.Add(7 * time.Minute).Unix(),
		}},
		tripSpec{route: "1", tripID: "t2", stops: map[string]int64{
			"142N": baseTime.Add(2 * time.Minute).Unix(),
			"142S": baseTime.Add(4 * time.Minute).Unix(),
		}},
		// Already departed, must be dropped.
		tripSpec{route: "1", tripID: "t3", stops: map[string]int64{
			"142N": baseTime.Add(-3 * time.Minute).Unix(),
		}},
		// Different station, must be ignored.
		tripSpec{route: "1", tripID: "t4", stops: map[string]int64{
			"137N": baseTime.Add(1 * time.Minute).Unix(),
		}},
	)

	c := newTestCache(func(ctx context.Context, url string) ([]byte, error) {
		return body, nil
	})

	arrivals := c.GetArrivals(context.Background(), southFerry(), nil)
	if len(arrivals) != 3 {
		t.Fatalf("Expected 3 arrivals, got %d: %+v", len(arrivals), arrivals)
	}

	wantMinutes := []int{2, 4, 7}
	wantDir := []models.Direction{models.North, models.South, models.North}
	for i, a := range arrivals {
		if a.Minutes != wantMinutes[i] {
			t.Errorf("Arrival %d: expected %d min, got %d", i, wantMinutes[i], a.Minutes)
		}
		if a.Direction != wantDir[i] {
			t.Errorf("Arrival %d: expected direction %s, got %s", i, wantDir[i], a.Direction)
		}
	}
}

func TestGetArrivalsLineFilter(t *testing.T) {
	body := marshalFeed(t,
		tripSpec{route: "1", tripID: "t1", stops: map[string]int64{
			"142N": baseTime.Add(2 * time.Minute).Unix(),
		}},
		tripSpec{route: "2", tripID: "t2", stops: map[string]int64{
			"142N": baseTime.Add(3 * time.Minute).Unix(),
		}},
	)

	c := newTestCache(func(ctx context.Context, url string) ([]byte, error) {
		return body, nil
	})

	arrivals := c.GetArrivals(context.Background(), southFerry(), []string{"2"})
	if len(arrivals) != 1 {
		t.Fatalf("Expected 1 arrival, got %d", len(arrivals))
	}
	if arrivals[0].Line != "2" {
		t.Errorf("Expected line 2, got %s", arrivals[0].Line)
	}
}

func TestGetArrivalsDepartureFallback(t *testing.T) {
	feed := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfsrt.FeedEntity{
			{
				Id: proto.String("a"),
				TripUpdate: &gtfsrt.TripUpdate{
					Trip: &gtfsrt.TripDescriptor{RouteId: proto.String("1")},
					StopTimeUpdate: []*gtfsrt.TripUpdate_StopTimeUpdate{
						{
							StopId: proto.String("142N"),
							Departure: &gtfsrt.TripUpdate_StopTimeEvent{
								Time: proto.Int64(baseTime.Add(5 * time.Minute).Unix()),
							},
						},
					},
				},
			},
		},
	}
	body, err := proto.Marshal(feed)
	if err != nil {
		t.Fatal(err)
	}

	c := newTestCache(func(ctx context.Context, url string) ([]byte, error) {
		return body, nil
	})

	arrivals := c.GetArrivals(context.Background(), southFerry(), nil)
	if len(arrivals) != 1 || arrivals[0].Minutes != 5 {
		t.Fatalf("Expected one 5-minute arrival from departure time, got %+v", arrivals)
	}
}

func TestGetArrivalsFetchFailure(t *testing.T) {
	c := newTestCache(func(ctx context.Context, url string) ([]byte, error) {
		return nil, errors.New("connection refused")
	})

	arrivals := c.GetArrivals(context.Background(), southFerry(), nil)
	if len(arrivals) != 0 {
		t.Errorf("Expected empty arrivals on fetch failure, got %d", len(arrivals))
	}
}

func TestGetArrivalsMalformedFeed(t *testing.T) {
	c := newTestCache(func(ctx context.Context, url string) ([]byte, error) {
		return []byte("this is not protobuf"), nil
	})

	arrivals := c.GetArrivals(context.Background(), southFerry(), nil)
	if len(arrivals) != 0 {
		t.Errorf("Expected empty arrivals on malformed feed, got %d", len(arrivals))
	}
}

func TestCacheTTL(t *testing.T) {
	body := marshalFeed(t, tripSpec{route: "1", tripID: "t1", stops: map[string]int64{
		"142N": baseTime.Add(3 * time.Minute).Unix(),
	}})

	var fetches atomic.Int32
	c := newTestCache(func(ctx context.Context, url string) ([]byte, error) {
		fetches.Add(1)
		return body, nil
	})

	now := baseTime
	var mu sync.Mutex
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	first := c.GetArrivals(context.Background(), southFerry(), nil)
	second := c.GetArrivals(context.Background(), southFerry(), nil)
	if fetches.Load() != 1 {
		t.Errorf("Expected 1 fetch within TTL, got %d", fetches.Load())
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("Cached results differ: %+v vs %+v", first, second)
	}

	mu.Lock()
	now = now.Add(DefaultTTL + time.Second)
	mu.Unlock()

	c.GetArrivals(context.Background(), southFerry(), nil)
	if fetches.Load() != 2 {
		t.Errorf("Expected refresh after TTL, got %d fetches", fetches.Load())
	}
}

func TestSingleFlight(t *testing.T) {
	body := marshalFeed(t, tripSpec{route: "1", tripID: "t1", stops: map[string]int64{
		"142N": baseTime.Add(3 * time.Minute).Unix(),
	}})

	var fetches atomic.Int32
	c := newTestCache(func(ctx context.Context, url string) ([]byte, error) {
		fetches.Add(1)
		time.Sleep(30 * time.Millisecond) // hold the flight open
		return body, nil
	})

	const callers = 16
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			arrivals := c.GetArrivals(context.Background(), southFerry(), nil)
			if len(arrivals) != 1 {
				t.Errorf("Expected 1 arrival, got %d", len(arrivals))
			}
		}()
	}
	wg.Wait()

	if n := fetches.Load(); n != 1 {
		t.Errorf("Expected a single upstream fetch for %d concurrent callers, got %d", callers, n)
	}
}

func TestSplitStopID(t *testing.T) {
	tests := []struct {
		input   string
		wantID  string
		wantDir models.Direction
	}{
		{"142N", "142", models.North},
		{"142S", "142", models.South},
		{"142", "142", ""},
		{"N", "N", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, dir := SplitStopID(tt.input)
			if id != tt.wantID || dir != tt.wantDir {
				t.Errorf("SplitStopID(%q) = %q, %q; want %q, %q", tt.input, id, dir, tt.wantID, tt.wantDir)
			}
		})
	}
}
