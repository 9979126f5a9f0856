package history

import (
	"context"
	_ "embed"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rm-hull/fuel-price-dashboard/internal"
	"github.com/rm-hull/fuel-price-dashboard/internal/logger"
	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

//go:embed sql/price_history.sql
var priceHistorySQL string

const (
	LOOKBACK_DAYS = 30

	sinceLayout = "2006-01-02 15:04:05"
)

var log = logger.Named("history")

// Snapshot is the outcome of one refresh cycle. Series follows the order of
// the stations passed to Refresh.
type Snapshot struct {
	Generation uint64                 `json:"generation"`
	CycleId    string                 `json:"cycle_id"`
	FetchedAt  time.Time              `json:"fetched_at"`
	Series     []models.StationSeries `json:"series"`
	Failed     []string               `json:"failed,omitempty"`
}

// Aggregator fetches price histories for a set of stations. Each call to
// Refresh starts a new generation so callers can discard results that a
// later refresh has superseded.
type Aggregator struct {
	client     internal.QueryClient
	location   *time.Location
	clock      func() time.Time
	generation atomic.Uint64
}

func NewAggregator(client internal.QueryClient, location *time.Location) *Aggregator {
	return &Aggregator{
		client:   client,
		location: location,
		clock:    time.Now,
	}
}

// IsCurrent reports whether no refresh has started since generation.
func (a *Aggregator) IsCurrent(generation uint64) bool {
	return a.generation.Load() == generation
}

// NextGeneration starts a new generation, superseding every refresh started
// before it.
func (a *Aggregator) NextGeneration() uint64 {
	return a.generation.Add(1)
}

// Refresh fetches the last lookbackDays of prices for every station
// concurrently. A station whose fetch fails gets an empty series.
func (a *Aggregator) Refresh(ctx context.Context, stations []models.Station, lookbackDays int) Snapshot {
	return a.RefreshGeneration(ctx, a.NextGeneration(), stations, lookbackDays)
}

// RefreshGeneration is Refresh for a generation the caller already took with
// NextGeneration, so the caller can pair it atomically with the station list.
func (a *Aggregator) RefreshGeneration(ctx context.Context, generation uint64, stations []models.Station, lookbackDays int) Snapshot {
	if lookbackDays <= 0 {
		lookbackDays = LOOKBACK_DAYS
	}

	snapshot := Snapshot{
		Generation: generation,
		CycleId:    uuid.NewString(),
		Series:     make([]models.StationSeries, len(stations)),
	}
	now := a.clock()
	since := now.AddDate(0, 0, -lookbackDays)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed = make(map[string]bool)
	)

	for i, station := range stations {
		snapshot.Series[i] = models.StationSeries{Station: station, Points: []models.PricePoint{}}

		wg.Add(1)
		go func() {
			defer wg.Done()

			points, err := a.FetchHistory(ctx, station, since)
			if err != nil {
				log.Warnw("price history fetch failed", "cycle", snapshot.CycleId, "station", station.Id, "error", err)
				mu.Lock()
				failed[station.Id] = true
				mu.Unlock()
				return
			}
			snapshot.Series[i].Points = points
		}()
	}

	wg.Wait()

	for _, station := range stations {
		if failed[station.Id] {
			snapshot.Failed = append(snapshot.Failed, station.Id)
		}
	}
	snapshot.FetchedAt = a.clock()
	log.Infow("refresh completed", "cycle", snapshot.CycleId, "generation", snapshot.Generation,
		"stations", len(stations), "failed", len(snapshot.Failed), "duration", snapshot.FetchedAt.Sub(now))
	return snapshot
}

// FetchHistory returns the station's price points since the given instant,
// oldest first.
func (a *Aggregator) FetchHistory(ctx context.Context, station models.Station, since time.Time) ([]models.PricePoint, error) {
	params := map[string]string{
		"station_id": station.Id,
		"since":      since.In(a.location).Format(sinceLayout),
	}
	points, err := internal.FetchAllAs(ctx, a.client, priceHistorySQL, params, models.PricePointDecoder(a.location))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}
