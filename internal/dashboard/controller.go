package dashboard

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rm-hull/fuel-price-dashboard/internal/history"
	"github.com/rm-hull/fuel-price-dashboard/internal/logger"
	"github.com/rm-hull/fuel-price-dashboard/internal/models"
	"github.com/rm-hull/fuel-price-dashboard/internal/selection"
	"github.com/rm-hull/fuel-price-dashboard/internal/stations"
	"github.com/rm-hull/fuel-price-dashboard/internal/stats"
)

var log = logger.Named("dashboard")

var ErrUnknownStation = errors.New("unknown station")

// Controller ties the selection to the price histories it shows. Every
// change to the selection is followed by a refresh, and only the newest
// refresh is ever installed.
type Controller struct {
	directory    *stations.Directory
	manager      *selection.Manager
	aggregator   *history.Aggregator
	location     *time.Location
	lookbackDays int

	// refreshMu pairs each selection read with its generation.
	refreshMu      sync.Mutex
	afterStateRead func()

	mu       sync.RWMutex
	snapshot *history.Snapshot
}

type Option func(*Controller)

func WithLookbackDays(days int) Option {
	return func(c *Controller) {
		c.lookbackDays = days
	}
}

func NewController(directory *stations.Directory, manager *selection.Manager, aggregator *history.Aggregator, location *time.Location, opts ...Option) *Controller {
	c := &Controller{
		directory:    directory,
		manager:      manager,
		aggregator:   aggregator,
		location:     location,
		lookbackDays: history.LOOKBACK_DAYS,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start loads the station directory, restores the selection from shareQuery
// or the durable store, and runs the first refresh. Without a directory
// nothing can be shown, so a failed load is returned to the caller.
func (c *Controller) Start(ctx context.Context, shareQuery url.Values) error {
	if _, err := c.directory.Load(ctx); err != nil {
		return errors.Wrap(err, "could not load the list of stations")
	}
	c.manager.Restore(c.directory, shareQuery)
	c.Refresh(ctx)
	return nil
}

// Refresh fetches the histories of the selected stations and installs the
// result unless a later refresh has started in the meantime.
func (c *Controller) Refresh(ctx context.Context) {
	state, generation := c.nextRefresh()
	snapshot := c.aggregator.RefreshGeneration(ctx, generation, state.Stations, c.lookbackDays)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.aggregator.IsCurrent(snapshot.Generation) ||
		(c.snapshot != nil && c.snapshot.Generation > snapshot.Generation) {
		log.Debugw("discarding superseded refresh", "cycle", snapshot.CycleId, "generation", snapshot.Generation)
		return
	}
	c.snapshot = &snapshot
}

// nextRefresh reads the selection and takes a generation in one step, so a
// refresh that read an older selection always holds an older generation.
func (c *Controller) nextRefresh() (selection.State, uint64) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	state := c.manager.State()
	if c.afterStateRead != nil {
		c.afterStateRead()
	}
	return state, c.aggregator.NextGeneration()
}

func (c *Controller) Search(term string, limit int) []models.Station {
	return c.directory.Search(term, limit)
}

func (c *Controller) AddStation(ctx context.Context, id string) (selection.State, error) {
	station, ok := c.directory.Lookup(strings.TrimSpace(id))
	if !ok {
		return c.manager.State(), errors.Wrapf(ErrUnknownStation, "station %q", id)
	}
	state := c.manager.AddStation(station)
	c.Refresh(ctx)
	return state, nil
}

func (c *Controller) RemoveStation(ctx context.Context, id string) selection.State {
	return c.refreshAfter(ctx, c.manager.RemoveStation(id))
}

func (c *Controller) SetFuelTypes(ctx context.Context, fuelTypes []models.FuelType) selection.State {
	return c.refreshAfter(ctx, c.manager.SetFuelTypes(fuelTypes))
}

func (c *Controller) SetTimeWindow(ctx context.Context, w models.TimeWindow) selection.State {
	return c.refreshAfter(ctx, c.manager.SetTimeWindow(w))
}

func (c *Controller) SetZoomRange(ctx context.Context, start, end time.Time) selection.State {
	return c.refreshAfter(ctx, c.manager.SetZoomRange(start, end))
}

func (c *Controller) ResetZoom(ctx context.Context) selection.State {
	return c.refreshAfter(ctx, c.manager.ResetZoom())
}

// Restore replaces the selection with the one encoded in query, as when a
// shared link is opened.
func (c *Controller) Restore(ctx context.Context, query url.Values) selection.State {
	return c.refreshAfter(ctx, c.manager.Restore(c.directory, query))
}

func (c *Controller) refreshAfter(ctx context.Context, state selection.State) selection.State {
	c.Refresh(ctx)
	return state
}

// StationInsight holds the per-station analysis of one fuel type. Patterns
// is only filled in once the station has enough points to be meaningful.
type StationInsight struct {
	StationId string               `json:"station_id"`
	Name      string               `json:"name"`
	FuelType  models.FuelType      `json:"fuel_type"`
	Points    int                  `json:"points"`
	Patterns  *stats.PatternResult `json:"patterns,omitempty"`
	Advice    *stats.Advice        `json:"advice,omitempty"`
}

type View struct {
	Stations   []models.Station                   `json:"stations"`
	FuelTypes  []models.FuelType                  `json:"fuel_types"`
	Window     models.TimeWindow                  `json:"window"`
	Zoomed     bool                               `json:"zoomed"`
	ShareQuery string                             `json:"share_query"`
	Generation uint64                             `json:"generation"`
	CycleId    string                             `json:"cycle_id,omitempty"`
	FetchedAt  *time.Time                         `json:"fetched_at,omitempty"`
	Failed     []string                           `json:"failed,omitempty"`
	Chart      models.ChartData                   `json:"chart"`
	Cheapest   map[models.FuelType]stats.Cheapest `json:"cheapest"`
	Summaries  map[models.FuelType]stats.Summary  `json:"summaries"`
	Insights   []StationInsight                   `json:"insights"`
	Status     string                             `json:"status,omitempty"`
}

// View renders the current selection against the last installed refresh.
// The chart follows the selected window; the analytics always use the whole
// lookback period.
func (c *Controller) View(now time.Time) View {
	state := c.manager.State()

	c.mu.RLock()
	snapshot := c.snapshot
	c.mu.RUnlock()

	view := View{
		Stations:   state.Stations,
		FuelTypes:  state.FuelTypes,
		Window:     state.Window,
		Zoomed:     state.Window.IsExplicit(),
		ShareQuery: state.ShareQuery().Encode(),
		Cheapest:   make(map[models.FuelType]stats.Cheapest),
		Insights:   []StationInsight{},
	}

	series := visibleSeries(state, snapshot)
	if snapshot != nil {
		view.Generation = snapshot.Generation
		view.CycleId = snapshot.CycleId
		fetchedAt := snapshot.FetchedAt
		view.FetchedAt = &fetchedAt
		view.Failed = snapshot.Failed
	}

	view.Chart = history.AlignForChart(series, state.FuelTypes, state.Window, now)
	view.Summaries = stats.Derive(series, state.FuelTypes)

	for _, fuelType := range state.FuelTypes {
		if cheapest, ok := stats.CheapestAcrossStations(series, fuelType); ok {
			view.Cheapest[fuelType] = cheapest
		}
	}

	for _, ss := range series {
		for _, fuelType := range state.FuelTypes {
			insight := StationInsight{
				StationId: ss.Station.Id,
				Name:      ss.Station.Name,
				FuelType:  fuelType,
				Points:    len(ss.Points),
				Advice:    stats.BuyWaitAdvice(ss, fuelType, now, c.location),
			}
			if insight.Points >= stats.MinPatternDisplayPoints {
				insight.Patterns = stats.PatternAnalysis(ss, fuelType, c.location)
			}
			view.Insights = append(view.Insights, insight)
		}
	}

	view.Status = statusMessage(state, snapshot, series)
	return view
}

// visibleSeries picks the snapshot's series for the stations still selected,
// in selection order. A station added since the snapshot was taken shows as
// having no data until the next refresh lands.
func visibleSeries(state selection.State, snapshot *history.Snapshot) []models.StationSeries {
	byId := make(map[string]models.StationSeries)
	if snapshot != nil {
		for _, ss := range snapshot.Series {
			byId[ss.Station.Id] = ss
		}
	}

	series := make([]models.StationSeries, 0, len(state.Stations))
	for _, station := range state.Stations {
		ss, ok := byId[station.Id]
		if !ok {
			ss = models.StationSeries{Station: station, Points: []models.PricePoint{}}
		}
		series = append(series, ss)
	}
	return series
}

func statusMessage(state selection.State, snapshot *history.Snapshot, series []models.StationSeries) string {
	switch {
	case len(state.Stations) == 0:
		return "Search for a station to start comparing prices."
	case len(state.FuelTypes) == 0:
		return "No fuel type selected."
	case snapshot == nil:
		return "Prices have not been loaded yet."
	}

	for _, ss := range series {
		if len(ss.Points) > 0 {
			if len(snapshot.Failed) > 0 {
				return fmt.Sprintf("Prices could not be loaded for %d of %d stations.", len(snapshot.Failed), len(series))
			}
			return ""
		}
	}
	return "No price data is available for the selected stations."
}
