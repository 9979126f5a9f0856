package selection

import (
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/rm-hull/fuel-price-dashboard/internal/logger"
	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

var log = logger.Named("selection")

// Store is the durable string-keyed store the selection is saved to.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// AddressBar receives the shareable encoding of every new state. Replace must
// overwrite the current location, never add to a history.
type AddressBar interface {
	Replace(query url.Values)
}

type StationResolver interface {
	Lookup(id string) (models.Station, bool)
}

// Manager owns the dashboard selection. Every mutation is visible to the next
// read and is written to the store, and to the address bar when URL sync is
// enabled.
type Manager struct {
	mu    sync.Mutex
	state State
	store Store
	bar   AddressBar
}

type Option func(*Manager)

// WithAddressBar enables URL sync.
func WithAddressBar(bar AddressBar) Option {
	return func(m *Manager) {
		m.bar = bar
	}
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		state: DefaultState(),
		store: store,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore installs the startup state. URL state wins when query carries at
// least one recognised parameter; otherwise the durable store is used, and
// failing that the defaults. Station ids unknown to resolver are dropped.
func (m *Manager) Restore(resolver StationResolver, query url.Values) State {
	persisted, recognised := DecodeQuery(query)
	source := "url"
	if !recognised {
		var found bool
		persisted, found = DecodeStorage(m.store)
		source = "storage"
		if !found {
			source = "defaults"
		}
	}

	state := State{
		Stations:  make([]models.Station, 0, len(persisted.StationIds)),
		FuelTypes: persisted.FuelTypes,
		Window:    persisted.Window,
	}
	for _, id := range persisted.StationIds {
		station, ok := resolver.Lookup(id)
		if !ok {
			log.Warnf("dropping unknown station id from %s: %s", source, id)
			continue
		}
		state.Stations = append(state.Stations, station)
	}

	log.Infow("restored selection", "source", source, "stations", len(state.Stations), "fuels", state.FuelTypes, "window", state.Window.String())
	return m.apply(func(State) State { return state })
}

// State returns a copy of the current selection.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *Manager) AddStation(station models.Station) State {
	return m.apply(func(s State) State {
		if !s.HasStation(station.Id) {
			s.Stations = append(s.Stations, station)
		}
		return s
	})
}

func (m *Manager) RemoveStation(id string) State {
	return m.apply(func(s State) State {
		s.Stations = slices.DeleteFunc(s.Stations, func(station models.Station) bool {
			return station.Id == id
		})
		return s
	})
}

// SetFuelTypes replaces the active fuel types. An empty list is kept as is
// and means "show nothing".
func (m *Manager) SetFuelTypes(keys []models.FuelType) State {
	return m.apply(func(s State) State {
		s.FuelTypes = normalizeFuelTypes(keys)
		return s
	})
}

func (m *Manager) SetTimeWindow(w models.TimeWindow) State {
	return m.apply(func(s State) State {
		s.Window = w
		return s
	})
}

// SetZoomRange installs an explicit window, as produced by dragging over the
// chart.
func (m *Manager) SetZoomRange(start, end time.Time) State {
	return m.SetTimeWindow(models.RangeWindow(start, end))
}

func (m *Manager) ResetZoom() State {
	return m.SetTimeWindow(models.AllTime())
}

// ShareQuery returns the URL encoding of the current selection.
func (m *Manager) ShareQuery() url.Values {
	return m.State().ShareQuery()
}

func (m *Manager) apply(mutate func(State) State) State {
	m.mu.Lock()
	next := mutate(m.state.clone())
	m.state = next
	m.persist(next)
	m.mu.Unlock()

	return next.clone()
}

// persist must be called with mu held so that writes land in mutation order.
func (m *Manager) persist(s State) {
	p := persistedFrom(s)

	values, err := EncodeStorage(p)
	if err != nil {
		log.Errorf("failed to encode selection: %v", err)
		return
	}
	for _, key := range []string{KEY_STATIONS, KEY_FUEL_TYPES, KEY_TIME_RANGE} {
		if err := m.store.Set(key, values[key]); err != nil {
			log.Warnf("failed to persist %s: %v", key, err)
		}
	}

	if m.bar != nil {
		m.bar.Replace(EncodeQuery(p))
	}
}
