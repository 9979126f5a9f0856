package selection

import (
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Durable store keys.
const (
	KEY_STATIONS   = "selectedStationIds"
	KEY_FUEL_TYPES = "selectedFuelTypes"
	KEY_TIME_RANGE = "selectedTimeRange"
)

// URL query parameters.
const (
	PARAM_STATIONS = "stations"
	PARAM_FUELS    = "fuels"
	PARAM_TIME     = "time"
)

// Persisted is the serialisable form of a State: stations are kept as ids and
// resolved against the directory on restore.
type Persisted struct {
	StationIds []string
	FuelTypes  []models.FuelType
	Window     models.TimeWindow
}

func defaultPersisted() Persisted {
	def := DefaultState()
	return Persisted{
		StationIds: []string{},
		FuelTypes:  def.FuelTypes,
		Window:     def.Window,
	}
}

func persistedFrom(s State) Persisted {
	return Persisted{
		StationIds: s.StationIds(),
		FuelTypes:  append([]models.FuelType{}, s.FuelTypes...),
		Window:     s.Window,
	}
}

// ShareQuery returns the URL encoding of s.
func (s State) ShareQuery() url.Values {
	return EncodeQuery(persistedFrom(s))
}

// EncodeStorage renders the values written to the durable store.
func EncodeStorage(p Persisted) (map[string]string, error) {
	ids, err := json.Marshal(nonNil(p.StationIds))
	if err != nil {
		return nil, err
	}
	fuels, err := json.Marshal(fuelStrings(p.FuelTypes))
	if err != nil {
		return nil, err
	}
	return map[string]string{
		KEY_STATIONS:   string(ids),
		KEY_FUEL_TYPES: string(fuels),
		KEY_TIME_RANGE: p.Window.String(),
	}, nil
}

// DecodeStorage reads whatever the store holds. Keys that are missing or
// malformed keep their defaults. found is false when the store holds none of
// the keys.
func DecodeStorage(store Store) (p Persisted, found bool) {
	p = defaultPersisted()

	if raw, ok := readKey(store, KEY_STATIONS); ok {
		found = true
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			log.Warnw("discarding malformed persisted state", "error", &models.MalformedStateError{Key: KEY_STATIONS, Value: raw, Cause: err})
		} else {
			p.StationIds = cleanIds(ids)
		}
	}

	if raw, ok := readKey(store, KEY_FUEL_TYPES); ok {
		found = true
		var keys []string
		if err := json.Unmarshal([]byte(raw), &keys); err != nil {
			log.Warnw("discarding malformed persisted state", "error", &models.MalformedStateError{Key: KEY_FUEL_TYPES, Value: raw, Cause: err})
		} else {
			p.FuelTypes = parseFuelTypes(keys)
		}
	}

	if raw, ok := readKey(store, KEY_TIME_RANGE); ok {
		found = true
		w, err := models.ParseTimeWindowOrAll(raw)
		if err != nil {
			log.Warnw("discarding malformed persisted state", "error", err)
		}
		p.Window = w
	}

	return p, found
}

func readKey(store Store, key string) (string, bool) {
	raw, ok, err := store.Get(key)
	if err != nil {
		log.Warnf("failed to read %s from store: %v", key, err)
		return "", false
	}
	return raw, ok
}

// EncodeQuery renders the shareable URL form of p.
func EncodeQuery(p Persisted) url.Values {
	values := url.Values{}
	values.Set(PARAM_STATIONS, strings.Join(p.StationIds, ","))
	values.Set(PARAM_FUELS, strings.Join(fuelStrings(p.FuelTypes), ","))
	values.Set(PARAM_TIME, p.Window.String())
	return values
}

// DecodeQuery parses URL state. recognised is false when the query carries
// none of the known parameters; absent parameters take their defaults.
func DecodeQuery(query url.Values) (p Persisted, recognised bool) {
	p = defaultPersisted()

	if query.Has(PARAM_STATIONS) {
		recognised = true
		p.StationIds = cleanIds(strings.Split(query.Get(PARAM_STATIONS), ","))
	}

	if query.Has(PARAM_FUELS) {
		recognised = true
		p.FuelTypes = parseFuelTypes(strings.Split(query.Get(PARAM_FUELS), ","))
	}

	if query.Has(PARAM_TIME) {
		recognised = true
		w, err := models.ParseTimeWindowOrAll(query.Get(PARAM_TIME))
		if err != nil {
			log.Warnw("discarding malformed URL state", "error", err)
		}
		p.Window = w
	}

	return p, recognised
}

func cleanIds(ids []string) []string {
	result := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

func parseFuelTypes(keys []string) []models.FuelType {
	fuels := make([]models.FuelType, 0, len(keys))
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		fuels = append(fuels, models.FuelType(key))
	}
	return normalizeFuelTypes(fuels)
}

func fuelStrings(fuels []models.FuelType) []string {
	result := make([]string, len(fuels))
	for i, ft := range fuels {
		result[i] = string(ft)
	}
	return result
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
