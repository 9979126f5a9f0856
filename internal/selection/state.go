package selection

import (
	"slices"

	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

// State is an immutable snapshot of what the dashboard shows. Mutations on
// the Manager produce a new State rather than editing one in place.
type State struct {
	Stations  []models.Station  `json:"stations"`
	FuelTypes []models.FuelType `json:"fuel_types"`
	Window    models.TimeWindow `json:"window"`
}

// DefaultState has no stations, every fuel type and the "all" window.
func DefaultState() State {
	return State{
		Stations:  []models.Station{},
		FuelTypes: slices.Clone(models.AllFuelTypes),
		Window:    models.AllTime(),
	}
}

func (s State) clone() State {
	return State{
		Stations:  append([]models.Station{}, s.Stations...),
		FuelTypes: append([]models.FuelType{}, s.FuelTypes...),
		Window:    s.Window,
	}
}

func (s State) StationIds() []string {
	ids := make([]string, len(s.Stations))
	for i, station := range s.Stations {
		ids[i] = station.Id
	}
	return ids
}

func (s State) HasStation(id string) bool {
	return slices.ContainsFunc(s.Stations, func(station models.Station) bool {
		return station.Id == id
	})
}

func (s State) HasFuelType(ft models.FuelType) bool {
	return slices.Contains(s.FuelTypes, ft)
}

// normalizeFuelTypes keeps known keys only, once each, in the given order.
func normalizeFuelTypes(keys []models.FuelType) []models.FuelType {
	result := make([]models.FuelType, 0, len(keys))
	for _, key := range keys {
		ft, ok := models.ParseFuelType(string(key))
		if !ok {
			log.Warnf("ignoring unknown fuel type: %q", key)
			continue
		}
		if !slices.Contains(result, ft) {
			result = append(result, ft)
		}
	}
	return result
}
