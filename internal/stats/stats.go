package stats

import (
	"math"
	"time"

	mstats "github.com/montanaflynn/stats"

	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

type Cheapest struct {
	Station   models.Station `json:"station"`
	Price     float64        `json:"price"`
	Timestamp time.Time      `json:"timestamp"`
}

// CheapestAcrossStations compares the most recent point of every station for
// the given fuel. Stations with no points, or whose latest point has no price
// for the fuel, are ignored. Ties go to the station that comes first.
func CheapestAcrossStations(series []models.StationSeries, fuelType models.FuelType) (Cheapest, bool) {
	var (
		best  Cheapest
		found bool
	)
	for _, ss := range series {
		latest := ss.Latest()
		if latest == nil {
			continue
		}
		price := latest.Price(fuelType)
		if price == nil {
			continue
		}
		if !found || *price < best.Price {
			best = Cheapest{Station: ss.Station, Price: *price, Timestamp: latest.Timestamp}
			found = true
		}
	}
	return best, found
}

type Summary struct {
	FuelType          models.FuelType `json:"fuel_type"`
	Stations          int             `json:"stations"`
	LowestPrice       float64         `json:"lowest_price"`
	AveragePrice      float64         `json:"average_price"`
	HighestPrice      float64         `json:"highest_price"`
	StandardDeviation float64         `json:"standard_deviation"`
	CheapestStations  []string        `json:"cheapest_stations"`
}

// Derive summarises the latest price of each station per fuel type. Fuels no
// station currently reports are left out.
func Derive(series []models.StationSeries, fuelTypes []models.FuelType) map[models.FuelType]Summary {
	summaries := make(map[models.FuelType]Summary, len(fuelTypes))

	for _, fuelType := range fuelTypes {
		var prices mstats.Float64Data
		stationsByPrice := make(map[float64][]string)

		for _, ss := range series {
			latest := ss.Latest()
			if latest == nil || latest.Price(fuelType) == nil {
				continue
			}
			price := *latest.Price(fuelType)
			prices = append(prices, price)
			stationsByPrice[price] = append(stationsByPrice[price], ss.Station.Id)
		}
		if len(prices) == 0 {
			continue
		}

		lowest, _ := prices.Min()
		highest, _ := prices.Max()
		mean, _ := prices.Mean()
		stdDev := 0.0
		if len(prices) > 1 {
			stdDev, _ = prices.StandardDeviationPopulation()
		}

		summaries[fuelType] = Summary{
			FuelType:          fuelType,
			Stations:          len(prices),
			LowestPrice:       lowest,
			AveragePrice:      math.Round(mean*1000) / 1000,
			HighestPrice:      highest,
			StandardDeviation: stdDev,
			CheapestStations:  stationsByPrice[lowest],
		}
	}

	return summaries
}

// pricedPoints keeps the points that carry a price for the fuel, in order.
func pricedPoints(points []models.PricePoint, fuelType models.FuelType) []models.PricePoint {
	priced := make([]models.PricePoint, 0, len(points))
	for _, pp := range points {
		if pp.Price(fuelType) != nil {
			priced = append(priced, pp)
		}
	}
	return priced
}
