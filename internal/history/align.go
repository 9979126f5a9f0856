package history

import (
	"sort"
	"time"

	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

var fuelDash = map[models.FuelType][]int{
	models.Diesel: nil,
	models.E5:     {6, 3},
	models.E10:    {2, 2},
}

// FilterWindow returns copies of series holding only the points inside w.
// The input is left untouched so that analytics keep the full lookback.
func FilterWindow(series []models.StationSeries, w models.TimeWindow, now time.Time) []models.StationSeries {
	filtered := make([]models.StationSeries, len(series))
	for i, ss := range series {
		points := make([]models.PricePoint, 0, len(ss.Points))
		for _, pp := range ss.Points {
			if w.Contains(pp.Timestamp, now) {
				points = append(points, pp)
			}
		}
		filtered[i] = models.StationSeries{Station: ss.Station, Points: points}
	}
	return filtered
}

// AlignForChart puts every station onto one sorted timeline made of the
// distinct timestamps of all stations inside w, and emits one line per
// station and active fuel. A station without a point at a timestamp gets a
// gap there.
func AlignForChart(series []models.StationSeries, fuels []models.FuelType, w models.TimeWindow, now time.Time) models.ChartData {
	filtered := FilterWindow(series, w, now)

	seen := make(map[int64]time.Time)
	for _, ss := range filtered {
		for _, pp := range ss.Points {
			seen[pp.Timestamp.UnixNano()] = pp.Timestamp
		}
	}
	labels := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		labels = append(labels, ts)
	}
	sort.Slice(labels, func(i, j int) bool {
		return labels[i].Before(labels[j])
	})

	position := make(map[int64]int, len(labels))
	for i, ts := range labels {
		position[ts.UnixNano()] = i
	}

	chart := models.ChartData{
		Labels: labels,
		Series: make([]models.NamedSeries, 0, len(filtered)*len(fuels)),
	}
	for stationIdx, ss := range filtered {
		for _, ft := range fuels {
			values := make([]*float64, len(labels))
			for _, pp := range ss.Points {
				if price := pp.Price(ft); price != nil {
					v := *price
					values[position[pp.Timestamp.UnixNano()]] = &v
				}
			}

			chart.Series = append(chart.Series, models.NamedSeries{
				StationId: ss.Station.Id,
				FuelType:  ft,
				Label:     ss.Station.Name + " " + ft.Label(),
				Style: models.SeriesStyle{
					ColorIndex: stationIdx,
					Dash:       fuelDash[ft],
				},
				Values: values,
			})
		}
	}
	return chart
}
