package stats

import (
	"time"

	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

// MinPatternDisplayPoints is the number of points a station needs before its
// pattern insights are shown; fewer make the averages too noisy.
const MinPatternDisplayPoints = 50

// weekdayOrder starts the week on Monday. Ties between buckets go to the
// earlier one in this order.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

type WeekdayAverage struct {
	Weekday time.Weekday `json:"weekday"`
	Name    string       `json:"name"`
	Average float64      `json:"average"`
	Samples int          `json:"samples"`
}

type HourAverage struct {
	Hour    int     `json:"hour"`
	Average float64 `json:"average"`
	Samples int     `json:"samples"`
}

type PatternResult struct {
	FuelType        models.FuelType  `json:"fuel_type"`
	Samples         int              `json:"samples"`
	Weekdays        []WeekdayAverage `json:"weekdays"`
	Hours           []HourAverage    `json:"hours"`
	CheapestWeekday WeekdayAverage   `json:"cheapest_weekday"`
	DearestWeekday  WeekdayAverage   `json:"dearest_weekday"`
	CheapestHour    HourAverage      `json:"cheapest_hour"`
	DearestHour     HourAverage      `json:"dearest_hour"`
}

type bucket struct {
	sum   float64
	count int
}

func (b bucket) average() float64 {
	return b.sum / float64(b.count)
}

// hourlyBuckets groups the fuel's prices by hour of day in loc.
func hourlyBuckets(points []models.PricePoint, fuelType models.FuelType, loc *time.Location) [24]bucket {
	var hours [24]bucket
	for _, pp := range points {
		price := pp.Price(fuelType)
		if price == nil {
			continue
		}
		h := pp.Timestamp.In(loc).Hour()
		hours[h].sum += *price
		hours[h].count++
	}
	return hours
}

// PatternAnalysis averages the fuel's prices by weekday and by hour of day in
// loc and picks the cheapest and dearest of each. Buckets without a price take
// no part in the comparison. It returns nil when the series has no price for
// the fuel at all.
func PatternAnalysis(series models.StationSeries, fuelType models.FuelType, loc *time.Location) *PatternResult {
	priced := pricedPoints(series.Points, fuelType)
	if len(priced) == 0 {
		return nil
	}

	var weekdays [7]bucket
	for _, pp := range priced {
		d := pp.Timestamp.In(loc).Weekday()
		weekdays[d].sum += *pp.Price(fuelType)
		weekdays[d].count++
	}
	hours := hourlyBuckets(priced, fuelType, loc)

	result := &PatternResult{
		FuelType: fuelType,
		Samples:  len(priced),
		Weekdays: make([]WeekdayAverage, 0, 7),
		Hours:    make([]HourAverage, 0, 24),
	}

	for _, d := range weekdayOrder {
		if weekdays[d].count == 0 {
			continue
		}
		avg := WeekdayAverage{Weekday: d, Name: d.String(), Average: weekdays[d].average(), Samples: weekdays[d].count}
		if len(result.Weekdays) == 0 || avg.Average < result.CheapestWeekday.Average {
			result.CheapestWeekday = avg
		}
		if len(result.Weekdays) == 0 || avg.Average > result.DearestWeekday.Average {
			result.DearestWeekday = avg
		}
		result.Weekdays = append(result.Weekdays, avg)
	}

	for h, b := range hours {
		if b.count == 0 {
			continue
		}
		avg := HourAverage{Hour: h, Average: b.average(), Samples: b.count}
		if len(result.Hours) == 0 || avg.Average < result.CheapestHour.Average {
			result.CheapestHour = avg
		}
		if len(result.Hours) == 0 || avg.Average > result.DearestHour.Average {
			result.DearestHour = avg
		}
		result.Hours = append(result.Hours, avg)
	}

	return result
}
