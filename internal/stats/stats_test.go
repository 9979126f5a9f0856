package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

func berlin(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func price(v float64) *float64 {
	return &v
}

func dieselSeries(id string, loc *time.Location, start time.Time, step time.Duration, prices ...float64) models.StationSeries {
	ss := models.StationSeries{Station: models.Station{Id: id, Name: id}}
	for i, p := range prices {
		ss.Points = append(ss.Points, models.PricePoint{
			Timestamp: start.Add(time.Duration(i) * step).In(loc),
			Diesel:    price(p),
		})
	}
	return ss
}

func TestCheapestAcrossStations(t *testing.T) {
	loc := berlin(t)
	start := time.Date(2025, 3, 3, 8, 0, 0, 0, loc)

	x := dieselSeries("X", loc, start, time.Hour, 1.859, 1.899)
	y := dieselSeries("Y", loc, start, time.Hour, 1.999, 1.879)
	empty := models.StationSeries{Station: models.Station{Id: "empty"}}
	noDiesel := models.StationSeries{
		Station: models.Station{Id: "Z"},
		Points:  []models.PricePoint{{Timestamp: start, Diesel: price(1.5)}, {Timestamp: start.Add(time.Hour), E5: price(1.7)}},
	}

	cheapest, ok := CheapestAcrossStations([]models.StationSeries{x, empty, noDiesel, y}, models.Diesel)
	require.True(t, ok)
	assert.Equal(t, "Y", cheapest.Station.Id)
	assert.Equal(t, 1.879, cheapest.Price)

	t.Run("Ties go to the first station", func(t *testing.T) {
		a := dieselSeries("A", loc, start, time.Hour, 1.879)
		cheapest, ok := CheapestAcrossStations([]models.StationSeries{a, y}, models.Diesel)
		require.True(t, ok)
		assert.Equal(t, "A", cheapest.Station.Id)
	})

	t.Run("Nothing reported", func(t *testing.T) {
		_, ok := CheapestAcrossStations([]models.StationSeries{x, y}, models.E10)
		assert.False(t, ok)
	})
}

func TestDerive(t *testing.T) {
	loc := berlin(t)
	start := time.Date(2025, 3, 3, 8, 0, 0, 0, loc)

	series := []models.StationSeries{
		dieselSeries("A", loc, start, time.Hour, 1.80),
		dieselSeries("B", loc, start, time.Hour, 1.70),
		dieselSeries("C", loc, start, time.Hour, 1.70),
	}

	summaries := Derive(series, []models.FuelType{models.Diesel, models.E5})
	require.Contains(t, summaries, models.Diesel)
	assert.NotContains(t, summaries, models.E5)

	diesel := summaries[models.Diesel]
	assert.Equal(t, 3, diesel.Stations)
	assert.Equal(t, 1.70, diesel.LowestPrice)
	assert.Equal(t, 1.80, diesel.HighestPrice)
	assert.Equal(t, 1.733, diesel.AveragePrice)
	assert.InDelta(t, 0.0471, diesel.StandardDeviation, 0.0001)
	assert.Equal(t, []string{"B", "C"}, diesel.CheapestStations)
}

func TestPatternAnalysis(t *testing.T) {
	loc := berlin(t)
	// Monday 2025-03-03, one point per day at 07:00 and 19:00 for a week
	monday := time.Date(2025, 3, 3, 0, 0, 0, 0, loc)
	ss := models.StationSeries{Station: models.Station{Id: "A"}}
	for day := 0; day < 7; day++ {
		base := 1.70 + 0.01*float64(day)
		ss.Points = append(ss.Points,
			models.PricePoint{Timestamp: monday.AddDate(0, 0, day).Add(7 * time.Hour), Diesel: price(base + 0.10)},
			models.PricePoint{Timestamp: monday.AddDate(0, 0, day).Add(19 * time.Hour), Diesel: price(base)},
		)
	}

	result := PatternAnalysis(ss, models.Diesel, loc)
	require.NotNil(t, result)
	assert.Equal(t, 14, result.Samples)
	assert.Len(t, result.Weekdays, 7)
	assert.Equal(t, time.Monday, result.CheapestWeekday.Weekday)
	assert.Equal(t, time.Sunday, result.DearestWeekday.Weekday)

	// only two hours have prices; the 22 empty hours are not zero-priced minima
	assert.Len(t, result.Hours, 2)
	assert.Equal(t, 19, result.CheapestHour.Hour)
	assert.Equal(t, 7, result.DearestHour.Hour)
	assert.InDelta(t, 1.73, result.CheapestHour.Average, 1e-9)
}

func TestPatternAnalysisSkipsMissingPrices(t *testing.T) {
	loc := berlin(t)
	ts := time.Date(2025, 3, 5, 10, 0, 0, 0, loc)
	ss := models.StationSeries{Points: []models.PricePoint{
		{Timestamp: ts, E5: price(1.90)},
		{Timestamp: ts.Add(time.Hour), E5: price(1.95)},
	}}

	assert.Nil(t, PatternAnalysis(ss, models.Diesel, loc))

	result := PatternAnalysis(ss, models.E5, loc)
	require.NotNil(t, result)
	assert.Len(t, result.Weekdays, 1)
	assert.Equal(t, time.Wednesday, result.CheapestWeekday.Weekday)
	assert.Equal(t, result.CheapestWeekday, result.DearestWeekday)
}

func TestBuyWaitAdvice(t *testing.T) {
	loc := berlin(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)

	t.Run("Median of a daily series", func(t *testing.T) {
		ss := dieselSeries("A", loc, time.Date(2025, 3, 3, 9, 0, 0, 0, loc), 24*time.Hour, 1.80, 1.82, 1.79, 1.85, 1.78)

		advice := BuyWaitAdvice(ss, models.Diesel, now, loc)
		require.NotNil(t, advice)
		assert.InDelta(t, 1.80, advice.Median, 1e-9)
		assert.Equal(t, 5, advice.Samples)
		assert.Equal(t, 1.78, advice.CurrentPrice)
		assert.Equal(t, 9, advice.BestWindowStart)
		assert.Equal(t, 11, advice.BestWindowEnd)
		assert.InDelta(t, 1.808, advice.BestWindowAverage, 1e-9)
		assert.Equal(t, Buy, advice.Decision)
		assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, loc), advice.NextBestWindow)
	})

	t.Run("Too few points", func(t *testing.T) {
		ss := dieselSeries("A", loc, now, time.Hour, 1.80, 1.82)
		assert.Nil(t, BuyWaitAdvice(ss, models.Diesel, now, loc))
	})

	t.Run("Wait when well above the median", func(t *testing.T) {
		// 06:00 is cheapest, the current price was reported at 18:00
		start := time.Date(2025, 3, 3, 6, 0, 0, 0, loc)
		ss := models.StationSeries{}
		for day := 0; day < 6; day++ {
			ss.Points = append(ss.Points, models.PricePoint{Timestamp: start.AddDate(0, 0, day), Diesel: price(1.70)})
		}
		ss.Points = append(ss.Points, models.PricePoint{Timestamp: start.AddDate(0, 0, 6).Add(12 * time.Hour), Diesel: price(1.80)})

		advice := BuyWaitAdvice(ss, models.Diesel, now, loc)
		require.NotNil(t, advice)
		assert.Equal(t, 6, advice.BestWindowStart)
		assert.InDelta(t, 1.70, advice.BestWindowAverage, 1e-9)
		assert.InDelta(t, 1.70, advice.Median, 1e-9)
		assert.Equal(t, Wait, advice.Decision)
	})

	t.Run("Neutral in between", func(t *testing.T) {
		start := time.Date(2025, 3, 3, 6, 0, 0, 0, loc)
		ss := models.StationSeries{}
		for day := 0; day < 6; day++ {
			ss.Points = append(ss.Points,
				models.PricePoint{Timestamp: start.AddDate(0, 0, day), Diesel: price(1.70)},
				models.PricePoint{Timestamp: start.AddDate(0, 0, day).Add(12 * time.Hour), Diesel: price(1.74)},
			)
		}
		// 1.745 is above the best window plus margin (1.72) but below the wait threshold (about 1.77)
		ss.Points = append(ss.Points, models.PricePoint{Timestamp: start.AddDate(0, 0, 6).Add(12 * time.Hour), Diesel: price(1.745)})

		advice := BuyWaitAdvice(ss, models.Diesel, now, loc)
		require.NotNil(t, advice)
		assert.Equal(t, Neutral, advice.Decision)
	})
}

func TestNextWindowStart(t *testing.T) {
	loc := berlin(t)

	before := time.Date(2025, 3, 10, 5, 59, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 10, 6, 0, 0, 0, loc), nextWindowStart(before, 6))

	same := time.Date(2025, 3, 10, 6, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 10, 6, 0, 0, 0, loc), nextWindowStart(same, 6))

	after := time.Date(2025, 3, 31, 22, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 4, 1, 6, 0, 0, 0, loc), nextWindowStart(after, 6))
}
