package stats

import (
	"math"
	"time"

	mstats "github.com/montanaflynn/stats"

	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

type Decision string

const (
	Buy     Decision = "buy"
	Wait    Decision = "wait"
	Neutral Decision = "neutral"
)

// Policy constants for the buy/wait rule, in currency units.
const (
	MIN_ADVICE_POINTS = 3
	BEST_WINDOW_HOURS = 2
	BUY_MARGIN        = 0.02
	WAIT_MIN_MARGIN   = 0.03
	WAIT_SIGMA_FACTOR = 1.5

	// absorbs binary rounding so that e.g. 1.80 <= 1.78 + 0.02 holds
	epsilon = 1e-9
)

type Advice struct {
	FuelType          models.FuelType `json:"fuel_type"`
	Decision          Decision        `json:"decision"`
	Samples           int             `json:"samples"`
	CurrentPrice      float64         `json:"current_price"`
	Median            float64         `json:"median"`
	Mean              float64         `json:"mean"`
	StandardDeviation float64         `json:"standard_deviation"`
	WaitThreshold     float64         `json:"wait_threshold"`
	BestWindowStart   int             `json:"best_window_start_hour"`
	BestWindowEnd     int             `json:"best_window_end_hour"`
	BestWindowAverage float64         `json:"best_window_average"`
	NextBestWindow    time.Time       `json:"next_best_window"`
}

// BuyWaitAdvice compares the current price with the station's recent history.
// It needs at least MIN_ADVICE_POINTS prices for the fuel and returns nil
// otherwise. Hours are taken in loc; now only fixes when the next best window
// starts.
func BuyWaitAdvice(series models.StationSeries, fuelType models.FuelType, now time.Time, loc *time.Location) *Advice {
	priced := pricedPoints(series.Points, fuelType)
	if len(priced) < MIN_ADVICE_POINTS {
		return nil
	}

	values := make(mstats.Float64Data, len(priced))
	for i, pp := range priced {
		values[i] = *pp.Price(fuelType)
	}

	median, err := values.Median()
	if err != nil {
		return nil
	}
	mean, _ := values.Mean()
	stdDev, _ := values.StandardDeviationPopulation()
	current := values[len(values)-1]

	start, windowAvg := bestWindow(hourlyBuckets(priced, fuelType, loc))

	advice := &Advice{
		FuelType:          fuelType,
		Samples:           len(values),
		CurrentPrice:      current,
		Median:            median,
		Mean:              mean,
		StandardDeviation: stdDev,
		WaitThreshold:     median + math.Max(WAIT_MIN_MARGIN, WAIT_SIGMA_FACTOR*stdDev),
		BestWindowStart:   start,
		BestWindowEnd:     (start + BEST_WINDOW_HOURS) % 24,
		BestWindowAverage: windowAvg,
		NextBestWindow:    nextWindowStart(now.In(loc), start),
	}

	switch {
	case current <= windowAvg+BUY_MARGIN+epsilon:
		advice.Decision = Buy
	case current >= advice.WaitThreshold-epsilon:
		advice.Decision = Wait
	default:
		advice.Decision = Neutral
	}
	return advice
}

// bestWindow starts at the cheapest populated hour and averages the populated
// hours of the BEST_WINDOW_HOURS-long span.
func bestWindow(hours [24]bucket) (int, float64) {
	start := -1
	for h, b := range hours {
		if b.count == 0 {
			continue
		}
		if start < 0 || b.average() < hours[start].average() {
			start = h
		}
	}
	if start < 0 {
		return 0, math.NaN()
	}

	sum, n := 0.0, 0
	for i := 0; i < BEST_WINDOW_HOURS; i++ {
		b := hours[(start+i)%24]
		if b.count > 0 {
			sum += b.average()
			n++
		}
	}
	return start, sum / float64(n)
}

// nextWindowStart is today at hour if the current hour has not passed it yet,
// otherwise tomorrow.
func nextWindowStart(now time.Time, hour int) time.Time {
	day := now.Day()
	if now.Hour() > hour {
		day++
	}
	return time.Date(now.Year(), now.Month(), day, hour, 0, 0, 0, now.Location())
}
