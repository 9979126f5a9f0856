package models

import "time"

// SeriesStyle carries the hints a chart renderer needs to tell lines apart:
// one colour per station, one dash pattern per fuel.
type SeriesStyle struct {
	ColorIndex int   `json:"color_index"`
	Dash       []int `json:"dash,omitempty"`
}

// NamedSeries is one station/fuel line aligned to ChartData.Labels. A nil
// value is a gap: the station reported nothing at that timestamp.
type NamedSeries struct {
	StationId string      `json:"station_id"`
	FuelType  FuelType    `json:"fuel_type"`
	Label     string      `json:"label"`
	Style     SeriesStyle `json:"style"`
	Values    []*float64  `json:"values"`
}

type ChartData struct {
	Labels []time.Time   `json:"labels"`
	Series []NamedSeries `json:"series"`
}
