package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type FuelType string

const (
	Diesel FuelType = "diesel"
	E5     FuelType = "e5"
	E10    FuelType = "e10"
)

// AllFuelTypes lists the known fuel keys in display order.
var AllFuelTypes = []FuelType{Diesel, E5, E10}

var fuelLabels = map[FuelType]string{
	Diesel: "Diesel",
	E5:     "Super E5",
	E10:    "Super E10",
}

func ParseFuelType(s string) (FuelType, bool) {
	ft := FuelType(strings.ToLower(strings.TrimSpace(s)))
	_, ok := fuelLabels[ft]
	return ft, ok
}

func (ft FuelType) Label() string {
	if label, ok := fuelLabels[ft]; ok {
		return label
	}
	return string(ft)
}

// Row is a single loosely-typed result row from the query service.
type Row map[string]any

type Station struct {
	Id        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// PricePoint is one transmission of a station. A nil price means the station
// did not report that fuel at that instant.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Diesel    *float64  `json:"diesel"`
	E5        *float64  `json:"e5"`
	E10       *float64  `json:"e10"`
}

func (pp *PricePoint) Price(ft FuelType) *float64 {
	switch ft {
	case Diesel:
		return pp.Diesel
	case E5:
		return pp.E5
	case E10:
		return pp.E10
	default:
		return nil
	}
}

type StationSeries struct {
	Station Station      `json:"station"`
	Points  []PricePoint `json:"points"`
}

// Latest returns the most recent point, or nil for an empty series.
func (ss *StationSeries) Latest() *PricePoint {
	if len(ss.Points) == 0 {
		return nil
	}
	return &ss.Points[len(ss.Points)-1]
}

// DecodeStation validates a gas_stations row.
func DecodeStation(row Row) (Station, error) {
	id := asString(row["station_id"])
	if id == "" {
		return Station{}, errors.New("row has no station_id")
	}
	station := Station{
		Id:      id,
		Name:    asString(row["name"]),
		Address: asString(row["address"]),
	}
	station.Latitude, _ = asFloat(row["latitude"])
	station.Longitude, _ = asFloat(row["longitude"])
	return station, nil
}

// PricePointDecoder returns a decoder for price_history rows. Naive
// timestamps are interpreted in loc.
func PricePointDecoder(loc *time.Location) func(Row) (PricePoint, error) {
	return func(row Row) (PricePoint, error) {
		ts, err := ParseTransmissionTime(asString(row["ts"]), loc)
		if err != nil {
			return PricePoint{}, err
		}

		pp := PricePoint{Timestamp: ts}
		for col, dest := range map[string]**float64{"diesel": &pp.Diesel, "e5": &pp.E5, "e10": &pp.E10} {
			price, err := asFloat(row[col])
			if err != nil {
				return PricePoint{}, errors.Wrapf(err, "column %s", col)
			}
			if price != nil && *price > 0 {
				*dest = price
			}
		}
		return pp, nil
	}
}

var transmissionLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// ParseTransmissionTime accepts RFC 3339 instants as well as the naive local
// timestamps the crawler stores.
func ParseTransmissionTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.In(loc), nil
	}
	for _, layout := range transmissionLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.Newf("unrecognised timestamp %q", s)
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func asFloat(v any) (*float64, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &val, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", val)
		}
		return &f, nil
	case jsoniter.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return &f, nil
	default:
		return nil, errors.Newf("unexpected value type %T", v)
	}
}
