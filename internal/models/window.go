package models

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

type Preset string

const (
	PresetDay       Preset = "1d"
	PresetWeek      Preset = "7d"
	PresetFortnight Preset = "14d"
	PresetAll       Preset = "all"
)

var presetSpans = map[Preset]time.Duration{
	PresetDay:       24 * time.Hour,
	PresetWeek:      7 * 24 * time.Hour,
	PresetFortnight: 14 * 24 * time.Hour,
	PresetAll:       0,
}

// presetNames are the spelled-out preset labels accepted alongside the short
// forms. Windows always serialise to the short form.
var presetNames = map[string]Preset{
	"1 day":   PresetDay,
	"7 days":  PresetWeek,
	"14 days": PresetFortnight,
}

// isoMillis matches the instants produced by JavaScript's toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z"

// TimeWindow is either a named preset, resolved against "now" whenever it is
// evaluated, or an explicit range with Start <= End.
type TimeWindow struct {
	Preset Preset
	Start  time.Time
	End    time.Time
}

// MalformedStateError reports persisted or URL state that could not be parsed.
type MalformedStateError struct {
	Key   string
	Value string
	Cause error
}

func (e *MalformedStateError) Error() string {
	return "malformed " + e.Key + " state " + "\"" + e.Value + "\": " + e.Cause.Error()
}

func (e *MalformedStateError) Unwrap() error {
	return e.Cause
}

func PresetWindow(p Preset) TimeWindow {
	return TimeWindow{Preset: p}
}

// RangeWindow returns an explicit window, swapping the bounds if reversed.
func RangeWindow(start, end time.Time) TimeWindow {
	if end.Before(start) {
		start, end = end, start
	}
	return TimeWindow{Start: start, End: end}
}

func AllTime() TimeWindow {
	return PresetWindow(PresetAll)
}

func (w TimeWindow) IsExplicit() bool {
	return w.Preset == ""
}

// Bounds resolves the window at now. The boolean is false for the unbounded
// "all" preset.
func (w TimeWindow) Bounds(now time.Time) (time.Time, time.Time, bool) {
	if w.IsExplicit() {
		return w.Start, w.End, true
	}
	span := presetSpans[w.Preset]
	if span == 0 {
		return time.Time{}, time.Time{}, false
	}
	return now.Add(-span), now, true
}

// Contains reports whether ts lies inside the window resolved at now.
func (w TimeWindow) Contains(ts, now time.Time) bool {
	start, end, bounded := w.Bounds(now)
	if !bounded {
		return true
	}
	return !ts.Before(start) && !ts.After(end)
}

// String encodes the window as a preset name or a "start;end" ISO pair.
func (w TimeWindow) String() string {
	if w.IsExplicit() {
		return w.Start.UTC().Format(isoMillis) + ";" + w.End.UTC().Format(isoMillis)
	}
	return string(w.Preset)
}

// ParseTimeWindow decodes the output of TimeWindow.String.
func ParseTimeWindow(s string) (TimeWindow, error) {
	s = strings.TrimSpace(s)
	if _, ok := presetSpans[Preset(s)]; ok {
		return PresetWindow(Preset(s)), nil
	}
	if p, ok := presetNames[strings.ToLower(strings.Join(strings.Fields(s), " "))]; ok {
		return PresetWindow(p), nil
	}

	startStr, endStr, ok := strings.Cut(s, ";")
	if !ok {
		return TimeWindow{}, &MalformedStateError{Key: "time", Value: s, Cause: errors.New("unknown preset")}
	}
	start, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(startStr))
	if err != nil {
		return TimeWindow{}, &MalformedStateError{Key: "time", Value: s, Cause: err}
	}
	end, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(endStr))
	if err != nil {
		return TimeWindow{}, &MalformedStateError{Key: "time", Value: s, Cause: err}
	}
	return RangeWindow(start, end), nil
}

func (w TimeWindow) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *TimeWindow) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeWindow(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseTimeWindowOrAll falls back to the "all" preset for malformed input.
func ParseTimeWindowOrAll(s string) (TimeWindow, error) {
	w, err := ParseTimeWindow(s)
	if err != nil {
		return AllTime(), err
	}
	return w, nil
}
