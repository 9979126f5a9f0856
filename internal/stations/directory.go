package stations

import (
	"context"
	_ "embed"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/kofalt/go-memoize"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rm-hull/fuel-price-dashboard/internal"
	"github.com/rm-hull/fuel-price-dashboard/internal/logger"
	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

//go:embed sql/list_stations.sql
var listStationsSQL string

const (
	DEFAULT_SEARCH_LIMIT = 5
	// SIMILARITY_THRESHOLD is the minimum similarity score for a field to
	// count as a match.
	SIMILARITY_THRESHOLD = 0.1

	neverExpire time.Duration = -1
)

var log = logger.Named("stations")

// Directory is the read-only list of stations published by the query
// service, plus a fuzzy index over their names and addresses.
type Directory struct {
	client   internal.QueryClient
	memoizer *memoize.Memoizer

	mu        sync.RWMutex
	stations  []models.Station
	byId      map[string]models.Station
	names     []string
	addresses []string
	folded    [2][]string
}

func NewDirectory(client internal.QueryClient) *Directory {
	return &Directory{
		client:   client,
		memoizer: memoize.NewMemoizer(neverExpire, 0),
	}
}

// Load fetches the station list once; later calls return the same list.
func (d *Directory) Load(ctx context.Context) ([]models.Station, error) {
	result, err, cached := d.memoizer.Memoize("stations", func() (any, error) {
		stations, err := internal.FetchAllAs(ctx, d.client, listStationsSQL, nil, models.DecodeStation)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load station directory")
		}
		d.buildIndex(stations)
		log.Infof("loaded %d stations", len(stations))
		return stations, nil
	})
	if err != nil {
		return nil, err
	}
	if cached {
		log.Debug("station directory served from cache")
	}
	return result.([]models.Station), nil
}

func (d *Directory) buildIndex(stations []models.Station) {
	byId := make(map[string]models.Station, len(stations))
	names := make([]string, len(stations))
	addresses := make([]string, len(stations))
	folded := [2][]string{make([]string, len(stations)), make([]string, len(stations))}
	for i, station := range stations {
		if _, ok := byId[station.Id]; ok {
			log.Warnf("duplicate station id detected: %s", station.Id)
			continue
		}
		byId[station.Id] = station
		names[i] = station.Name
		addresses[i] = station.Address
		folded[0][i] = fold(station.Name)
		folded[1][i] = fold(station.Address)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.stations = stations
	d.byId = byId
	d.names = names
	d.addresses = addresses
	d.folded = folded
}

// Lookup resolves an external station id.
func (d *Directory) Lookup(id string) (models.Station, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	station, ok := d.byId[id]
	return station, ok
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.stations)
}

type match struct {
	index      int
	similarity float64
}

// Search returns up to limit stations whose name or address fuzzily matches
// term, best matches first.
func (d *Directory) Search(term string, limit int) []models.Station {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Station{}
	}
	if limit <= 0 {
		limit = DEFAULT_SEARCH_LIMIT
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	folded := fold(term)
	best := make(map[int]float64)
	for f, field := range [][]string{d.names, d.addresses} {
		for _, rank := range fuzzy.RankFindNormalizedFold(term, field) {
			s := similarity(folded, d.folded[f][rank.OriginalIndex])
			if s < SIMILARITY_THRESHOLD {
				continue
			}
			if s > best[rank.OriginalIndex] {
				best[rank.OriginalIndex] = s
			}
		}
	}

	matches := make([]match, 0, len(best))
	for idx, s := range best {
		matches = append(matches, match{index: idx, similarity: s})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].similarity != matches[j].similarity {
			return matches[i].similarity > matches[j].similarity
		}
		a, b := d.stations[matches[i].index], d.stations[matches[j].index]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Id < b.Id
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]models.Station, len(matches))
	for i, m := range matches {
		results[i] = d.stations[m.index]
	}
	return results
}

// fold lower-cases s and strips combining marks, so "Düsseldorf" and
// "DUSSELDORF" compare equal. The transformer is stateful, hence one per call.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(result)
}

// similarity scores a folded term against a folded field in [0, 1]. An exact
// match scores 1. A term that starts a word of the field scores at least 0.5,
// rising with the share of the field it covers. Anything else falls back to
// the edit distance relative to the field length.
func similarity(term, field string) float64 {
	length := utf8.RuneCountInString(field)
	if length == 0 {
		return 0
	}
	if term == field {
		return 1
	}
	if startsWord(term, field) {
		return 0.5 + 0.5*float64(utf8.RuneCountInString(term))/float64(length)
	}
	s := 1 - float64(fuzzy.LevenshteinDistance(term, field))/float64(length)
	if s < 0 {
		return 0
	}
	return s
}

func startsWord(term, field string) bool {
	for i := 0; i < len(field); {
		idx := strings.Index(field[i:], term)
		if idx < 0 {
			return false
		}
		idx += i
		if idx == 0 {
			return true
		}
		prev, _ := utf8.DecodeLastRuneInString(field[:idx])
		if !unicode.IsLetter(prev) && !unicode.IsDigit(prev) {
			return true
		}
		_, size := utf8.DecodeRuneInString(field[idx:])
		i = idx + size
	}
	return false
}
