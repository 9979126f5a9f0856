package selection

import (
	"net/url"
	"sync"
)

// Location is an in-process address bar: it holds the single current query
// string of the dashboard.
type Location struct {
	mu    sync.RWMutex
	query url.Values
}

func NewLocation(initial url.Values) *Location {
	return &Location{query: cloneValues(initial)}
}

func (l *Location) Replace(query url.Values) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = cloneValues(query)
}

func (l *Location) Query() url.Values {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneValues(l.query)
}

func (l *Location) String() string {
	return l.Query().Encode()
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return url.Values{}
	}
	clone := make(url.Values, len(v))
	for key, values := range v {
		clone[key] = append([]string{}, values...)
	}
	return clone
}
