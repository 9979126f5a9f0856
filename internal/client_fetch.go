package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker"

	"github.com/rm-hull/fuel-price-dashboard/internal/logger"
	"github.com/rm-hull/fuel-price-dashboard/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var log = logger.Named("datasette")

const PAGE_SIZE = 1000

// RemoteQueryError is returned when the query service responds with a non-2xx
// status or with a body that is not JSON.
type RemoteQueryError struct {
	URL        string
	Status     string
	StatusCode int
	Cause      error
}

func (e *RemoteQueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("query %s failed (%s): %v", e.URL, e.Status, e.Cause)
	}
	return fmt.Sprintf("http status response from %s: %s", e.URL, e.Status)
}

func (e *RemoteQueryError) Unwrap() error {
	return e.Cause
}

type QueryClient interface {
	FetchAll(ctx context.Context, query string, params map[string]string) ([]models.Row, error)
	Ping(ctx context.Context) error
}

// RowDecoder turns a loosely-typed row into a validated value.
type RowDecoder[T any] func(models.Row) (T, error)

type datasetteClient struct {
	baseUrl  string
	database string
	pageSize int
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
}

type ClientOption func(*datasetteClient)

func WithPageSize(n int) ClientOption {
	return func(c *datasetteClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *datasetteClient) {
		c.client = client
	}
}

// NewQueryClient returns a client for the JSON API of a Datasette instance
// publishing the given database.
func NewQueryClient(baseUrl, database string, opts ...ClientOption) QueryClient {
	c := &datasetteClient{
		baseUrl:  strings.TrimRight(baseUrl, "/"),
		database: database,
		pageSize: PAGE_SIZE,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "datasette",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("circuit breaker changed state", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// FetchAll runs query page by page until a short page signals the end, and
// returns every row in order. A failed page discards everything fetched so far.
func (c *datasetteClient) FetchAll(ctx context.Context, query string, params map[string]string) ([]models.Row, error) {
	base := strings.TrimRight(strings.TrimSpace(query), ";")

	var all []models.Row
	for offset := 0; ; offset += c.pageSize {
		paged := fmt.Sprintf("%s LIMIT %d OFFSET %d", base, c.pageSize, offset)
		rows, err := c.fetchPage(ctx, paged, params)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)

		if len(rows) < c.pageSize {
			break
		}
	}

	rowsFetched.Add(float64(len(all)))
	return all, nil
}

func (c *datasetteClient) Ping(ctx context.Context) error {
	_, err := c.fetchPage(ctx, "SELECT 1 AS ok", nil)
	return err
}

func (c *datasetteClient) queryUrl(query string, params map[string]string) string {
	values := neturl.Values{}
	values.Set("sql", query)
	values.Set("_shape", "objects")
	for name, value := range params {
		values.Set(name, value)
	}
	return fmt.Sprintf("%s/%s.json?%s", c.baseUrl, c.database, values.Encode())
}

func (c *datasetteClient) fetchPage(ctx context.Context, query string, params map[string]string) ([]models.Row, error) {
	url := c.queryUrl(query, params)

	result, err := c.breaker.Execute(func() (any, error) {
		return c.get(ctx, url)
	})
	if err != nil {
		var rqErr *RemoteQueryError
		if errors.As(err, &rqErr) {
			requestErrors.WithLabelValues(strconv.Itoa(rqErr.StatusCode)).Inc()
		} else {
			requestErrors.WithLabelValues("transport").Inc()
		}
		return nil, err
	}
	pagesFetched.Inc()

	rows, ok := result.([]models.Row)
	if !ok {
		return nil, errors.Newf("unexpected result type %T from circuit breaker", result)
	}
	return rows, nil
}

func (c *datasetteClient) get(ctx context.Context, url string) ([]models.Row, error) {
	log.Debugf("GET %s", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch from %s", url)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnf("failed to close body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteQueryError{URL: url, Status: resp.Status, StatusCode: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	rows, err := decodeRows(bodyBytes)
	if err != nil {
		return nil, &RemoteQueryError{URL: url, Status: resp.Status, StatusCode: resp.StatusCode, Cause: err}
	}
	return rows, nil
}

// decodeRows accepts both the _shape=array and _shape=objects layouts. Any
// other well-formed JSON is treated as an empty result.
func decodeRows(body []byte) ([]models.Row, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}

	switch v := payload.(type) {
	case []any:
		return toRows(v), nil
	case map[string]any:
		if rows, ok := v["rows"].([]any); ok {
			return toRows(rows), nil
		}
	}

	log.Warnf("WARNING: unexpected response shape %T, treating as zero rows", payload)
	return nil, nil
}

func toRows(items []any) []models.Row {
	rows := make([]models.Row, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			rows = append(rows, models.Row(obj))
		}
	}
	return rows
}

// FetchAllAs runs query through client and decodes every row. Rows that fail
// validation are skipped.
func FetchAllAs[T any](ctx context.Context, client QueryClient, query string, params map[string]string, decode RowDecoder[T]) ([]T, error) {
	rows, err := client.FetchAll(ctx, query, params)
	if err != nil {
		return nil, err
	}

	results := make([]T, 0, len(rows))
	for i, row := range rows {
		value, err := decode(row)
		if err != nil {
			log.Warnw("skipping invalid row", "index", i, "error", err)
			continue
		}
		results = append(results, value)
	}
	return results, nil
}
