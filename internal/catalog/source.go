package catalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valyala/fasthttp"
)

// Source supplies raw catalog records.
type Source interface {
	Fetch(ctx context.Context) ([]RawAccessPoint, error)
}

// StaticSource serves a fixed record list. Used in development and tests.
type StaticSource []RawAccessPoint

// Fetch returns a copy of the static records.
func (s StaticSource) Fetch(_ context.Context) ([]RawAccessPoint, error) {
	out := make([]RawAccessPoint, len(s))
	copy(out, s)
	return out, nil
}

// HTTPSource reads the router list from the admin backend (GET api/router/).
type HTTPSource struct {
	url     string
	timeout time.Duration
	client  *fasthttp.Client
}

// NewHTTPSource creates a source for url.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		url:     url,
		timeout: timeout,
		client:  &fasthttp.Client{MaxConnsPerHost: 4},
	}
}

// Fetch downloads and decodes the router list.
func (s *HTTPSource) Fetch(ctx context.Context) ([]RawAccessPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.SetRequestURI(s.url)
	req.Header.SetMethod(http.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	if code := resp.StatusCode(); code != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", code)
	}

	var records []RawAccessPoint
	if err := sonic.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return records, nil
}

const selectRouters = `
SELECT id::text, name, location, health, online, capacity::float8,
       latitude::float8, longitude::float8, COALESCE(mac, ''), COALESCE(ip, '')
FROM routers
ORDER BY id`

// PostgresSource reads the catalog from the routers table.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a source backed by pool.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Fetch loads every router row. NULL columns stay nil so Normalize can apply
// the same defaults as for remote records.
func (s *PostgresSource) Fetch(ctx context.Context) ([]RawAccessPoint, error) {
	rows, err := s.pool.Query(ctx, selectRouters)
	if err != nil {
		return nil, fmt.Errorf("query routers: %w", err)
	}
	defer rows.Close()

	var out []RawAccessPoint
	for rows.Next() {
		var (
			id       string
			r        RawAccessPoint
			health   *string
			online   *bool
			location *string
		)
		if err := rows.Scan(&id, &r.Name, &location, &health, &online, &r.Capacity,
			&r.Latitude, &r.Longitude, &r.MAC, &r.IP); err != nil {
			return nil, fmt.Errorf("scan router: %w", err)
		}
		r.ID = id
		r.Location = location
		if health != nil {
			h := RawHealth(*health)
			r.Health = &h
		}
		if online != nil {
			h := RawHealth(fmt.Sprint(*online))
			r.Online = &h
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate routers: %w", err)
	}
	return out, nil
}
