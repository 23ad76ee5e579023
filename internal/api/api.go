// Package api is the typed dashboard API: businesses and their keywords,
// service areas, service offerings, prompt templates and generation jobs.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/client"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/logger"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/metrics"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/models"
)

// listAllPageSize is the page size used when every page of a list is needed.
const listAllPageSize = 100

// maxListPages stops listAll against a server that never reports the end.
const maxListPages = 50

// Requester is the subset of *client.Client the API needs.
type Requester interface {
	Get(ctx context.Context, path string, opts ...client.RequestOption) (*client.Response, error)
	Post(ctx context.Context, path string, body any, opts ...client.RequestOption) (*client.Response, error)
	Put(ctx context.Context, path string, body any, opts ...client.RequestOption) (*client.Response, error)
	Delete(ctx context.Context, path string, opts ...client.RequestOption) (*client.Response, error)
}

// API issues typed calls through a Requester.
type API struct {
	req     Requester
	logger  logger.Logger
	metrics *metrics.Metrics
	limiter *rate.Limiter
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger used by the bulk importers.
func WithLogger(l logger.Logger) Option {
	return func(a *API) { a.logger = l }
}

// WithMetrics records bulk import outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *API) { a.metrics = m }
}

// WithLimiter paces the create calls of bulk imports.
func WithLimiter(l *rate.Limiter) Option {
	return func(a *API) { a.limiter = l }
}

// New returns an API over req.
func New(req Requester, opts ...Option) *API {
	a := &API{req: req, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ListOptions filters and pages a list call. Zero fields are omitted.
type ListOptions struct {
	Search   string
	Language string
	Status   string
	Page     int
	Limit    int
	Sort     string
	Order    string
}

// Values encodes the options as query parameters.
func (o ListOptions) Values() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", o.Search)
	set("language", o.Language)
	set("status", o.Status)
	set("sort", o.Sort)
	set("order", o.Order)
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	return q
}

func businessPath(id string) string {
	return "/api/businesses/" + url.PathEscape(id)
}

func subPath(businessID, resource string) string {
	return businessPath(businessID) + "/" + resource
}

func itemPath(businessID, resource, id string) string {
	return subPath(businessID, resource) + "/" + url.PathEscape(id)
}

func getOne[T any](ctx context.Context, a *API, path, key string) (*T, error) {
	resp, err := a.req.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](resp, key)
}

func createOne[T any](ctx context.Context, a *API, path, key string, body any) (*T, error) {
	resp, err := a.req.Post(ctx, path, body)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](resp, key)
}

func updateOne[T any](ctx context.Context, a *API, path, key string, body any) (*T, error) {
	resp, err := a.req.Put(ctx, path, body)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](resp, key)
}

func (a *API) remove(ctx context.Context, path string) error {
	_, err := a.req.Delete(ctx, path)
	return err
}

func list[T any](ctx context.Context, a *API, path, key string, opts ListOptions) ([]T, *models.Pagination, error) {
	var reqOpts []client.RequestOption
	if q := opts.Values(); len(q) > 0 {
		reqOpts = append(reqOpts, client.WithQuery(q))
	}
	resp, err := a.req.Get(ctx, path, reqOpts...)
	if err != nil {
		return nil, nil, err
	}
	return decodeList[T](resp, key)
}

// listAll walks every page. A response without pagination is one page.
func listAll[T any](ctx context.Context, a *API, path, key string, opts ListOptions) ([]T, error) {
	opts.Limit = listAllPageSize
	var all []T
	for page := 1; page <= maxListPages; page++ {
		opts.Page = page
		items, p, err := list[T](ctx, a, path, key, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if p == nil || len(items) < listAllPageSize || (p.Total > 0 && len(all) >= p.Total) {
			return all, nil
		}
	}
	a.logger.Warn("List truncated", logger.String("path", path), logger.Int("items", len(all)))
	return all, nil
}

// decodeOne accepts either the bare record or an envelope {"<key>": {...}}.
// An empty body decodes to nil.
func decodeOne[T any](resp *client.Response, key string) (*T, error) {
	body := resp.Body
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var env map[string]json.RawMessage
	if json.Unmarshal(body, &env) == nil {
		if raw, ok := env[key]; ok && isObject(raw) {
			body = raw
		}
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &out, nil
}

// decodeList accepts a bare array or an envelope holding the array under
// key, "items" or "data", with an optional "pagination" block.
func decodeList[T any](resp *client.Response, key string) ([]T, *models.Pagination, error) {
	var items []T
	if isArray(resp.Body) {
		if err := resp.Decode(&items); err != nil {
			return nil, nil, err
		}
		return items, nil, nil
	}

	var env map[string]json.RawMessage
	if err := resp.Decode(&env); err != nil {
		return nil, nil, err
	}
	for _, k := range []string{key, "items", "data"} {
		raw, ok := env[k]
		if !ok || !isArray(raw) {
			continue
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", key, err)
		}
		break
	}

	var page *models.Pagination
	if raw, ok := env["pagination"]; ok && isObject(raw) {
		page = &models.Pagination{}
		if err := json.Unmarshal(raw, page); err != nil {
			return nil, nil, fmt.Errorf("decode pagination: %w", err)
		}
	}
	return items, page, nil
}

func isObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isArray(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
