package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/contactbook/pkg/utils/logging"
	"github.com/secmon-lab/contactbook/pkg/utils/metrics"
	"github.com/secmon-lab/contactbook/pkg/utils/safe"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is the Airtable REST API root.
	DefaultEndpoint = "https://api.airtable.com/v0"

	// Airtable allows 5 requests per second per base.
	DefaultRateLimit = 5

	pageSize = 100
)

var (
	ErrNotFound       = goerr.New("airtable record not found")
	ErrInvalidRequest = goerr.New("airtable rejected the request")
)

// Client talks to one Airtable base.
type Client struct {
	apiKey     string
	baseID     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithEndpoint overrides the API root, e.g. for an httptest server.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimRight(endpoint, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets requests per second. Zero or less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func New(apiKey, baseID string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("Airtable API key is required")
	}
	if baseID == "" {
		return nil, goerr.New("Airtable base ID is required")
	}

	c := &Client{
		apiKey:     apiKey,
		baseID:     baseID,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Record is one Airtable row. Fields is left as raw JSON; callers pick the
// fields they need.
type Record struct {
	ID          string
	CreatedTime time.Time
	Fields      gjson.Result
}

// Field returns a field value by name. Names may contain spaces and
// punctuation, so they are escaped for the gjson path syntax.
func (r *Record) Field(name string) gjson.Result {
	return r.Fields.Get(escapePath(name))
}

// Strings returns a field as a string list. Scalar values become a one
// element list; missing fields an empty list.
func (r *Record) Strings(name string) []string {
	v := r.Field(name)
	if !v.Exists() {
		return nil
	}
	if !v.IsArray() {
		if s := v.String(); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range v.Array() {
		out = append(out, item.String())
	}
	return out
}

type Sort struct {
	Field     string
	Direction string // "asc" or "desc"
}

type ListParams struct {
	View       string
	Fields     []string
	Formula    string
	MaxRecords int
	Sort       []Sort
}

// List returns every record matching p, following pagination.
func (c *Client) List(ctx context.Context, table string, p ListParams) ([]*Record, error) {
	var records []*Record
	offset := ""

	for {
		q := url.Values{}
		if p.View != "" {
			q.Set("view", p.View)
		}
		for _, f := range p.Fields {
			q.Add("fields[]", f)
		}
		if p.Formula != "" {
			q.Set("filterByFormula", p.Formula)
		}
		if p.MaxRecords > 0 {
			q.Set("maxRecords", strconv.Itoa(p.MaxRecords))
		}
		for i, s := range p.Sort {
			q.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
			if s.Direction != "" {
				q.Set(fmt.Sprintf("sort[%d][direction]", i), s.Direction)
			}
		}
		q.Set("pageSize", strconv.Itoa(pageSize))
		if offset != "" {
			q.Set("offset", offset)
		}

		body, err := c.do(ctx, http.MethodGet, table, "", q, nil)
		if err != nil {
			return nil, err
		}

		for _, raw := range gjson.GetBytes(body, "records").Array() {
			records = append(records, parseRecord(raw))
		}

		offset = gjson.GetBytes(body, "offset").String()
		if offset == "" || (p.MaxRecords > 0 && len(records) >= p.MaxRecords) {
			break
		}
	}

	return records, nil
}

// Get fetches one record. Unknown IDs yield ErrNotFound.
func (c *Client) Get(ctx context.Context, table, id string) (*Record, error) {
	body, err := c.do(ctx, http.MethodGet, table, id, nil, nil)
	if err != nil {
		return nil, err
	}
	return parseRecord(gjson.ParseBytes(body)), nil
}

// Create inserts a record. Typecast lets Airtable coerce select options and
// linked record IDs.
func (c *Client) Create(ctx context.Context, table string, fields map[string]any) (*Record, error) {
	body, err := c.do(ctx, http.MethodPost, table, "", nil, map[string]any{
		"fields":   fields,
		"typecast": true,
	})
	if err != nil {
		return nil, err
	}
	return parseRecord(gjson.ParseBytes(body)), nil
}

// Update patches the given fields of a record.
func (c *Client) Update(ctx context.Context, table, id string, fields map[string]any) (*Record, error) {
	body, err := c.do(ctx, http.MethodPatch, table, id, nil, map[string]any{
		"fields":   fields,
		"typecast": true,
	})
	if err != nil {
		return nil, err
	}
	return parseRecord(gjson.ParseBytes(body)), nil
}

func (c *Client) do(ctx context.Context, method, table, id string, query url.Values, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, goerr.Wrap(err, "rate limiter wait interrupted", goerr.V("table", table))
	}

	u := c.endpoint + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode request", goerr.V("table", table))
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("table", table))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAirtableRequest(table, "error")
		return nil, goerr.Wrap(err, "airtable request failed", goerr.V("table", table), goerr.V("method", method))
	}
	defer safe.Close(ctx, resp.Body)

	metrics.RecordAirtableRequest(table, strconv.Itoa(resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read airtable response", goerr.V("table", table))
	}

	logging.From(ctx).Debug("airtable request",
		"method", method,
		"table", table,
		"status", resp.StatusCode,
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, goerr.Wrap(ErrNotFound, "airtable returned not found",
			goerr.V("table", table), goerr.V("id", id))
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, goerr.Wrap(ErrInvalidRequest, errorMessage(body),
			goerr.V("table", table), goerr.V("status", resp.StatusCode))
	case resp.StatusCode >= 300:
		return nil, goerr.New("airtable request failed",
			goerr.V("table", table),
			goerr.V("status", resp.StatusCode),
			goerr.V("message", errorMessage(body)))
	}

	return body, nil
}

func parseRecord(raw gjson.Result) *Record {
	r := &Record{
		ID:     raw.Get("id").String(),
		Fields: raw.Get("fields"),
	}
	if t, err := time.Parse(time.RFC3339, raw.Get("createdTime").String()); err == nil {
		r.CreatedTime = t
	}
	return r
}

// errorMessage extracts the message of {"error":{"type":..,"message":..}} or
// {"error":"TYPE"} bodies.
func errorMessage(body []byte) string {
	e := gjson.GetBytes(body, "error")
	if msg := e.Get("message").String(); msg != "" {
		return e.Get("type").String() + ": " + msg
	}
	if s := e.String(); s != "" {
		return s
	}
	return string(body)
}

// escapePath escapes gjson path metacharacters in a field name.
func escapePath(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
