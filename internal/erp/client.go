// Package erp is the client for the ERP that owns every business record.
// It forwards the user's session cookie, normalizes the ERP's response
// envelopes and maps wire records onto core types.
package erp

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
	"sync/atomic"
	"time"

	"backoffice/internal/core"
	applog "backoffice/internal/log"
)

const (
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 10 << 20
	apiKeyHeader   = "X-API-Key"
)

type sessionKey struct{}

// WithSession attaches the caller's ERP session cookie to ctx.
func WithSession(ctx context.Context, cookie *http.Cookie) context.Context {
	if cookie == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, cookie)
}

// SessionFrom returns the session cookie attached to ctx, if any.
func SessionFrom(ctx context.Context) (*http.Cookie, bool) {
	c, ok := ctx.Value(sessionKey{}).(*http.Cookie)
	return c, ok
}

// Client talks to the ERP over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *applog.Logger
	rpcID   atomic.Int64

	Employees      *Resource[employeeWire, core.Employee]
	Remuneraciones *Resource[remuneracionWire, core.Remuneracion]
	Previsionales  *Resource[previsionalWire, core.Previsional]
	Projects       *Resource[projectWire, core.Project]
	Milestones     *Resource[milestoneWire, core.Milestone]
	CostCenters    *Resource[costCenterWire, core.CostCenter]
	Categories     *Resource[categoryWire, Category]

	CashflowLines      *Resource[lineWire, core.LineItem]
	Income             *Resource[lineWire, core.LineItem]
	FixedCosts         *Resource[lineWire, core.LineItem]
	Factoring          *Resource[lineWire, core.LineItem]
	PurchaseOrderItems *Resource[lineWire, core.LineItem]
}

type Option func(*Client)

// WithAPIKey authenticates non-interactive callers such as the export worker.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithComponent(applog.ComponentERP)
		}
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  applog.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Employees = newResource(c, "/empleados", employeeFromWire, employeeToWire)
	c.Remuneraciones = newResource(c, "/api/remuneraciones", remuneracionFromWire, remuneracionToWire)
	c.Previsionales = newResource(c, "/api/previsionales", previsionalFromWire, previsionalToWire)
	c.Projects = newResource(c, "/api/projects", projectFromWire, projectToWire)
	c.Milestones = newResource(c, "/api/milestones", milestoneFromWire, milestoneToWire)
	c.CostCenters = newResource(c, "/api/cost-centers", costCenterFromWire, costCenterToWire)
	c.Categories = newResource(c, "/api/cashflow/categories", categoryFromWire, categoryToWire)

	c.CashflowLines = newResource(c, "/api/cashflow/lines", lineFromWire(core.Expense), lineToWire)
	c.Income = newResource(c, "/api/income", lineFromWire(core.Income), lineToWire)
	c.FixedCosts = newResource(c, "/api/fixed-costs", lineFromWire(core.Expense), lineToWire)
	c.Factoring = newResource(c, "/api/factoring", lineFromWire(core.Income), lineToWire)
	c.PurchaseOrderItems = newResource(c, "/api/purchase-orders/items", lineFromWire(core.Expense), lineToWire)
	return c
}

// Get issues a GET and decodes the normalized payload into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// CallRPC posts a JSON-RPC 2.0 "call" with params to path.
func (c *Client) CallRPC(ctx context.Context, path string, params, out any) error {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "call",
		"params":  params,
		"id":      c.rpcID.Add(1),
	}
	return c.Do(ctx, http.MethodPost, path, nil, req, out)
}

// Do performs one request. out may be nil. Payload decoding goes through
// the envelope normalizer.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	raw, err := c.roundTrip(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	payload, err := unwrap(raw)
	if err != nil {
		return err
	}
	if out == nil || isNull(payload) {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("erp: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("erp: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("erp: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie, ok := SessionFrom(ctx); ok {
		req.AddCookie(cookie)
	} else if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "ERP request failed",
			applog.FieldMethod, method, applog.FieldPath, path, applog.FieldError, err)
		return nil, fmt.Errorf("erp: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("erp: read %s %s: %w", method, path, err)
	}

	c.logger.DebugContext(ctx, "ERP request completed",
		applog.FieldMethod, method,
		applog.FieldPath, path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode >= 400 {
		e := &Error{Status: resp.StatusCode}
		if _, uerr := unwrap(data); uerr != nil {
			if le, ok := uerr.(*Error); ok {
				e.Message, e.Code = le.Message, le.Code
			}
		}
		if e.Message == "" && len(data) > 0 && len(data) < 512 && !bytes.HasPrefix(bytes.TrimSpace(data), []byte("<")) {
			e.Message = strings.TrimSpace(string(data))
		}
		return nil, e
	}
	return data, nil
}

func itemPath(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}
