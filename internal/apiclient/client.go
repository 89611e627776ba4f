// Package apiclient is the console's client for the platform REST API: zones
// and tracked-entity locations.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apperr"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/metrics"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/model"
)

const (
	tracerName   = "github.com/palepusrinivas/guava-adminpanel-sub003/internal/apiclient"
	maxBodyBytes = 4 << 20
)

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	base         *url.URL
	http         *http.Client
	tokens       TokenSource
	limiter      *rate.Limiter
	log          logging.Logger
	tracer       trace.Tracer
	positionPath string
	now          func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outbound requests; rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithPositionPath overrides the tracked-entity endpoint prefix
// (default "/bus-location/").
func WithPositionPath(p string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		c.positionPath = p
	}
}

// New builds a Client for baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		base:         u,
		http:         &http.Client{Timeout: 10 * time.Second},
		tokens:       tokens,
		limiter:      rate.NewLimiter(rate.Inf, 0),
		log:          logging.Noop(),
		tracer:       otel.Tracer(tracerName),
		positionPath: "/bus-location/",
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListZones fetches all zones (GET /zones).
func (c *Client) ListZones(ctx context.Context) ([]model.Zone, error) {
	body, err := c.do(ctx, "list_zones", http.MethodGet, "/zones", nil)
	if err != nil {
		return nil, err
	}
	zones, dropped, err := decodeZoneList(body)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	for _, derr := range dropped {
		metrics.DroppedRecords.WithLabelValues("list_zones").Inc()
		c.log.Warn(ctx, "dropping malformed zone", logging.Err(derr))
	}
	return zones, nil
}

// CreateZone submits a new zone (POST /zones).
func (c *Client) CreateZone(ctx context.Context, in model.ZoneInput) (model.Zone, error) {
	body, err := c.do(ctx, "create_zone", http.MethodPost, "/zones", in)
	if err != nil {
		return model.Zone{}, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return model.Zone{}, nil
	}
	z, err := decodeZone(body)
	if err != nil {
		return model.Zone{}, fmt.Errorf("create zone: %w", err)
	}
	return z, nil
}

// UpdateZone overwrites the fields set in patch (PUT /zones/{key}). key is the
// numeric id or the readable id.
func (c *Client) UpdateZone(ctx context.Context, key string, patch model.ZonePatch) (model.Zone, error) {
	if strings.TrimSpace(key) == "" {
		return model.Zone{}, apperr.Invalid("id", "A zone id is required")
	}
	body, err := c.do(ctx, "update_zone", http.MethodPut, "/zones/"+url.PathEscape(key), patch)
	if err != nil {
		return model.Zone{}, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return model.Zone{}, nil
	}
	z, err := decodeZone(body)
	if err != nil {
		return model.Zone{}, fmt.Errorf("update zone: %w", err)
	}
	return z, nil
}

// DeleteZone removes a zone (DELETE /zones/{id}).
func (c *Client) DeleteZone(ctx context.Context, id int64) error {
	_, err := c.do(ctx, "delete_zone", http.MethodDelete, "/zones/"+strconv.FormatInt(id, 10), nil)
	return err
}

// Position fetches the latest location of a tracked entity.
func (c *Client) Position(ctx context.Context, entityID string) (model.TrackedPosition, error) {
	if strings.TrimSpace(entityID) == "" {
		return model.TrackedPosition{}, apperr.Invalid("entityId", "A tracked entity is required")
	}
	body, err := c.do(ctx, "position", http.MethodGet, c.positionPath+url.PathEscape(entityID), nil)
	if err != nil {
		return model.TrackedPosition{}, err
	}
	p, err := decodePosition(entityID, body, c.now().UTC())
	if err != nil {
		return model.TrackedPosition{}, fmt.Errorf("position %s: %w", entityID, err)
	}
	return p, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in any) (body []byte, err error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			metrics.APIRequests.WithLabelValues(op, "no_token").Inc()
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, span := c.tracer.Start(ctx, "backend."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}
	// path arrives escaped; keep Path and RawPath consistent so ids are not double-escaped
	target := *c.base
	target.RawPath = c.base.EscapedPath() + path
	if target.Path, err = url.PathUnescape(target.RawPath); err != nil {
		return nil, fmt.Errorf("%s: bad path: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	reqID := logging.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", target.Path),
		attribute.String("request.id", reqID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.APIDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(op, "error").Inc()
		c.log.Warn(ctx, "backend request failed", logging.String("op", op), logging.String("request_id", reqID), logging.Err(err))
		return nil, &apperr.NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.APIRequests.WithLabelValues(op, statusClass(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &apperr.NetworkError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w (status %d)", op, apperr.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 400:
		se := &apperr.ServerError{Op: op, Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		var p Problem
		if json.Unmarshal(body, &p) == nil {
			if p.Title != "" {
				se.Title = p.Title
			}
			se.Detail = p.Detail
			if se.Detail == "" {
				se.Detail = p.Message
			}
		}
		c.log.Warn(ctx, "backend returned error", logging.String("op", op), logging.Int("status", resp.StatusCode), logging.String("detail", se.Detail))
		return nil, se
	}
	c.log.Debug(ctx, "backend request", logging.String("op", op), logging.Int("status", resp.StatusCode), logging.Any("duration", time.Since(start)))
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	return body, nil
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
