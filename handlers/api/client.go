// handlers/api/client.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"flipmail/config"
	"flipmail/models"
	"flipmail/utils"

	"github.com/valyala/fasthttp"
)

// FetchErrorKind classifies gateway failures
type FetchErrorKind string

const (
	KindTransport FetchErrorKind = "transport"
	KindStatus    FetchErrorKind = "status"
	KindDecode    FetchErrorKind = "decode"
)

// FetchError is returned for any failed call to the remote email API
type FetchError struct {
	Op   string
	Kind FetchErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client is the remote email gateway. It never retries; bodies that were
// fetched successfully are kept in memory for the configured ttl.
type Client struct {
	listURL string
	bodyURL string
	timeout time.Duration
	http    *fasthttp.Client
	bodies  *utils.MemoryCache[string]
}

// NewClient creates a gateway client for the configured endpoints
func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		listURL: cfg.ListURL,
		bodyURL: cfg.BodyURL,
		timeout: cfg.Timeout,
		http: &fasthttp.Client{
			Name:                "flipmail",
			MaxIdleConnDuration: 30 * time.Second,
		},
		bodies: utils.NewMemoryCache[string](cfg.BodyCacheTTL),
	}
}

// Close releases idle connections and stops the body cache
func (c *Client) Close() {
	c.http.CloseIdleConnections()
	c.bodies.Close()
}

type listResponse struct {
	List *[]models.Email `json:"list"`
}

type bodyResponse struct {
	Body *string `json:"body"`
}

// ListEmails fetches one page of emails. Any page number is passed through.
func (c *Client) ListEmails(ctx context.Context, page int) ([]models.Email, error) {
	var resp listResponse
	if err := c.get(ctx, "list", c.listURL, "page", strconv.Itoa(page), &resp); err != nil {
		return nil, err
	}
	if resp.List == nil {
		return nil, &FetchError{Op: "list", Kind: KindDecode, URL: c.listURL, Err: errors.New(`response has no "list"`)}
	}
	return *resp.List, nil
}

// GetEmailBody fetches the HTML body of one email
func (c *Client) GetEmailBody(ctx context.Context, id string) (string, error) {
	if body, ok := c.bodies.Get(id); ok {
		utils.BodyCacheHits.Inc()
		return body, nil
	}

	var resp bodyResponse
	if err := c.get(ctx, "body", c.bodyURL, "id", id, &resp); err != nil {
		return "", err
	}
	if resp.Body == nil {
		return "", &FetchError{Op: "body", Kind: KindDecode, URL: c.bodyURL, Err: errors.New(`response has no "body"`)}
	}

	c.bodies.Set(id, *resp.Body, 0)
	return *resp.Body, nil
}

// get issues GET base?param=value and decodes the JSON response into out.
// ctx is checked before the call and its deadline bounds the call; a cancel
// without a deadline does not abort a request already in flight.
func (c *Client) get(ctx context.Context, op, base, param, value string, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			result = string(fetchErr.Kind)
		}
		utils.GatewayRequests.WithLabelValues(op, result).Inc()
		utils.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	fail := func(kind FetchErrorKind, cause error) error {
		return &FetchError{Op: op, Kind: kind, URL: base, Err: cause}
	}

	if err := ctx.Err(); err != nil {
		return fail(KindTransport, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(base)
	req.URI().QueryArgs().Set(param, value)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	if deadline, ok := c.deadline(ctx); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.Do(req, resp)
	}
	if err != nil {
		return fail(KindTransport, err)
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return fail(KindStatus, fmt.Errorf("unexpected status %d", code))
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fail(KindDecode, err)
	}

	utils.Log.Debug("Gateway %s %s=%s took %s", op, param, value, time.Since(start))
	return nil
}

// deadline picks the earlier of the context deadline and the configured timeout
func (c *Client) deadline(ctx context.Context) (time.Time, bool) {
	deadline, ok := ctx.Deadline()
	if c.timeout > 0 {
		timeout := time.Now().Add(c.timeout)
		if !ok || timeout.Before(deadline) {
			return timeout, true
		}
	}
	return deadline, ok
}
