// Package integration is a client for the sodfilter-srv HTTP API.
package integration

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

	"github.com/google/uuid"

	"github.com/go-sod/sodfilter/internal/report"
)

type prefixRoundTripper struct {
	addr string
	rt   http.RoundTripper
}

func (p *prefixRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	u := r.URL
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	if u.Host == "" {
		u.Host = p.addr
	}

	return p.rt.RoundTrip(r)
}

// NewClient sends every request to addr, given as host:port.
func NewClient(addr string) *Client {
	return &Client{client: &http.Client{Transport: &prefixRoundTripper{addr: addr, rt: http.DefaultTransport}}}
}

type Client struct {
	client *http.Client
}

func (c *Client) Filter(ctx context.Context, r FilterRequest) (*FilterResponse, error) {
	b, err := json.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("unable marshal filter request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/filter", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp FilterResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reports lists stored reports, all of them when source is empty.
func (c *Client) Reports(ctx context.Context, source string) ([]report.Report, error) {
	target := "/reports"
	if source != "" {
		target += "?source=" + url.QueryEscape(source)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create new request: %w", err)
	}

	var reports []report.Report
	if err := c.do(req, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *Client) Report(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/reports?id="+id.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create new request: %w", err)
	}

	var rep report.Report
	if err := c.do(req, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("create new request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error with sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unable unmarshal response: %w", err)
	}
	return nil
}

func httpStatus(code int) string {
	return strconv.Itoa(code) + " " + http.StatusText(code)
}
