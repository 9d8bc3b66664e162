// Package upstream calls the external weather and currency lookups.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
)

const DefaultBaseURL = "https://api.api-ninjas.com/v1"

// NinjasClient talks to api-ninjas. Every failure, including non-2xx answers
// and timeouts, is reported as entity.ErrUpstreamUnavailable. There are no retries.
type NinjasClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewNinjasClient(baseURL, apiKey string, timeout time.Duration) *NinjasClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NinjasClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Weather returns the current conditions at a coordinate.
func (c *NinjasClient) Weather(ctx context.Context, lat, lon float64) (map[string]any, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.get(ctx, "/weather", q)
}

// ConvertCurrency converts amount from have to want, e.g. USD to EUR.
func (c *NinjasClient) ConvertCurrency(ctx context.Context, have, want string, amount float64) (map[string]any, error) {
	q := url.Values{}
	q.Set("have", have)
	q.Set("want", want)
	q.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	return c.get(ctx, "/convertcurrency", q)
}

func (c *NinjasClient) get(ctx context.Context, path string, q url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("X-Api-Key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstreamUnavailable, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s", entity.ErrUpstreamUnavailable, path, res.Status)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", entity.ErrUpstreamUnavailable, path, err)
	}
	return out, nil
}
