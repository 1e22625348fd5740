package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"sentinel/internal/domain"
)

// Client resolves an IP address to a coarse location against an ip-api
// shaped endpoint. The upstream is rate limited (~45 req/min) and flaky by
// nature, so every lookup runs behind a hard timeout and callers must treat
// a failed lookup as "unknown location", never as a fatal error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

type lookupResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Locate resolves ip. Private and loopback addresses short-circuit without
// any outbound call. On any failure the returned location has Unknown set
// alongside the error, so callers can degrade without branching.
func (c *Client) Locate(ctx context.Context, ip string) (domain.Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return domain.Location{Unknown: true}, fmt.Errorf("invalid ip address %q", ip)
	}
	if parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified() {
		return domain.Location{Unknown: true}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/" + url.PathEscape(ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Location{Unknown: true}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Location{Unknown: true}, fmt.Errorf("geoip lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Location{Unknown: true}, fmt.Errorf("geoip lookup: unexpected status %d", resp.StatusCode)
	}
	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Location{Unknown: true}, fmt.Errorf("geoip lookup: decode response: %w", err)
	}
	if body.Status == "fail" {
		return domain.Location{Unknown: true}, fmt.Errorf("geoip lookup failed: %s", failMessage(body.Message))
	}
	return domain.Location{
		City:        body.City,
		Region:      body.RegionName,
		Country:     body.Country,
		CountryCode: body.CountryCode,
		Timezone:    body.Timezone,
		ISP:         body.ISP,
		Lat:         body.Lat,
		Lon:         body.Lon,
	}, nil
}

func failMessage(msg string) string {
	if msg == "" {
		return "no message"
	}
	return msg
}
