// Package farmclient is a small Go client for the farmmap REST API.
package farmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to a farmmap server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:8086".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
}

// WithHTTPClient swaps the underlying HTTP client, for timeouts or testing.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Farm mirrors the API farm record.
type Farm struct {
	ID         string   `json:"id"`
	Slug       string   `json:"slug"`
	Name       string   `json:"name"`
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	Address    string   `json:"address"`
	County     string   `json:"county"`
	Postcode   string   `json:"postcode"`
	Offerings  []string `json:"offerings"`
	Directions string   `json:"directions"`
}

// FarmPage is one page of the farm listing.
type FarmPage struct {
	Total  int    `json:"total"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
	Data   []Farm `json:"data"`
}

// ClusterNode is one marker the map would draw: a cluster or a single farm.
type ClusterNode struct {
	ID      string   `json:"id"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	Count   int      `json:"count"`
	Display string   `json:"display"`
	Tier    int      `json:"tier"`
	Members []string `json:"members"`
}

// Clusters is the cluster query response.
type Clusters struct {
	Zoom  float64       `json:"zoom"`
	Nodes []ClusterNode `json:"nodes"`
}

// Nearest is the nearest-farm lookup response.
type Nearest struct {
	Farm     Farm    `json:"farm"`
	MetersTo float64 `json:"meters_to"`
}

// Health is the health check response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health checks the server.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.get(ctx, "/health", nil, &h)
	return h, err
}

// ListFarms fetches one page of farms. offering filters by tag; pass "" for all.
func (c *Client) ListFarms(ctx context.Context, offering string, offset, limit int) (FarmPage, error) {
	q := url.Values{}
	if offering != "" {
		q.Set("offering", offering)
	}
	q.Set("offset", fmt.Sprint(offset))
	q.Set("limit", fmt.Sprint(limit))

	var page FarmPage
	err := c.get(ctx, "/api/v1/farms", q, &page)
	return page, err
}

// GetFarm fetches a farm by ID.
func (c *Client) GetFarm(ctx context.Context, id string) (Farm, error) {
	var f Farm
	err := c.get(ctx, "/api/v1/farms/"+url.PathEscape(id), nil, &f)
	return f, err
}

// GetClusters fetches the clustered markers for a viewport.
func (c *Client) GetClusters(ctx context.Context, west, south, east, north, zoom float64) (Clusters, error) {
	q := url.Values{}
	q.Set("west", fmt.Sprint(west))
	q.Set("south", fmt.Sprint(south))
	q.Set("east", fmt.Sprint(east))
	q.Set("north", fmt.Sprint(north))
	q.Set("zoom", fmt.Sprint(zoom))

	var cl Clusters
	err := c.get(ctx, "/api/v1/clusters", q, &cl)
	return cl, err
}

// NearestFarm fetches the farm closest to a position.
func (c *Client) NearestFarm(ctx context.Context, lat, lng float64) (Nearest, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprint(lat))
	q.Set("lng", fmt.Sprint(lng))

	var n Nearest
	err := c.get(ctx, "/api/v1/farms/nearest", q, &n)
	return n, err
}
