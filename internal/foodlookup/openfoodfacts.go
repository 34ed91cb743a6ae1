// Package foodlookup searches OpenFoodFacts for ingredients missing from the
// local catalog.
package foodlookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://world.openfoodfacts.org"
	userAgent      = "biteright-api/1.0"
	// referenceGrams is the amount OpenFoodFacts "_100g" values are defined against.
	referenceGrams = 100
	// maxResponseBytes caps how much of a search response is read.
	maxResponseBytes = 4 << 20
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("food lookup temporarily unavailable")

// ErrNotFound is returned when a search matches no usable product.
var ErrNotFound = errors.New("no matching food found")

// Food is one product normalized to per-100 g nutrition.
type Food struct {
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	PortionSize float64 `json:"portion_size"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
	Barcode     string  `json:"barcode,omitempty"`
}

// Client talks to the OpenFoodFacts search API through a circuit breaker.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewClient returns a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	settings := gobreaker.Settings{
		Name:        "openfoodfacts",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A search that matched nothing is a healthy upstream.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		cb:         gobreaker.NewCircuitBreaker(settings),
	}
}

// Search returns up to limit products matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Food, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}
	if limit <= 0 {
		limit = 10
	}
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.search(ctx, query, limit)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	return result.([]Food), nil
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]Food, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1&page_size=%d",
		base, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create openfoodfacts search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute openfoodfacts search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read openfoodfacts search response: %w", err)
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("openfoodfacts search response exceeds %d bytes", maxResponseBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openfoodfacts search request failed with status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode openfoodfacts search response: %w", err)
	}

	foods := make([]Food, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		name := strings.TrimSpace(p.ProductName)
		if name == "" {
			continue
		}
		kcal, ok := p.Nutriments.number("energy-kcal_100g")
		if !ok {
			continue
		}
		protein, _ := p.Nutriments.number("proteins_100g")
		carbs, _ := p.Nutriments.number("carbohydrates_100g")
		fat, _ := p.Nutriments.number("fat_100g")
		foods = append(foods, Food{
			Name:        name,
			Brand:       firstBrand(p.Brands),
			PortionSize: referenceGrams,
			Calories:    kcal,
			Protein:     protein,
			Carbs:       carbs,
			Fat:         fat,
			Barcode:     p.Code,
		})
	}
	if len(foods) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNotFound, query)
	}
	return foods, nil
}

type searchResponse struct {
	Products []product `json:"products"`
}

type product struct {
	Code        string     `json:"code"`
	ProductName string     `json:"product_name"`
	Brands      string     `json:"brands"`
	Nutriments  nutriments `json:"nutriments"`
}

// nutriments values arrive as numbers or numeric strings depending on the product.
type nutriments map[string]json.RawMessage

func (n nutriments) number(key string) (float64, bool) {
	raw, ok := n[key]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	var parsed float64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &parsed); err != nil {
		return 0, false
	}
	return parsed, true
}

func firstBrand(brands string) string {
	first, _, _ := strings.Cut(brands, ",")
	return strings.TrimSpace(first)
}
