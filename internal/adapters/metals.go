package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/probeworks/toolhost/internal/config"
	"github.com/probeworks/toolhost/internal/infrastructure"
)

// metalSymbols maps API symbols to metal names.
var metalSymbols = map[string]string{
	"XAU": "Gold",
	"XAG": "Silver",
	"XPD": "Palladium",
	"HG":  "Copper",
}

// metalOrder fixes the symbol order for get_all_metal_prices.
var metalOrder = []string{"XAU", "XAG", "XPD", "HG"}

// MetalPrice is one quoted metal price.
type MetalPrice struct {
	Metal       string  `json:"metal"`
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	LastUpdated string  `json:"last_updated"`
	Timestamp   string  `json:"timestamp"`
}

// AllMetalPrices holds every metal's quote. Metals whose fetch failed
// carry the error message instead of a price.
type AllMetalPrices struct {
	Prices    []MetalPriceEntry `json:"prices"`
	Currency  string            `json:"currency"`
	Timestamp string            `json:"timestamp"`
}

// MetalPriceEntry is one row of AllMetalPrices.
type MetalPriceEntry struct {
	*MetalPrice
	Error string `json:"error,omitempty"`
}

// MetalsAdapter is the precious-metals price tool surface.
type MetalsAdapter interface {
	GetPrice(ctx context.Context, symbol string) (*MetalPrice, error)
	GetAllPrices(ctx context.Context) (*AllMetalPrices, error)
}

// DefaultMetalsAdapter queries the gold-api.com price endpoint.
type DefaultMetalsAdapter struct {
	client  *infrastructure.HTTPClient
	baseURL string
}

// NewMetalsAdapter creates a metals adapter.
func NewMetalsAdapter(cfg config.MetalsConfig, client *infrastructure.HTTPClient) *DefaultMetalsAdapter {
	return &DefaultMetalsAdapter{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type metalPriceResponse struct {
	Price             *float64 `json:"price"`
	UpdatedAtReadable string   `json:"updatedAtReadable"`
}

// GetPrice fetches the current USD price for one metal symbol.
func (a *DefaultMetalsAdapter) GetPrice(ctx context.Context, symbol string) (*MetalPrice, error) {
	name, ok := metalSymbols[symbol]
	if !ok {
		return nil, fmt.Errorf("invalid metal symbol: %s", symbol)
	}

	endpoint := fmt.Sprintf("%s/price/%s", a.baseURL, symbol)

	var resp metalPriceResponse
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		var statusErr *infrastructure.HTTPStatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("%s: failed to fetch %s price", friendlyMetalStatus(statusErr.StatusCode), name)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("request timeout: the request for %s price timed out", name)
		}
		return nil, fmt.Errorf("network error: failed to fetch %s price: %w", name, err)
	}

	if resp.Price == nil {
		return nil, fmt.Errorf("missing price data: no price information available for %s", name)
	}

	lastUpdated := resp.UpdatedAtReadable
	if lastUpdated == "" {
		lastUpdated = "Unknown"
	}

	return &MetalPrice{
		Metal:       name,
		Symbol:      symbol,
		Price:       *resp.Price,
		Currency:    "USD",
		LastUpdated: lastUpdated,
		Timestamp:   time.Now().Format(time.RFC3339),
	}, nil
}

// GetAllPrices fetches every metal. Per-metal failures are recorded in
// the entry rather than failing the whole call.
func (a *DefaultMetalsAdapter) GetAllPrices(ctx context.Context) (*AllMetalPrices, error) {
	out := &AllMetalPrices{
		Currency:  "USD",
		Timestamp: time.Now().Format(time.RFC3339),
	}
	for _, symbol := range metalOrder {
		price, err := a.GetPrice(ctx, symbol)
		if err != nil {
			out.Prices = append(out.Prices, MetalPriceEntry{Error: err.Error()})
			continue
		}
		out.Prices = append(out.Prices, MetalPriceEntry{MetalPrice: price})
	}
	return out, nil
}

func friendlyMetalStatus(code int) string {
	switch code {
	case http.StatusNotFound:
		return "metal price data not found"
	case http.StatusUnauthorized:
		return "API authentication failed"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	default:
		return "API request failed"
	}
}
