package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/probeworks/toolhost/internal/config"
	"github.com/probeworks/toolhost/internal/infrastructure"
)

// swapiResources lists every queryable resource type.
var swapiResources = []string{"people", "films", "starships", "vehicles", "species", "planets"}

// StarWarsResult wraps a raw API payload for one resource lookup.
type StarWarsResult struct {
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// SearchAllResult holds per-category payloads for a global search.
// Categories whose lookup failed are omitted.
type SearchAllResult struct {
	Results   map[string]json.RawMessage `json:"results"`
	Query     string                     `json:"query"`
	Timestamp string                     `json:"timestamp"`
}

// StarWarsAdapter is the Star Wars lookup tool surface.
type StarWarsAdapter interface {
	GetCharacter(ctx context.Context, name string) (*StarWarsResult, error)
	GetFilm(ctx context.Context, title string) (*StarWarsResult, error)
	GetStarship(ctx context.Context, name string) (*StarWarsResult, error)
	GetVehicle(ctx context.Context, name string) (*StarWarsResult, error)
	GetSpecies(ctx context.Context, name string) (*StarWarsResult, error)
	GetPlanet(ctx context.Context, name string) (*StarWarsResult, error)
	SearchAll(ctx context.Context, query string) (*SearchAllResult, error)
}

// DefaultStarWarsAdapter queries the swapi.tech REST API.
type DefaultStarWarsAdapter struct {
	client  *infrastructure.HTTPClient
	baseURL string
}

// NewStarWarsAdapter creates a Star Wars adapter.
func NewStarWarsAdapter(cfg config.SWAPIConfig, client *infrastructure.HTTPClient) *DefaultStarWarsAdapter {
	return &DefaultStarWarsAdapter{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (a *DefaultStarWarsAdapter) GetCharacter(ctx context.Context, name string) (*StarWarsResult, error) {
	return a.fetch(ctx, "people", name)
}

func (a *DefaultStarWarsAdapter) GetFilm(ctx context.Context, title string) (*StarWarsResult, error) {
	return a.fetch(ctx, "films", title)
}

func (a *DefaultStarWarsAdapter) GetStarship(ctx context.Context, name string) (*StarWarsResult, error) {
	return a.fetch(ctx, "starships", name)
}

func (a *DefaultStarWarsAdapter) GetVehicle(ctx context.Context, name string) (*StarWarsResult, error) {
	return a.fetch(ctx, "vehicles", name)
}

func (a *DefaultStarWarsAdapter) GetSpecies(ctx context.Context, name string) (*StarWarsResult, error) {
	return a.fetch(ctx, "species", name)
}

func (a *DefaultStarWarsAdapter) GetPlanet(ctx context.Context, name string) (*StarWarsResult, error) {
	return a.fetch(ctx, "planets", name)
}

// SearchAll fans the query out across every resource type. Categories
// that error are skipped rather than failing the whole search.
func (a *DefaultStarWarsAdapter) SearchAll(ctx context.Context, query string) (*SearchAllResult, error) {
	results := make(map[string]json.RawMessage)
	for _, resource := range swapiResources {
		result, err := a.fetch(ctx, resource, query)
		if err != nil {
			continue
		}
		results[resource] = result.Data
	}
	return &SearchAllResult{
		Results:   results,
		Query:     query,
		Timestamp: time.Now().Format(time.RFC3339),
	}, nil
}

// fetch queries one resource type by search term and maps HTTP failures
// to friendly messages.
func (a *DefaultStarWarsAdapter) fetch(ctx context.Context, resource, query string) (*StarWarsResult, error) {
	endpoint := fmt.Sprintf("%s/%s?search=%s", a.baseURL, resource, url.QueryEscape(query))

	var data json.RawMessage
	if err := a.client.GetJSON(ctx, endpoint, &data); err != nil {
		var statusErr *infrastructure.HTTPStatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("%s: failed to fetch %s data", friendlyStatus(statusErr.StatusCode), resource)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("request timeout: the request for %s data timed out", resource)
		}
		return nil, fmt.Errorf("network error: failed to fetch %s data: %w", resource, err)
	}

	return &StarWarsResult{
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}, nil
}

func friendlyStatus(code int) string {
	switch code {
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	default:
		return "API request failed"
	}
}
