package adapters

import (
	"fmt"
	"strconv"

	"github.com/probeworks/toolhost/internal/infrastructure"
)

// StarCatalog holds the full contents of the star database.
type StarCatalog struct {
	Stars          []infrastructure.Star          `json:"stars"`
	Constellations []infrastructure.Constellation `json:"constellations"`
}

// StarsAdapter is the star-catalog tool surface.
type StarsAdapter interface {
	GetStar(name string) (*infrastructure.Star, error)
	GetConstellation(name string) (*infrastructure.Constellation, error)
	GetAllData() (*StarCatalog, error)
	SearchStars(criteria, value string) ([]infrastructure.Star, error)
}

// DefaultStarsAdapter serves catalog lookups from the sqlite store.
type DefaultStarsAdapter struct {
	db *infrastructure.Database
}

// NewStarsAdapter creates a stars adapter over an opened database.
func NewStarsAdapter(db *infrastructure.Database) *DefaultStarsAdapter {
	return &DefaultStarsAdapter{db: db}
}

// GetStar looks a star up by name, case-insensitively.
func (a *DefaultStarsAdapter) GetStar(name string) (*infrastructure.Star, error) {
	star, err := a.db.GetStar(name)
	if err != nil {
		return nil, err
	}
	if star == nil {
		return nil, fmt.Errorf("star not found: no star named %q in database", name)
	}
	return star, nil
}

// GetConstellation looks a constellation up by name, case-insensitively.
func (a *DefaultStarsAdapter) GetConstellation(name string) (*infrastructure.Constellation, error) {
	constellation, err := a.db.GetConstellation(name)
	if err != nil {
		return nil, err
	}
	if constellation == nil {
		return nil, fmt.Errorf("constellation not found: no constellation named %q in database", name)
	}
	return constellation, nil
}

// GetAllData returns the whole catalog.
func (a *DefaultStarsAdapter) GetAllData() (*StarCatalog, error) {
	stars, err := a.db.AllStars()
	if err != nil {
		return nil, err
	}
	constellations, err := a.db.AllConstellations()
	if err != nil {
		return nil, err
	}
	return &StarCatalog{Stars: stars, Constellations: constellations}, nil
}

// SearchStars filters stars by constellation or magnitude bound.
func (a *DefaultStarsAdapter) SearchStars(criteria, value string) ([]infrastructure.Star, error) {
	var stars []infrastructure.Star
	var err error

	switch criteria {
	case "constellation":
		stars, err = a.db.StarsByConstellation(value)
	case "magnitude_less_than", "magnitude_greater_than":
		var limit float64
		limit, err = strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid magnitude value %q: %w", value, err)
		}
		stars, err = a.db.StarsByMagnitude(limit, criteria == "magnitude_less_than")
	default:
		return nil, fmt.Errorf("invalid search criteria: %s", criteria)
	}

	if err != nil {
		return nil, err
	}
	if len(stars) == 0 {
		return nil, fmt.Errorf("no matches found: no stars matching criteria %q with value %q", criteria, value)
	}
	return stars, nil
}
