// Package catalog loads the static star catalog served to navigation clients.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/astrogator/model"
)

// ErrInvalidCatalog indicates a catalog document that is not a list of stars.
var ErrInvalidCatalog = errors.New("invalid star catalog")

// Catalog is an immutable list of stars in file order.
type Catalog struct {
	stars []model.Star
}

// New wraps stars. The slice is copied.
func New(stars []model.Star) *Catalog {
	return &Catalog{stars: append([]model.Star(nil), stars...)}
}

// Load reads the catalog from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open star catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a JSON array of {name, ra, dec, mag} records.
func Parse(r io.Reader) (*Catalog, error) {
	var stars []model.Star
	if err := json.NewDecoder(r).Decode(&stars); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return &Catalog{stars: stars}, nil
}

// Stars returns a copy of every record. A nil catalog is empty.
func (c *Catalog) Stars() []model.Star {
	if c == nil {
		return []model.Star{}
	}
	out := make([]model.Star, len(c.stars))
	copy(out, c.stars)
	return out
}

// Len returns the number of stars.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stars)
}
