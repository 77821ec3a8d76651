package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/astrogator/model"
)

const sample = `[
  {"name": "Sirius", "ra": 101.287, "dec": -16.716, "mag": -1.46},
  {"name": "Canopus", "ra": 95.988, "dec": -52.696, "mag": -0.74}
]`

func TestParseKeepsRecordsUnmodified(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stars := c.Stars()
	if len(stars) != 2 {
		t.Fatalf("len = %d, want 2", len(stars))
	}
	want := model.Star{Name: "Sirius", RADeg: 101.287, DecDeg: -16.716, Magnitude: -1.46}
	if stars[0] != want {
		t.Fatalf("stars[0] = %+v, want %+v", stars[0], want)
	}
	if stars[1].Name != "Canopus" {
		t.Fatalf("order not preserved: %+v", stars)
	}

	stars[0].Name = "mutated"
	if c.Stars()[0].Name != "Sirius" {
		t.Fatalf("Stars must return a copy")
	}
}

func TestParseRejectsNonArray(t *testing.T) {
	if _, err := Parse(strings.NewReader(`{"name":"x"}`)); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("expected ErrInvalidCatalog, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stars.json")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestNilCatalogIsEmpty(t *testing.T) {
	var c *Catalog
	if c.Len() != 0 || len(c.Stars()) != 0 || c.Stars() == nil {
		t.Fatalf("nil catalog should be empty and non-nil")
	}
}
