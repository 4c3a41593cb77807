// Package catalog loads and indexes the CMMC Level 2 control catalog.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/scoutsec/cmmc-scout/pkg/models"
)

//go:embed controls.json
var embeddedControls []byte

// Catalog is an immutable, indexed view of the control set. All lookup
// methods return copies so callers cannot mutate shared state.
type Catalog struct {
	controls []models.Control
	byID     map[string]int
	byDomain map[string][]int
	domains  []string
}

// Load parses a JSON array of controls from r and builds the indexes.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var controls []models.Control
	if err := json.Unmarshal(data, &controls); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(controls) == 0 {
		return nil, fmt.Errorf("parse catalog: no controls defined")
	}

	c := &Catalog{
		controls: controls,
		byID:     make(map[string]int, len(controls)),
		byDomain: make(map[string][]int),
	}
	for i, ctl := range controls {
		if ctl.ControlID == "" {
			return nil, fmt.Errorf("parse catalog: control at index %d has no control_id", i)
		}
		if ctl.Domain == "" {
			return nil, fmt.Errorf("parse catalog: control %s has no domain", ctl.ControlID)
		}
		if _, dup := c.byID[ctl.ControlID]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate control_id %s", ctl.ControlID)
		}
		c.byID[ctl.ControlID] = i
		c.byDomain[ctl.Domain] = append(c.byDomain[ctl.Domain], i)
	}

	c.domains = make([]string, 0, len(c.byDomain))
	for d := range c.byDomain {
		c.domains = append(c.domains, d)
	}
	sort.Strings(c.domains)

	return c, nil
}

// LoadFile loads a catalog from a JSON file on disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the catalog built from the embedded control set.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(embeddedControls))
}

// Domains returns the sorted list of assessment domain names.
func (c *Catalog) Domains() []string {
	out := make([]string, len(c.domains))
	copy(out, c.domains)
	return out
}

// HasDomain reports whether name is a known domain.
func (c *Catalog) HasDomain(name string) bool {
	_, ok := c.byDomain[name]
	return ok
}

// ByDomain returns the controls for a domain in catalog order. The second
// return value is false when the domain does not exist.
func (c *Catalog) ByDomain(domain string) ([]models.Control, bool) {
	idxs, ok := c.byDomain[domain]
	if !ok {
		return nil, false
	}
	out := make([]models.Control, len(idxs))
	for i, idx := range idxs {
		out[i] = c.controls[idx]
	}
	return out, true
}

// ByID looks up a single control by its identifier.
func (c *Catalog) ByID(id string) (models.Control, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return models.Control{}, false
	}
	return c.controls[idx], true
}

// Len returns the total number of controls in the catalog.
func (c *Catalog) Len() int {
	return len(c.controls)
}

// CountByDomain returns the number of controls in each domain.
func (c *Catalog) CountByDomain() map[string]int {
	out := make(map[string]int, len(c.byDomain))
	for d, idxs := range c.byDomain {
		out[d] = len(idxs)
	}
	return out
}

// Search returns controls whose ID, title, or requirement text contains the
// query, case-insensitively. An empty query returns no results.
func (c *Catalog) Search(query string) []models.Control {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []models.Control
	for _, ctl := range c.controls {
		if strings.Contains(strings.ToLower(ctl.ControlID), q) ||
			strings.Contains(strings.ToLower(ctl.Title), q) ||
			strings.Contains(strings.ToLower(ctl.Requirement), q) {
			out = append(out, ctl)
		}
	}
	return out
}
