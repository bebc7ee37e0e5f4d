// Package locations loads the location lookup table mapping Chatmeter
// location ids to display names and public review-profile URLs. The
// table is loaded once at startup and passed explicitly into every
// component that needs it; there is no package-level cache.
package locations

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Location describes one rental branch as known to the review source.
type Location struct {
	Alias       string            `yaml:"alias"`
	ProfileURLs map[string]string `yaml:"profile_urls"`
}

// Table is the read-only locationID -> Location lookup.
type Table struct {
	locations map[string]Location
}

type tableFile struct {
	Locations map[string]Location `yaml:"locations"`
}

// Load reads the YAML table at path. A missing file is an error; an
// empty table is not.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "locations: read %s", path)
	}
	return Parse(raw)
}

// Parse decodes YAML table content.
func Parse(raw []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrap(err, "locations: unmarshal table")
	}
	if f.Locations == nil {
		f.Locations = map[string]Location{}
	}
	return &Table{locations: f.Locations}, nil
}

// Empty returns a usable table with no entries, for callers that run
// without a table file configured.
func Empty() *Table {
	return &Table{locations: map[string]Location{}}
}

// Lookup returns the location for id, if known.
func (t *Table) Lookup(id string) (Location, bool) {
	loc, ok := t.locations[id]
	return loc, ok
}

// Alias returns the display name for id, or "" when unknown.
func (t *Table) Alias(id string) string {
	if loc, ok := t.locations[id]; ok {
		return loc.Alias
	}
	return ""
}

// Len reports the number of configured locations.
func (t *Table) Len() int {
	return len(t.locations)
}
