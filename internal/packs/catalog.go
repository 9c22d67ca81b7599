// Package packs holds the static game-pack catalog: thematic collections of
// locations with per-locale titles, descriptions and role lists. The catalog
// is read-only to the rest of the server.
package packs

import (
	"embed"
	"fmt"
	"math/rand/v2"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var packFiles embed.FS

// Locale selects a translation set. Role lists have the same length and
// ordering in every locale, so a role index resolved in one locale stays
// valid in another.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleSV Locale = "sv"
)

// DefaultLocale is used when a client supplies no locale.
const DefaultLocale = LocaleEN

type Translation struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Roles       []string `json:"roles" yaml:"roles"`
}

type Location struct {
	ID           string                 `json:"id" yaml:"id"`
	ImgURL       string                 `json:"img_url" yaml:"img_url"`
	Translations map[Locale]Translation `json:"translations" yaml:"translations"`
}

// Roles returns the location's role list for a locale, falling back to the
// default locale for unknown ones.
func (l *Location) Roles(locale Locale) []string {
	if t, ok := l.Translations[locale]; ok {
		return t.Roles
	}
	return l.Translations[DefaultLocale].Roles
}

type Pack struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Category  string     `json:"category" yaml:"category"`
	Locations []Location `json:"locations" yaml:"locations"`
}

// Location finds a location in the pack by id.
func (p *Pack) Location(id string) (*Location, bool) {
	for i := range p.Locations {
		if p.Locations[i].ID == id {
			return &p.Locations[i], true
		}
	}
	return nil, false
}

// PickLocation picks a uniformly random location from the pack.
func (p *Pack) PickLocation() *Location {
	return &p.Locations[rand.IntN(len(p.Locations))]
}

// Catalog is the loaded set of game packs, keyed by pack id.
type Catalog struct {
	packs map[string]*Pack
	order []string
}

// Load parses and validates every embedded pack file.
func Load() (*Catalog, error) {
	entries, err := packFiles.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("failed to read pack data: %w", err)
	}

	c := &Catalog{packs: make(map[string]*Pack)}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := packFiles.ReadFile("data/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read pack %s: %w", name, err)
		}
		var pack Pack
		if err := yaml.Unmarshal(raw, &pack); err != nil {
			return nil, fmt.Errorf("failed to parse pack %s: %w", name, err)
		}
		if err := validatePack(&pack); err != nil {
			return nil, fmt.Errorf("invalid pack %s: %w", name, err)
		}
		if _, dup := c.packs[pack.ID]; dup {
			return nil, fmt.Errorf("duplicate pack id %s in %s", pack.ID, name)
		}
		c.packs[pack.ID] = &pack
		c.order = append(c.order, pack.ID)
	}
	return c, nil
}

func validatePack(p *Pack) error {
	if p.ID == "" {
		return fmt.Errorf("pack id is required")
	}
	if len(p.Locations) == 0 {
		return fmt.Errorf("pack %s has no locations", p.ID)
	}
	for _, loc := range p.Locations {
		if loc.ID == "" {
			return fmt.Errorf("pack %s has a location without id", p.ID)
		}
		en, ok := loc.Translations[DefaultLocale]
		if !ok {
			return fmt.Errorf("location %s is missing the %s translation", loc.ID, DefaultLocale)
		}
		if len(en.Roles) == 0 {
			return fmt.Errorf("location %s has no roles", loc.ID)
		}
		// Role indices must resolve identically in every locale.
		for locale, t := range loc.Translations {
			if len(t.Roles) != len(en.Roles) {
				return fmt.Errorf("location %s: %s role list length %d does not match %s length %d",
					loc.ID, locale, len(t.Roles), DefaultLocale, len(en.Roles))
			}
		}
	}
	return nil
}

// Get returns the pack with the given id.
func (c *Catalog) Get(id string) (*Pack, bool) {
	p, ok := c.packs[id]
	return p, ok
}

// All returns every pack in a stable order.
func (c *Catalog) All() []*Pack {
	out := make([]*Pack, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.packs[id])
	}
	return out
}
