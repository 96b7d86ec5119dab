// Package catalog holds the mission candidates and status tips shipped with
// the server.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type MissionTemplate struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Difficulty string `yaml:"difficulty"`
	Points     int    `yaml:"points"`
	Phase      string `yaml:"phase"`
}

type Catalog struct {
	Missions []MissionTemplate   `yaml:"missions"`
	Tips     map[string][]string `yaml:"tips"`
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Missions) < 3 {
		return fmt.Errorf("catalog needs at least 3 missions, got %d", len(c.Missions))
	}
	seen := make(map[string]bool, len(c.Missions))
	for _, m := range c.Missions {
		if m.ID == "" || m.Title == "" {
			return fmt.Errorf("mission template missing id or title")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate mission template %q", m.ID)
		}
		if m.Points <= 0 {
			return fmt.Errorf("mission template %q has non-positive points", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

// TipsFor returns the tips for a weather state, or nil.
func (c *Catalog) TipsFor(weather string) []string {
	return c.Tips[weather]
}
