package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

type FSLoader struct {
	caps   Capabilities
	logger Logger
}

func NewLoader(caps Capabilities, logger Logger) *FSLoader {
	return &FSLoader{caps: caps, logger: logger}
}

// Load reads the catalog at path, or the built-in catalog when path is empty.
// Missions with an unknown capability stay in the catalog but are marked
// unplayable.
func (l *FSLoader) Load(ctx context.Context, path string) (Catalog, error) {
	_ = ctx
	var (
		raw []byte
		err error
	)
	path = strings.TrimSpace(path)
	if path == "" {
		raw = defaultCatalogYAML
	} else {
		raw, err = os.ReadFile(path)
		if err != nil {
			return Catalog{}, fmt.Errorf("read catalog: %w", err)
		}
	}
	cat, err := Parse(raw)
	if err != nil {
		if path == "" {
			return Catalog{}, fmt.Errorf("built-in catalog: %w", err)
		}
		return Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	cat.Path = path
	l.markPlayable(&cat)
	return cat, nil
}

// Parse decodes and validates a catalog document without checking
// capabilities.
func Parse(raw []byte) (Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return Catalog{}, err
	}
	applyDefaults(&cat)
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	for i := range cat.Missions {
		cat.Missions[i].Playable = true
	}
	return cat, nil
}

// Default returns the built-in catalog with every mission marked playable.
func Default() Catalog {
	cat, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return cat
}

func (l *FSLoader) markPlayable(cat *Catalog) {
	for i := range cat.Missions {
		m := &cat.Missions[i]
		m.Playable = l.caps == nil || l.caps.Has(m.Capability)
		if !m.Playable && l.logger != nil {
			l.logger.Warn("catalog.unknown_capability", map[string]any{
				"mission":    m.ID,
				"capability": m.Capability,
			})
		}
	}
}
