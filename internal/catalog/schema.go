package catalog

import (
	"fmt"
	"strings"
)

const (
	CatalogKind            = "catalog"
	SupportedSchemaVersion = 1

	defaultGridSize      = 3
	defaultMaxPrizePicks = 3
	defaultUnlockMessage = "Great job!"
)

// Catalog is the static mission and prize configuration. It is loaded once at
// startup and never mutated afterwards.
type Catalog struct {
	Kind          string    `yaml:"kind"`
	SchemaVersion int       `yaml:"schema_version"`
	Title         string    `yaml:"title"`
	ChildName     string    `yaml:"child_name"`
	ParentName    string    `yaml:"parent_name"`
	GridSize      int       `yaml:"grid_size"`
	TotalPieces   int       `yaml:"total_pieces"`
	MaxPrizePicks int       `yaml:"max_prize_picks"`
	EnablePrizes  *bool     `yaml:"enable_prizes"`
	Messages      []string  `yaml:"messages"`
	FinalMessage  string    `yaml:"final_message"`
	Missions      []Mission `yaml:"missions"`
	Prizes        []Prize   `yaml:"prizes"`

	Path string `yaml:"-"`
}

type Mission struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Capability  string `yaml:"capability"`

	// Playable is false when Capability names no registered mini-game.
	Playable bool `yaml:"-"`
}

type Prize struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
	Icon string `yaml:"icon"`
	Cost int    `yaml:"cost"`
}

func (c Catalog) Validate() error {
	if c.Kind != CatalogKind {
		return fmt.Errorf("kind must be %q", CatalogKind)
	}
	if c.SchemaVersion == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if c.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported catalog schema_version %d (max supported %d)", c.SchemaVersion, SupportedSchemaVersion)
	}
	if c.GridSize < 1 {
		return fmt.Errorf("grid_size must be >= 1")
	}
	if c.TotalPieces != c.GridSize*c.GridSize {
		return fmt.Errorf("total_pieces %d does not match grid_size %d", c.TotalPieces, c.GridSize)
	}
	if len(c.Missions) != c.TotalPieces {
		return fmt.Errorf("expected %d missions (one per piece), got %d", c.TotalPieces, len(c.Missions))
	}
	for i, m := range c.Missions {
		if m.ID != i+1 {
			return fmt.Errorf("missions[%d].id must be %d, got %d", i, i+1, m.ID)
		}
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("missions[%d].name is required", i)
		}
		if strings.TrimSpace(m.Capability) == "" {
			return fmt.Errorf("missions[%d].capability is required", i)
		}
	}
	if c.MaxPrizePicks < 1 {
		return fmt.Errorf("max_prize_picks must be >= 1")
	}
	seen := map[int]struct{}{}
	for _, p := range c.Prizes {
		if p.ID <= 0 {
			return fmt.Errorf("prizes[].id must be > 0")
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("duplicate prize id %d", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Cost < 0 {
			return fmt.Errorf("prize %d cost must be >= 0", p.ID)
		}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("prize %d name is required", p.ID)
		}
	}
	return nil
}

func applyDefaults(c *Catalog) {
	if c.Title == "" {
		c.Title = "Picture Mission"
	}
	if c.GridSize <= 0 {
		c.GridSize = defaultGridSize
	}
	if c.TotalPieces <= 0 {
		c.TotalPieces = c.GridSize * c.GridSize
	}
	if c.MaxPrizePicks <= 0 {
		c.MaxPrizePicks = defaultMaxPrizePicks
	}
	if c.EnablePrizes == nil {
		v := true
		c.EnablePrizes = &v
	}
	for i := range c.Missions {
		c.Missions[i].Capability = strings.TrimSpace(c.Missions[i].Capability)
		if c.Missions[i].Icon == "" {
			c.Missions[i].Icon = "*"
		}
	}
}

func (c Catalog) Mission(id int) (Mission, bool) {
	if id < 1 || id > len(c.Missions) {
		return Mission{}, false
	}
	return c.Missions[id-1], true
}

func (c Catalog) Prize(id int) (Prize, bool) {
	for _, p := range c.Prizes {
		if p.ID == id {
			return p, true
		}
	}
	return Prize{}, false
}

func (c Catalog) PrizesEnabled() bool {
	return c.EnablePrizes == nil || *c.EnablePrizes
}

// MessageFor returns the unlock message for a piece.
func (c Catalog) MessageFor(pieceID int) string {
	if pieceID < 1 || pieceID > len(c.Messages) || strings.TrimSpace(c.Messages[pieceID-1]) == "" {
		return defaultUnlockMessage
	}
	return c.Messages[pieceID-1]
}

// UnplayableMissions lists missions whose capability is not registered.
func (c Catalog) UnplayableMissions() []Mission {
	out := []Mission{}
	for _, m := range c.Missions {
		if !m.Playable {
			out = append(out, m)
		}
	}
	return out
}
