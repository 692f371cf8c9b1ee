package data

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/geom"
	"github.com/sandbox/server/internal/world"
)

var ErrUnknownArchetype = errors.New("unknown archetype")

// HealthDef is the health block of an archetype.
type HealthDef struct {
	Max        int32    `yaml:"max"`
	Vulnerable []string `yaml:"vulnerable"` // damage kinds that hurt; empty = all
}

// ContactDef is the contact-damage block of an archetype.
type ContactDef struct {
	Amount     int32  `yaml:"amount"`
	Kind       string `yaml:"kind"`
	SelfAmount int32  `yaml:"self_amount"`
	SelfKind   string `yaml:"self_kind"`
}

// Archetype is a reusable component template for spawns.
type Archetype struct {
	Role    string      `yaml:"role"` // player, chaser, projectile, prop
	Mobile  bool        `yaml:"mobile"`
	Health  *HealthDef  `yaml:"health,omitempty"`
	Contact *ContactDef `yaml:"contact,omitempty"`
}

// EntityDef places one archetype instance.
type EntityDef struct {
	Name      string  `yaml:"name"`
	Archetype string  `yaml:"archetype"`
	X         int32   `yaml:"x"`
	Y         int32   `yaml:"y"`
	Velocity  []int32 `yaml:"velocity,omitempty"` // [dx, dy]
}

// Level is a parsed level file.
//
// Tiles are rows of characters: '#' is a wall, anything else is floor. Rows
// shorter than the widest row are padded with floor.
type Level struct {
	Name       string               `yaml:"name"`
	Tiles      []string             `yaml:"tiles"`
	Archetypes map[string]Archetype `yaml:"archetypes"`
	Entities   []EntityDef          `yaml:"entities"`
}

// LoadLevel reads and parses a level YAML file.
func LoadLevel(path string) (*Level, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", path, err)
	}
	return ParseLevel(raw)
}

// ParseLevel parses level YAML.
func ParseLevel(raw []byte) (*Level, error) {
	var lvl Level
	if err := yaml.Unmarshal(raw, &lvl); err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}
	if len(lvl.Tiles) == 0 {
		return nil, fmt.Errorf("level %q: no tiles", lvl.Name)
	}
	return &lvl, nil
}

// Grid builds the wall grid.
func (l *Level) Grid() (*world.Grid, error) {
	width := 0
	for _, row := range l.Tiles {
		width = max(width, len(row))
	}
	g, err := world.NewGrid(int32(width), int32(len(l.Tiles)))
	if err != nil {
		return nil, fmt.Errorf("level %q: %w", l.Name, err)
	}
	for y, row := range l.Tiles {
		for x := 0; x < len(row); x++ {
			if row[x] == '#' {
				g.SetWall(geom.Cell{X: int32(x), Y: int32(y)})
			}
		}
	}
	return g, nil
}

// Spawns resolves every entity against its archetype.
func (l *Level) Spawns() ([]world.Spawn, error) {
	out := make([]world.Spawn, 0, len(l.Entities))
	for i, e := range l.Entities {
		arch, ok := l.Archetypes[e.Archetype]
		if !ok {
			return nil, fmt.Errorf("entity %d (%s): %w %q, have %v",
				i, e.Name, ErrUnknownArchetype, e.Archetype, l.ArchetypeNames())
		}
		sp, err := arch.spawn(e)
		if err != nil {
			return nil, fmt.Errorf("entity %d (%s): %w", i, e.Name, err)
		}
		out = append(out, sp)
	}
	return out, nil
}

// Build creates a populated world from the level.
func (l *Level) Build() (*world.State, error) {
	g, err := l.Grid()
	if err != nil {
		return nil, err
	}
	spawns, err := l.Spawns()
	if err != nil {
		return nil, err
	}
	s := world.NewState(g)
	for _, sp := range spawns {
		if _, err := s.Spawn(sp); err != nil {
			return nil, fmt.Errorf("level %q: %w", l.Name, err)
		}
	}
	return s, nil
}

// ArchetypeNames returns the archetype names in sorted order.
func (l *Level) ArchetypeNames() []string {
	names := make([]string, 0, len(l.Archetypes))
	for n := range l.Archetypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (a Archetype) spawn(e EntityDef) (world.Spawn, error) {
	role, ok := world.ParseRole(a.Role)
	if !ok {
		return world.Spawn{}, fmt.Errorf("unknown role %q", a.Role)
	}
	sp := world.Spawn{
		Name:   e.Name,
		Role:   role,
		At:     geom.Cell{X: e.X, Y: e.Y},
		Mobile: a.Mobile,
	}
	if a.Health != nil {
		if a.Health.Max <= 0 {
			return world.Spawn{}, fmt.Errorf("health max %d: must be positive", a.Health.Max)
		}
		mask, err := parseMask(a.Health.Vulnerable)
		if err != nil {
			return world.Spawn{}, err
		}
		sp.Health = &world.Health{Current: a.Health.Max, Max: a.Health.Max, Vulnerable: mask}
	}
	if a.Contact != nil {
		c := world.Contact{Amount: a.Contact.Amount, SelfAmount: a.Contact.SelfAmount}
		var ok bool
		if c.Kind, ok = action.ParseDamageKind(a.Contact.Kind); !ok && c.Amount > 0 {
			return world.Spawn{}, fmt.Errorf("unknown damage kind %q", a.Contact.Kind)
		}
		if c.SelfKind, ok = action.ParseDamageKind(a.Contact.SelfKind); !ok && c.SelfAmount > 0 {
			return world.Spawn{}, fmt.Errorf("unknown damage kind %q", a.Contact.SelfKind)
		}
		sp.Contact = &c
	}
	if len(e.Velocity) > 0 {
		if len(e.Velocity) != 2 {
			return world.Spawn{}, fmt.Errorf("velocity wants [dx, dy], got %v", e.Velocity)
		}
		sp.Velocity = &geom.Vec{DX: e.Velocity[0], DY: e.Velocity[1]}
	}
	return sp, nil
}

func parseMask(kinds []string) (action.DamageMask, error) {
	if len(kinds) == 0 {
		return action.DamageMelee.Mask() | action.DamageProjectile.Mask() | action.DamageImpact.Mask(), nil
	}
	var m action.DamageMask
	for _, k := range kinds {
		d, ok := action.ParseDamageKind(k)
		if !ok {
			return 0, fmt.Errorf("unknown damage kind %q", k)
		}
		m |= d.Mask()
	}
	return m, nil
}
