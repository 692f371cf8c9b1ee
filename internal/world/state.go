package world

import (
	"errors"
	"fmt"

	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/geom"
)

var (
	ErrCellBlocked   = errors.New("cell blocked")
	ErrDuplicateName = errors.New("duplicate entity name")
)

// Reader is the read-only view of the world handed to producers and
// resolvers. Every accessor returns copies; slices returned are shared and
// must not be modified.
type Reader interface {
	Alive(id ecs.EntityID) bool
	Name(id ecs.EntityID) string
	Lookup(name string) (ecs.EntityID, bool)
	Role(id ecs.EntityID) Role
	Position(id ecs.EntityID) (geom.Cell, bool)
	Facing(id ecs.EntityID) (geom.Facing, bool)
	Velocity(id ecs.EntityID) (geom.Vec, bool)
	Health(id ecs.EntityID) (Health, bool)
	Contact(id ecs.EntityID) (Contact, bool)
	Mobile(id ecs.EntityID) bool
	OccupantAt(c geom.Cell) (ecs.EntityID, bool)
	Neighbours(id ecs.EntityID) []ecs.EntityID
	Walkable(c geom.Cell) bool
	InBounds(c geom.Cell) bool
	// Entities lists every positioned entity in ascending id order.
	Entities() []ecs.EntityID
	// WithRole lists entities of role in ascending id order.
	WithRole(role Role) []ecs.EntityID
	// WithVelocity lists moving projectiles in ascending id order.
	WithVelocity() []ecs.EntityID
	// WithContact lists contact-damage dealers in ascending id order.
	WithContact() []ecs.EntityID
}

// Writer is the mutable view handed to appliers and the cleanup stage.
type Writer interface {
	Reader
	SetPosition(id ecs.EntityID, c geom.Cell) bool
	SetFacing(id ecs.EntityID, f geom.Facing)
	SetVelocity(id ecs.EntityID, v geom.Vec)
	SetHealth(id ecs.EntityID, current int32)
	MarkForDestruction(id ecs.EntityID)
	PendingDestruction(id ecs.EntityID) bool
	FlushDestroyed() []ecs.EntityID
}

// State owns the ECS world, the level grid and every component store.
// Accessed only from the tick goroutine for writes.
type State struct {
	ecs  *ecs.World
	grid *Grid
	occ  *Occupancy

	positions  *ecs.Store[geom.Cell]
	facings    *ecs.Store[geom.Facing]
	velocities *ecs.Store[geom.Vec]
	healths    *ecs.Store[Health]
	contacts   *ecs.Store[Contact]
	roles      *ecs.Store[Role]
	mobile     *ecs.Store[struct{}]
	names      *nameIndex
}

var (
	_ Reader = (*State)(nil)
	_ Writer = (*State)(nil)
)

// NewState creates an empty world over grid.
func NewState(grid *Grid) *State {
	w := ecs.NewWorld()
	reg := w.Registry()
	s := &State{
		ecs:        w,
		grid:       grid,
		occ:        NewOccupancy(),
		positions:  ecs.NewStoreIn[geom.Cell](reg),
		facings:    ecs.NewStoreIn[geom.Facing](reg),
		velocities: ecs.NewStoreIn[geom.Vec](reg),
		healths:    ecs.NewStoreIn[Health](reg),
		contacts:   ecs.NewStoreIn[Contact](reg),
		roles:      ecs.NewStoreIn[Role](reg),
		mobile:     ecs.NewStoreIn[struct{}](reg),
		names:      newNameIndex(),
	}
	reg.Register(s.occ)
	reg.Register(s.names)
	return s
}

// Spawn describes an entity to place at load time.
type Spawn struct {
	Name     string
	Role     Role
	At       geom.Cell
	Mobile   bool
	Health   *Health
	Contact  *Contact
	Velocity *geom.Vec
}

// Spawn creates an entity. It fails if the cell is a wall, already occupied,
// or the name is taken.
func (s *State) Spawn(sp Spawn) (ecs.EntityID, error) {
	if !s.grid.Walkable(sp.At) {
		return 0, fmt.Errorf("spawn %q at %s: %w", sp.Name, sp.At, ErrCellBlocked)
	}
	if _, taken := s.occ.At(sp.At); taken {
		return 0, fmt.Errorf("spawn %q at %s: %w", sp.Name, sp.At, ErrCellBlocked)
	}
	if sp.Name != "" {
		if _, taken := s.names.byName[sp.Name]; taken {
			return 0, fmt.Errorf("spawn %q: %w", sp.Name, ErrDuplicateName)
		}
	}

	id := s.ecs.CreateEntity()
	at := sp.At
	s.positions.Set(id, &at)
	s.occ.Place(id, at)
	facing := geom.FacingStationary
	s.facings.Set(id, &facing)
	role := sp.Role
	s.roles.Set(id, &role)
	if sp.Mobile {
		s.mobile.Set(id, &struct{}{})
	}
	if sp.Health != nil {
		h := *sp.Health
		s.healths.Set(id, &h)
	}
	if sp.Contact != nil {
		c := *sp.Contact
		s.contacts.Set(id, &c)
	}
	if sp.Velocity != nil {
		v := *sp.Velocity
		s.velocities.Set(id, &v)
	}
	if sp.Name != "" {
		s.names.set(id, sp.Name)
	}
	return id, nil
}

func (s *State) Grid() *Grid { return s.grid }

// Count reports the number of live entities.
func (s *State) Count() int { return s.ecs.Pool().Len() }

func (s *State) Alive(id ecs.EntityID) bool { return s.ecs.Alive(id) }

func (s *State) Name(id ecs.EntityID) string { return s.names.byID[id] }

func (s *State) Lookup(name string) (ecs.EntityID, bool) {
	id, ok := s.names.byName[name]
	return id, ok
}

func (s *State) Role(id ecs.EntityID) Role {
	r, _ := s.roles.Value(id)
	return r
}

func (s *State) Position(id ecs.EntityID) (geom.Cell, bool) { return s.positions.Value(id) }
func (s *State) Facing(id ecs.EntityID) (geom.Facing, bool) { return s.facings.Value(id) }
func (s *State) Velocity(id ecs.EntityID) (geom.Vec, bool)  { return s.velocities.Value(id) }
func (s *State) Health(id ecs.EntityID) (Health, bool)      { return s.healths.Value(id) }
func (s *State) Contact(id ecs.EntityID) (Contact, bool)    { return s.contacts.Value(id) }
func (s *State) Mobile(id ecs.EntityID) bool                { return s.mobile.Has(id) }

func (s *State) OccupantAt(c geom.Cell) (ecs.EntityID, bool) { return s.occ.At(c) }

// Neighbours lists the entities on the eight cells around id.
func (s *State) Neighbours(id ecs.EntityID) []ecs.EntityID {
	at, ok := s.positions.Value(id)
	if !ok {
		return nil
	}
	return s.occ.Nearby(at, 1)
}

func (s *State) Walkable(c geom.Cell) bool { return s.grid.Walkable(c) }
func (s *State) InBounds(c geom.Cell) bool { return s.grid.InBounds(c) }

func (s *State) Entities() []ecs.EntityID     { return s.positions.IDs() }
func (s *State) WithVelocity() []ecs.EntityID { return s.velocities.IDs() }
func (s *State) WithContact() []ecs.EntityID  { return s.contacts.IDs() }

func (s *State) WithRole(role Role) []ecs.EntityID {
	var out []ecs.EntityID
	s.roles.Each(func(id ecs.EntityID, r *Role) {
		if *r == role {
			out = append(out, id)
		}
	})
	return out
}

// SetPosition moves id to c. It reports false, changing nothing, if another
// entity holds c or id has no position.
func (s *State) SetPosition(id ecs.EntityID, c geom.Cell) bool {
	p, ok := s.positions.Get(id)
	if !ok {
		return false
	}
	if !s.occ.Place(id, c) {
		return false
	}
	*p = c
	return true
}

func (s *State) SetFacing(id ecs.EntityID, f geom.Facing) {
	if p, ok := s.facings.Get(id); ok {
		*p = f
	}
}

func (s *State) SetVelocity(id ecs.EntityID, v geom.Vec) {
	if p, ok := s.velocities.Get(id); ok {
		*p = v
	}
}

// SetHealth sets the current health, clamped to [0, Max].
func (s *State) SetHealth(id ecs.EntityID, current int32) {
	if h, ok := s.healths.Get(id); ok {
		h.Current = min(max(current, 0), h.Max)
	}
}

func (s *State) MarkForDestruction(id ecs.EntityID) { s.ecs.MarkForDestruction(id) }

// PendingDestruction reports whether id dies at the end of this tick.
func (s *State) PendingDestruction(id ecs.EntityID) bool { return s.ecs.PendingDestruction(id) }

// FlushDestroyed removes every entity queued this tick.
func (s *State) FlushDestroyed() []ecs.EntityID { return s.ecs.FlushDestroyQueue() }

// nameIndex maps spawn names both ways and drops entries on destroy.
type nameIndex struct {
	byName map[string]ecs.EntityID
	byID   map[ecs.EntityID]string
}

func newNameIndex() *nameIndex {
	return &nameIndex{
		byName: make(map[string]ecs.EntityID),
		byID:   make(map[ecs.EntityID]string),
	}
}

func (n *nameIndex) set(id ecs.EntityID, name string) {
	n.byName[name] = id
	n.byID[id] = name
}

func (n *nameIndex) Remove(id ecs.EntityID) {
	if name, ok := n.byID[id]; ok {
		delete(n.byName, name)
		delete(n.byID, id)
	}
}
