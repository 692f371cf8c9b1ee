package world

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/geom"
)

// Digest hashes every live entity's authoritative components in id order.
// Two worlds that went through the same ticks have the same digest.
func (s *State) Digest() uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	put(uint64(s.ecs.Pool().Len()))
	ecs.Each2(s.positions, s.facings, func(id ecs.EntityID, p *geom.Cell, f *geom.Facing) {
		put(uint64(id))
		put(uint64(uint32(p.X))<<32 | uint64(uint32(p.Y)))
		put(uint64(*f))
		if v, ok := s.velocities.Value(id); ok {
			put(uint64(uint32(v.DX))<<32 | uint64(uint32(v.DY)))
		}
		if h, ok := s.healths.Value(id); ok {
			put(uint64(uint32(h.Current))<<32 | uint64(uint32(h.Max)))
		}
		_, _ = d.WriteString(s.names.byID[id])
	})
	return d.Sum64()
}

// Snapshot is a plain copy of one entity, for reports and tests.
type Snapshot struct {
	ID       ecs.EntityID
	Name     string
	Role     Role
	At       [2]int32
	Facing   string
	Health   int32
	MaxHP    int32
	Velocity [2]int32
}

// Snapshots copies every positioned entity in id order.
func (s *State) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, s.positions.Len())
	ecs.Each3(s.positions, s.facings, s.roles, func(id ecs.EntityID, p *geom.Cell, f *geom.Facing, r *Role) {
		snap := Snapshot{
			ID:     id,
			Name:   s.names.byID[id],
			Role:   *r,
			At:     [2]int32{p.X, p.Y},
			Facing: f.String(),
		}
		if h, ok := s.healths.Value(id); ok {
			snap.Health, snap.MaxHP = h.Current, h.Max
		}
		if v, ok := s.velocities.Value(id); ok {
			snap.Velocity = [2]int32{v.DX, v.DY}
		}
		out = append(out, snap)
	})
	return out
}
