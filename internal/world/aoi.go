package world

import (
	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/geom"
)

// Occupancy tracks which entity stands on which cell. At most one entity
// occupies a cell. It is registered with the ECS registry so destroyed
// entities leave the index with the rest of their components.
// Accessed only from the tick goroutine for writes; reads may be concurrent.
type Occupancy struct {
	cells map[geom.Cell]ecs.EntityID
	at    map[ecs.EntityID]geom.Cell
}

func NewOccupancy() *Occupancy {
	return &Occupancy{
		cells: make(map[geom.Cell]ecs.EntityID, 256),
		at:    make(map[ecs.EntityID]geom.Cell, 256),
	}
}

// Place puts id on c, leaving its previous cell. It reports false, changing
// nothing, if another entity already holds c.
func (o *Occupancy) Place(id ecs.EntityID, c geom.Cell) bool {
	if other, ok := o.cells[c]; ok && other != id {
		return false
	}
	if prev, ok := o.at[id]; ok {
		if prev == c {
			return true
		}
		delete(o.cells, prev)
	}
	o.cells[c] = id
	o.at[id] = c
	return true
}

// Remove takes id out of the index.
func (o *Occupancy) Remove(id ecs.EntityID) {
	if c, ok := o.at[id]; ok {
		delete(o.cells, c)
		delete(o.at, id)
	}
}

// At returns the occupant of c.
func (o *Occupancy) At(c geom.Cell) (ecs.EntityID, bool) {
	id, ok := o.cells[c]
	return id, ok
}

// Nearby returns the occupants within Chebyshev distance r of c, excluding
// c's own occupant, in a fixed scan order (row by row).
func (o *Occupancy) Nearby(c geom.Cell, r int32) []ecs.EntityID {
	var result []ecs.EntityID
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if id, ok := o.cells[geom.Cell{X: c.X + dx, Y: c.Y + dy}]; ok {
				result = append(result, id)
			}
		}
	}
	return result
}

func (o *Occupancy) Len() int { return len(o.cells) }
