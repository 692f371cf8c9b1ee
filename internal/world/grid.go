package world

import (
	"fmt"

	"github.com/sandbox/server/internal/core/geom"
)

// Tile flags.
const (
	tileWall byte = 0x01
)

// Grid is the static tile layer of a level: bounds plus walls.
// It never changes after load, so it is shared freely between readers.
type Grid struct {
	width  int32
	height int32
	tiles  []byte // flat array [y * width + x]
}

// NewGrid creates an open grid of the given size.
func NewGrid(width, height int32) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid size %dx%d: must be positive", width, height)
	}
	return &Grid{
		width:  width,
		height: height,
		tiles:  make([]byte, int(width)*int(height)),
	}, nil
}

func (g *Grid) Width() int32  { return g.width }
func (g *Grid) Height() int32 { return g.height }

func (g *Grid) InBounds(c geom.Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

// SetWall marks c as a wall. Out-of-bounds cells are ignored.
func (g *Grid) SetWall(c geom.Cell) {
	if g.InBounds(c) {
		g.tiles[g.index(c)] |= tileWall
	}
}

// Wall reports whether c is a wall. Everything outside the grid is a wall.
func (g *Grid) Wall(c geom.Cell) bool {
	if !g.InBounds(c) {
		return true
	}
	return g.tiles[g.index(c)]&tileWall != 0
}

// Walkable reports whether an entity may stand on c, ignoring other entities.
func (g *Grid) Walkable(c geom.Cell) bool {
	return !g.Wall(c)
}

// WallCount reports the number of wall tiles.
func (g *Grid) WallCount() int {
	n := 0
	for _, t := range g.tiles {
		if t&tileWall != 0 {
			n++
		}
	}
	return n
}

func (g *Grid) index(c geom.Cell) int {
	return int(c.Y)*int(g.width) + int(c.X)
}
