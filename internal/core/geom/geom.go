// Package geom holds the integer grid geometry shared by actions, effects and
// the world store. Rows grow downward: Y+1 is one cell south.
package geom

import (
	"fmt"
	"math"
)

// Cell is a grid coordinate.
type Cell struct {
	X int32
	Y int32
}

func (c Cell) Add(v Vec) Cell { return Cell{X: c.X + v.DX, Y: c.Y + v.DY} }
func (c Cell) Sub(o Cell) Vec { return Vec{DX: c.X - o.X, DY: c.Y - o.Y} }

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Chebyshev returns the king-move distance between two cells.
func Chebyshev(a, b Cell) int32 {
	return max(dist32(a.X, b.X), dist32(a.Y, b.Y))
}

// Vec is a displacement in cells.
type Vec struct {
	DX int32
	DY int32
}

func (v Vec) IsZero() bool { return v.DX == 0 && v.DY == 0 }

// Len is the Chebyshev length of the displacement, saturating at MaxInt32.
func (v Vec) Len() int32 { return max(abs32(v.DX), abs32(v.DY)) }

// Neg returns the reversed displacement.
func (v Vec) Neg() Vec { return Vec{DX: -v.DX, DY: -v.DY} }

// Step returns the unit king-move toward v.
func (v Vec) Step() Vec { return Vec{DX: sign32(v.DX), DY: sign32(v.DY)} }

// Facing is the animation set picked from a displacement.
type Facing uint8

const (
	FacingStationary Facing = iota
	FacingUp
	FacingDown
	FacingLeft
	FacingRight
)

func (f Facing) String() string {
	switch f {
	case FacingUp:
		return "up"
	case FacingDown:
		return "down"
	case FacingLeft:
		return "left"
	case FacingRight:
		return "right"
	default:
		return "stationary"
	}
}

// FacingOf picks the facing for a displacement. Horizontal wins ties.
func FacingOf(v Vec) Facing {
	switch {
	case v.IsZero():
		return FacingStationary
	case abs32(v.DX) >= abs32(v.DY):
		if v.DX > 0 {
			return FacingRight
		}
		return FacingLeft
	case v.DY < 0:
		return FacingUp
	default:
		return FacingDown
	}
}

// Neighbours8 lists the king-move offsets in a fixed order.
var Neighbours8 = [8]Vec{
	{DX: 0, DY: -1}, {DX: 1, DY: -1}, {DX: 1, DY: 0}, {DX: 1, DY: 1},
	{DX: 0, DY: 1}, {DX: -1, DY: 1}, {DX: -1, DY: 0}, {DX: -1, DY: -1},
}

// abs32 saturates: abs32(MinInt32) is MaxInt32.
func abs32(n int32) int32 {
	switch {
	case n == math.MinInt32:
		return math.MaxInt32
	case n < 0:
		return -n
	}
	return n
}

func dist32(a, b int32) int32 {
	d := int64(a) - int64(b)
	if d < 0 {
		d = -d
	}
	return int32(min(d, math.MaxInt32))
}

func sign32(n int32) int32 {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
