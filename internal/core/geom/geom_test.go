package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFacingOf(t *testing.T) {
	tests := []struct {
		v    Vec
		want Facing
	}{
		{Vec{}, FacingStationary},
		{Vec{DX: 2, DY: 1}, FacingRight},
		{Vec{DX: -1, DY: 1}, FacingLeft},
		{Vec{DX: 0, DY: -3}, FacingUp},
		{Vec{DX: 1, DY: 2}, FacingDown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FacingOf(tt.v), "vec %+v", tt.v)
	}
}

func TestCellArithmetic(t *testing.T) {
	a := Cell{X: 2, Y: 3}
	b := a.Add(Vec{DX: -3, DY: 4})
	assert.Equal(t, Cell{X: -1, Y: 7}, b)
	assert.Equal(t, Vec{DX: -3, DY: 4}, b.Sub(a))
	assert.Equal(t, int32(4), Chebyshev(a, b))
	assert.Equal(t, Vec{DX: -1, DY: 1}, Vec{DX: -3, DY: 4}.Step())
}

func TestLengthsSaturate(t *testing.T) {
	tests := []struct {
		v    Vec
		want int32
	}{
		{Vec{DX: math.MinInt32}, math.MaxInt32},
		{Vec{DY: math.MinInt32, DX: 3}, math.MaxInt32},
		{Vec{DX: math.MaxInt32}, math.MaxInt32},
		{Vec{DX: -2, DY: 1}, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.Len(), "vec %+v", tt.v)
	}
	assert.Equal(t, int32(math.MaxInt32), Chebyshev(Cell{X: math.MaxInt32}, Cell{X: math.MinInt32}))
	assert.Equal(t, FacingLeft, FacingOf(Vec{DX: math.MinInt32, DY: math.MaxInt32}))
}
