package common

import (
	"github.com/paulmach/orb"
	"math"
	"math/bits"
)

const (
	// MaxDepth is the deepest subdivision level of the cell hierarchy. With 24 levels the path of a cell needs 48
	// bits plus one marker bit, so every cell key fits into an uint64.
	MaxDepth = 24

	// The world square of the projected planar coordinate space, covered by the root cell.
	WorldMinX = -180.0
	WorldMinY = -180.0
	WorldMaxX = 180.0
	WorldMaxY = 180.0
)

// CellID addresses one node of the fixed quad-tree subdivision of the world square. The key consists of the path
// from the root (two bits per level, stored in the uppermost bits) followed by a single marker bit and zeros. This
// encoding has two properties the index relies on:
//
//  1. The keys of all descendants of a cell form the contiguous interval [RangeMin, RangeMax] which also contains
//     the cell's own key. Cells sorted by key can therefore be searched by subtree with a binary search.
//  2. The rectangle of a cell is derivable from the key alone, no tree structure has to be kept in memory.
//
// Within one path step, bit 0 selects the upper x-half and bit 1 the upper y-half of the parent rectangle.
type CellID uint64

// RootCellID returns the cell of level 0 covering the whole world square.
func RootCellID() CellID {
	return CellID(1) << (2 * MaxDepth)
}

// CellIDAt returns the cell of the given level that contains the given point. Cell rectangles are half-open, i.e.
// a point exactly on the border between two cells belongs to the cell with the larger coordinates. Points on the
// maximum world border belong to the last cell.
func CellIDAt(point orb.Point, level int) CellID {
	minX, minY := float64(WorldMinX), float64(WorldMinY)
	maxX, maxY := float64(WorldMaxX), float64(WorldMaxY)

	path := uint64(0)
	for i := 0; i < level; i++ {
		midX := (minX + maxX) / 2
		midY := (minY + maxY) / 2

		childBits := uint64(0)
		if point.X() >= midX {
			childBits |= 1
			minX = midX
		} else {
			maxX = midX
		}
		if point.Y() >= midY {
			childBits |= 2
			minY = midY
		} else {
			maxY = midY
		}

		path = path<<2 | childBits
	}

	return CellID((path<<1 | 1) << (2 * uint(MaxDepth-level)))
}

// lsb returns the marker bit of the cell, i.e. the lowest bit of the key that is set.
func (c CellID) lsb() uint64 {
	return uint64(c) & (-uint64(c))
}

// Level returns the depth of the cell within the hierarchy. The root cell has level 0.
func (c CellID) Level() int {
	return MaxDepth - bits.TrailingZeros64(uint64(c))/2
}

// Parent returns the cell one level above this cell.
func (c CellID) Parent() CellID {
	parentLsb := c.lsb() << 2
	return CellID((uint64(c) & -parentLsb) | parentLsb)
}

// Child returns the i-th child (0-3) of this cell. Must not be called on cells of level MaxDepth.
func (c CellID) Child(i int) CellID {
	childLsb := c.lsb() >> 2
	return CellID(uint64(c) - c.lsb() + (2*uint64(i)+1)*childLsb)
}

// RangeMin returns the smallest key within the subtree rooted at this cell.
func (c CellID) RangeMin() CellID {
	return CellID(uint64(c) - (c.lsb() - 1))
}

// RangeMax returns the largest key within the subtree rooted at this cell.
func (c CellID) RangeMax() CellID {
	return CellID(uint64(c) + (c.lsb() - 1))
}

// Bound returns the rectangle of this cell. The four child rectangles partition the parent rectangle exactly.
func (c CellID) Bound() orb.Bound {
	minX, minY := float64(WorldMinX), float64(WorldMinY)
	maxX, maxY := float64(WorldMaxX), float64(WorldMaxY)

	level := c.Level()
	path := uint64(c) >> (2*uint(MaxDepth-level) + 1)
	for i := level - 1; i >= 0; i-- {
		midX := (minX + maxX) / 2
		midY := (minY + maxY) / 2

		childBits := (path >> (2 * uint(i))) & 3
		if childBits&1 == 0 {
			maxX = midX
		} else {
			minX = midX
		}
		if childBits&2 == 0 {
			maxY = midY
		} else {
			minY = midY
		}
	}

	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
}

// Contains determines whether the given point lies within this cell, using the same half-open border semantics as
// CellIDAt.
func (c CellID) Contains(point orb.Point) bool {
	bound := c.Bound()
	containsX := point.X() >= bound.Min.X() && (point.X() < bound.Max.X() || bound.Max.X() == WorldMaxX && point.X() == WorldMaxX)
	containsY := point.Y() >= bound.Min.Y() && (point.Y() < bound.Max.Y() || bound.Max.Y() == WorldMaxY && point.Y() == WorldMaxY)
	return containsX && containsY
}

// IntersectsBound determines whether this cell and the given rectangle share any point, using the half-open cell
// border semantics: a rectangle only touching the open max border of the cell does not intersect it, one touching
// the closed min border does. The rectangle itself is closed, so a zero-area rectangle intersects exactly the one
// cell containing its point.
func (c CellID) IntersectsBound(bound orb.Bound) bool {
	cellBound := c.Bound()
	return bound.Min.X() < cellBound.Max.X() && bound.Max.X() >= cellBound.Min.X() &&
		bound.Min.Y() < cellBound.Max.Y() && bound.Max.Y() >= cellBound.Min.Y()
}

// DistanceTo returns the Euclidean distance from the given point to the rectangle of this cell. The distance is 0
// when the point lies within the cell.
func (c CellID) DistanceTo(point orb.Point) float64 {
	bound := c.Bound()
	dx := math.Max(0, math.Max(bound.Min.X()-point.X(), point.X()-bound.Max.X()))
	dy := math.Max(0, math.Max(bound.Min.Y()-point.Y(), point.Y()-bound.Max.Y()))
	return math.Hypot(dx, dy)
}
