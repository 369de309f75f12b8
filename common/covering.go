package common

import (
	"fmt"
	"github.com/paulmach/orb"
)

// Cover computes the covering of the given geometry: a bounded set of cells, at most maxDepth levels deep, whose
// union contains the geometry. The result is deterministic for identical input. Only points and axis-aligned
// rectangles are supported.
func Cover(geometry orb.Geometry, maxDepth int) []CellID {
	switch g := geometry.(type) {
	case orb.Point:
		return []CellID{CellIDAt(g, maxDepth)}
	case orb.Bound:
		return CoverBound(g, maxDepth)
	}
	panic(fmt.Sprintf("Unsupported geometry type %s for cell covering", geometry.GeoJSONType()))
}

// CoverBound computes the covering of the given rectangle. Cells that lie entirely within the rectangle are
// emitted as-is, which keeps the covering (and with it the index) small for large objects. Cells that only
// partially overlap the rectangle are subdivided further. At maxDepth every still-overlapping cell is emitted,
// so the covering may extend slightly beyond the rectangle but never misses any part of it.
func CoverBound(bound orb.Bound, maxDepth int) []CellID {
	var covering []CellID

	stack := []CellID{RootCellID()}
	for len(stack) > 0 {
		cell := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !cell.IntersectsBound(bound) {
			continue
		}
		if cell.Level() == maxDepth || boundContainsBound(bound, cell.Bound()) {
			covering = append(covering, cell)
			continue
		}

		// Reversed push order so that children are processed in their natural 0-3 order.
		for i := 3; i >= 0; i-- {
			stack = append(stack, cell.Child(i))
		}
	}

	return covering
}

func boundContainsBound(outer orb.Bound, inner orb.Bound) bool {
	return inner.Min.X() >= outer.Min.X() && inner.Min.Y() >= outer.Min.Y() &&
		inner.Max.X() <= outer.Max.X() && inner.Max.Y() <= outer.Max.Y()
}
