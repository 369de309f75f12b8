package common

import (
	"geoidx/util"
	"github.com/paulmach/orb"
	"testing"
)

func TestCellID_rootCoversWorld(t *testing.T) {
	root := RootCellID()

	util.AssertEqual(t, 0, root.Level())
	util.AssertEqual(t, orb.Bound{Min: orb.Point{WorldMinX, WorldMinY}, Max: orb.Point{WorldMaxX, WorldMaxY}}, root.Bound())
	util.AssertTrue(t, root.Contains(orb.Point{0, 0}))
	util.AssertTrue(t, root.Contains(orb.Point{WorldMinX, WorldMinY}))
	util.AssertTrue(t, root.Contains(orb.Point{WorldMaxX, WorldMaxY}))
}

func TestCellIDAt_levelAndContainment(t *testing.T) {
	points := []orb.Point{
		{0, 0},
		{1, 1},
		{-123.456, 77.001},
		{179.9, -179.9},
	}

	for _, point := range points {
		for _, level := range []int{1, 5, 10, 21, MaxDepth} {
			cell := CellIDAt(point, level)

			util.AssertEqual(t, level, cell.Level())
			util.AssertTrue(t, cell.Contains(point))
			util.AssertEqual(t, 0.0, cell.DistanceTo(point))
		}
	}
}

func TestCellIDAt_borderPointBelongsToUpperCell(t *testing.T) {
	// (0, 0) is a corner of four level-1 cells, the half-open cell rectangles put it into the upper-right one.
	cell := CellIDAt(orb.Point{0, 0}, 1)

	util.AssertEqual(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{WorldMaxX, WorldMaxY}}, cell.Bound())
}

func TestCellID_childrenPartitionParent(t *testing.T) {
	parent := CellIDAt(orb.Point{10, 20}, 7)
	parentBound := parent.Bound()
	midX := (parentBound.Min.X() + parentBound.Max.X()) / 2
	midY := (parentBound.Min.Y() + parentBound.Max.Y()) / 2

	util.AssertEqual(t, orb.Bound{Min: parentBound.Min, Max: orb.Point{midX, midY}}, parent.Child(0).Bound())
	util.AssertEqual(t, orb.Bound{Min: orb.Point{midX, parentBound.Min.Y()}, Max: orb.Point{parentBound.Max.X(), midY}}, parent.Child(1).Bound())
	util.AssertEqual(t, orb.Bound{Min: orb.Point{parentBound.Min.X(), midY}, Max: orb.Point{midX, parentBound.Max.Y()}}, parent.Child(2).Bound())
	util.AssertEqual(t, orb.Bound{Min: orb.Point{midX, midY}, Max: parentBound.Max}, parent.Child(3).Bound())

	for i := 0; i < 4; i++ {
		util.AssertEqual(t, parent, parent.Child(i).Parent())
		util.AssertEqual(t, parent.Level()+1, parent.Child(i).Level())
	}
}

func TestCellID_subtreeRanges(t *testing.T) {
	cell := CellIDAt(orb.Point{-42, 13.37}, 9)

	util.AssertTrue(t, cell.RangeMin() <= cell)
	util.AssertTrue(t, cell <= cell.RangeMax())

	for i := 0; i < 4; i++ {
		child := cell.Child(i)
		util.AssertTrue(t, cell.RangeMin() <= child.RangeMin())
		util.AssertTrue(t, child.RangeMax() <= cell.RangeMax())
	}

	// Leaf cells have no descendants, their range is just the key itself.
	leaf := CellIDAt(orb.Point{-42, 13.37}, MaxDepth)
	util.AssertEqual(t, leaf, leaf.RangeMin())
	util.AssertEqual(t, leaf, leaf.RangeMax())

	// The root subtree spans every other cell.
	util.AssertTrue(t, RootCellID().RangeMin() <= leaf)
	util.AssertTrue(t, leaf <= RootCellID().RangeMax())
}

func TestCellID_distanceToOutsidePoint(t *testing.T) {
	cell := CellIDAt(orb.Point{0.5, 0.5}, 1)
	bound := cell.Bound()
	util.AssertEqual(t, orb.Point{0, 0}, bound.Min)

	// Straight to the left of the cell.
	util.AssertApprox(t, 1.0, cell.DistanceTo(orb.Point{-1, 5}), 1e-12)
	// Diagonally below the lower-left corner.
	util.AssertApprox(t, 5.0, cell.DistanceTo(orb.Point{-3, -4}), 1e-12)
}
