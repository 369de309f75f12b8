package index

import (
	"container/heap"
	"encoding/binary"
	"geoidx/common"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"sort"
)

// GeoObjectsIndex answers range and ranked nearest-object queries over a serialized covering index. The index is
// immutable once loaded, so one instance can be queried by any number of goroutines concurrently.
type GeoObjectsIndex struct {
	depthLevels int

	// Strictly ascending cell keys; objects[i] holds the IDs stored under cells[i].
	cells   []common.CellID
	objects [][]GeoObjectID
}

// LoadGeoObjectsIndex parses a serialized covering index from the given bytes. The buffer is not copied and must
// stay valid for the lifetime of the index (relevant for memory-mapped sources). Malformed or truncated data is
// rejected with a wrapped ErrCorruptIndex; the stored object IDs themselves are not validated.
func LoadGeoObjectsIndex(data []byte) (*GeoObjectsIndex, error) {
	// See format details (field sizes, delta encoding, etc.) in builder.go.

	if len(data) < 9 {
		return nil, errors.Wrapf(ErrCorruptIndex, "index header needs 9 bytes but only %d are available", len(data))
	}
	if binary.LittleEndian.Uint32(data[0:]) != indexMagic {
		return nil, errors.Wrap(ErrCorruptIndex, "wrong magic number")
	}
	depthLevels := int(data[4])
	if depthLevels <= 0 || depthLevels > common.MaxDepth {
		return nil, errors.Wrapf(ErrCorruptIndex, "depth levels must be in (0, %d] but was %d", common.MaxDepth, depthLevels)
	}
	entryCount := int(binary.LittleEndian.Uint32(data[5:]))

	index := &GeoObjectsIndex{
		depthLevels: depthLevels,
		cells:       make([]common.CellID, 0, entryCount),
		objects:     make([][]GeoObjectID, 0, entryCount),
	}

	pos := 9
	lastCell := uint64(0)
	for i := 0; i < entryCount; i++ {
		cellDelta, numBytes := binary.Uvarint(data[pos:])
		if numBytes <= 0 {
			return nil, errors.Wrapf(ErrCorruptIndex, "truncated cell delta in entry %d", i)
		}
		pos += numBytes

		numObjects, numBytes := binary.Uvarint(data[pos:])
		if numBytes <= 0 {
			return nil, errors.Wrapf(ErrCorruptIndex, "truncated object count in entry %d", i)
		}
		pos += numBytes

		// The delta must keep the keys strictly ascending within the valid key range. Checking against the remaining
		// headroom also catches deltas that would wrap around uint64.
		maxDelta := uint64(common.RootCellID().RangeMax()) - lastCell
		if cellDelta == 0 || cellDelta > maxDelta {
			return nil, errors.Wrapf(ErrCorruptIndex, "cell delta %d of entry %d leaves the valid key range", cellDelta, i)
		}
		cell := lastCell + cellDelta
		if numObjects == 0 || numObjects > uint64((len(data)-pos)/8) {
			return nil, errors.Wrapf(ErrCorruptIndex, "entry %d announces %d objects but the data ends too early", i, numObjects)
		}

		ids := make([]GeoObjectID, numObjects)
		for j := range ids {
			ids[j] = GeoObjectID(binary.LittleEndian.Uint64(data[pos:]))
			pos += 8
		}

		index.cells = append(index.cells, common.CellID(cell))
		index.objects = append(index.objects, ids)
		lastCell = cell
	}

	if pos != len(data) {
		return nil, errors.Wrapf(ErrCorruptIndex, "%d trailing bytes after the last entry", len(data)-pos)
	}

	return index, nil
}

// DepthLevels returns the number of depth levels the index was built with.
func (g *GeoObjectsIndex) DepthLevels() int {
	return g.depthLevels
}

// ForEachInRect calls visit exactly once for each object whose location lies within the given rectangle. Entries
// stored at the deepest level are only reported when the center point of their cell lies within the rectangle,
// which makes the result exact for point objects. Entries at coarser levels mark cells lying entirely within some
// object, so any overlap with the rectangle implies an overlap with the object itself. Boundary cells of a
// rectangle object are stored at the deepest level too and therefore get the same center filter, so a rectangle
// overlapping the query rectangle only within such a boundary cell may be missed; ForEachCandidateInRect reports
// it. There is no ordering guarantee among the visited IDs.
func (g *GeoObjectsIndex) ForEachInRect(visit func(id GeoObjectID), rect orb.Bound) {
	g.forEachInRect(visit, rect, true)
}

// ForEachCandidateInRect is the conservative variant of ForEachInRect: it reports every object one of whose
// covering cells overlaps the rectangle, including point objects whose cell merely touches it. Callers that need
// exact spatial membership must use ForEachInRect instead.
func (g *GeoObjectsIndex) ForEachCandidateInRect(visit func(id GeoObjectID), rect orb.Bound) {
	g.forEachInRect(visit, rect, false)
}

func (g *GeoObjectsIndex) forEachInRect(visit func(id GeoObjectID), rect orb.Bound, exact bool) {
	if len(g.cells) == 0 {
		return
	}

	visited := map[GeoObjectID]bool{}

	stack := []common.CellID{common.RootCellID()}
	for len(stack) > 0 {
		cell := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !cell.IntersectsBound(rect) {
			continue
		}
		if !g.subtreeHasEntries(cell) {
			continue
		}

		if ids, ok := g.entriesOf(cell); ok {
			include := !exact || cell.Level() < g.depthLevels || rect.Contains(cell.Bound().Center())
			if include {
				for _, id := range ids {
					if !visited[id] {
						visited[id] = true
						visit(id)
					}
				}
			}
		}

		if cell.Level() < g.depthLevels {
			for i := 3; i >= 0; i-- {
				stack = append(stack, cell.Child(i))
			}
		}
	}
}

// ForClosestToPoint calls visit for the topSize objects closest to center, expanding outward over the cell
// hierarchy until even the nearest unexplored cell is further away than maxDistance. Each visited object carries a
// weight: exactly 1.0 when the object's covering contains the center (an enclosing object), otherwise
// 1 - distance/maxDistance, strictly decreasing with the distance and reaching 0 at maxDistance. Enclosing
// objects are always visited, even when there are more of them than topSize; the remaining objects are backfilled
// in descending weight order up to topSize results in total. Relative order among equal non-enclosing weights is
// unspecified.
func (g *GeoObjectsIndex) ForClosestToPoint(visit func(id GeoObjectID, weight float64), center orb.Point, maxDistance float64, topSize int) {
	if maxDistance <= 0 || topSize <= 0 || len(g.cells) == 0 {
		return
	}

	// Best-first expansion: always continue with the nearest unexplored cell, so the search naturally visits the
	// hierarchy in rings of increasing distance around the center.
	weights := map[GeoObjectID]float64{}
	queue := &cellQueue{{cell: common.RootCellID(), distance: common.RootCellID().DistanceTo(center)}}
	for queue.Len() > 0 {
		candidate := heap.Pop(queue).(cellCandidate)
		if candidate.distance > maxDistance {
			break
		}

		cell := candidate.cell
		if !g.subtreeHasEntries(cell) {
			continue
		}

		if ids, ok := g.entriesOf(cell); ok {
			weight := 1.0
			if candidate.distance > 0 {
				weight = 1.0 - candidate.distance/maxDistance
			}
			for _, id := range ids {
				// An object covered by several cells counts with its closest cell.
				if bestWeight, ok := weights[id]; !ok || weight > bestWeight {
					weights[id] = weight
				}
			}
		}

		if cell.Level() < g.depthLevels {
			for i := 0; i < 4; i++ {
				child := cell.Child(i)
				distance := child.DistanceTo(center)
				if distance <= maxDistance {
					heap.Push(queue, cellCandidate{cell: child, distance: distance})
				}
			}
		}
	}

	type rankedObject struct {
		id     GeoObjectID
		weight float64
	}
	var enclosing []rankedObject
	var others []rankedObject
	for id, weight := range weights {
		if weight == 1.0 {
			enclosing = append(enclosing, rankedObject{id: id, weight: weight})
		} else {
			others = append(others, rankedObject{id: id, weight: weight})
		}
	}

	// Map iteration order is random, so sort where the contract defines an order. Enclosing objects all share
	// weight 1.0; their ID order keeps repeated queries stable.
	sort.Slice(enclosing, func(i, j int) bool {
		return enclosing[i].id < enclosing[j].id
	})
	sort.Slice(others, func(i, j int) bool {
		return others[i].weight > others[j].weight
	})

	for _, object := range enclosing {
		visit(object.id, object.weight)
	}
	for i := 0; i < topSize-len(enclosing) && i < len(others); i++ {
		visit(others[i].id, others[i].weight)
	}
}

// subtreeHasEntries determines whether any entry is stored within the subtree of the given cell.
func (g *GeoObjectsIndex) subtreeHasEntries(cell common.CellID) bool {
	first := sort.Search(len(g.cells), func(i int) bool {
		return g.cells[i] >= cell.RangeMin()
	})
	return first < len(g.cells) && g.cells[first] <= cell.RangeMax()
}

// entriesOf returns the object IDs stored under exactly the given cell.
func (g *GeoObjectsIndex) entriesOf(cell common.CellID) ([]GeoObjectID, bool) {
	pos := sort.Search(len(g.cells), func(i int) bool {
		return g.cells[i] >= cell
	})
	if pos < len(g.cells) && g.cells[pos] == cell {
		return g.objects[pos], true
	}
	return nil, false
}

type cellCandidate struct {
	cell     common.CellID
	distance float64
}

// cellQueue is a min-heap of cells ordered by their distance to the query point. It drives the ring expansion of
// ForClosestToPoint.
type cellQueue []cellCandidate

func (q cellQueue) Len() int {
	return len(q)
}

func (q cellQueue) Less(i, j int) bool {
	return q[i].distance < q[j].distance
}

func (q cellQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *cellQueue) Push(x any) {
	*q = append(*q, x.(cellCandidate))
}

func (q *cellQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}
