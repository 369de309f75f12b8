package index

import (
	"encoding/binary"
	"geoidx/common"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"io"
	"sort"
	"sync"
	"time"
)

/*
	Index layout:

	Names: | magic | depth levels | entry count | entries |
	Bytes: |   4   |      1       |      4      |   ...   |

	Each entry:
	Names: | cell delta | num. objects |    object IDs    |
	Bytes: |    1-10    |     1-10     | num. objects * 8 |

	Entries are stored in strictly ascending cell order, all objects of one cell grouped into a single entry. Each
	cell is stored as uvarint delta to the previously written cell (the first one as delta to 0), which keeps the
	key of a neighboring cell down to one or two bytes. Object IDs are plain 64-bit little-endian values in input
	order. The index is write-once and never mutated in place.
*/

const indexMagic = uint32(0x58444947) // "GIDX" when written little-endian

// CellObjectPair is one index entry produced by the cover phase: the ID of an object together with one of the
// cells covering it.
type CellObjectPair struct {
	Cell     common.CellID
	ObjectID GeoObjectID
}

// ObjectsCovering accumulates the (cell, object) pairs of the cover phase. Each concurrently covering worker must
// own a private instance; merging the per-worker coverings is up to the caller.
type ObjectsCovering []CellObjectPair

// GeoObjectsIndexBuilder builds the serialized covering index for a set of covered objects. The output is a pure
// function of the input object order and the depth parameter, so rebuilding from identical input yields a
// byte-identical index regardless of the number of workers.
type GeoObjectsIndexBuilder struct {
	depthLevels int
	numWorkers  int
}

func NewGeoObjectsIndexBuilder(depthLevels int, numWorkers int) *GeoObjectsIndexBuilder {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &GeoObjectsIndexBuilder{
		depthLevels: depthLevels,
		numWorkers:  numWorkers,
	}
}

// Cover computes the covering of the given object and appends one pair per covering cell to the given covering.
func (b *GeoObjectsIndexBuilder) Cover(object CoveredObject, covering *ObjectsCovering) {
	for _, cell := range object.Covering(b.depthLevels) {
		*covering = append(*covering, CellObjectPair{Cell: cell, ObjectID: object.ID})
	}
}

// Build covers all given objects using the configured number of workers and serializes the resulting index to the
// given writer. A single worker degenerates to a fully sequential build. An empty object list is valid and
// produces a well-formed empty index. When writing fails, no usable index has been produced and the caller must
// discard the written output.
func (b *GeoObjectsIndexBuilder) Build(objects []CoveredObject, writer io.Writer) error {
	if err := b.validateDepthLevels(); err != nil {
		return err
	}

	coverStartTime := time.Now()

	// Contiguous shards keep the merged pair order identical to the input order, which makes the serialized
	// output independent of the number of workers.
	shardCoverings := make([]ObjectsCovering, b.numWorkers)
	shardSize := (len(objects) + b.numWorkers - 1) / b.numWorkers

	var waitGroup sync.WaitGroup
	for i := 0; i < b.numWorkers; i++ {
		from := i * shardSize
		if from > len(objects) {
			from = len(objects)
		}
		to := from + shardSize
		if to > len(objects) {
			to = len(objects)
		}

		waitGroup.Add(1)
		go func(shardCovering *ObjectsCovering, shardObjects []CoveredObject) {
			defer waitGroup.Done()
			for _, object := range shardObjects {
				b.Cover(object, shardCovering)
			}
		}(&shardCoverings[i], objects[from:to])
	}
	waitGroup.Wait()

	var covering ObjectsCovering
	for _, shardCovering := range shardCoverings {
		covering = append(covering, shardCovering...)
	}

	sigolo.Debugf("Covered %d objects with %d cells in %s", len(objects), len(covering), time.Since(coverStartTime))

	return b.BuildCoveringIndex(covering, writer)
}

// BuildCoveringIndex sorts the given covering and serializes it to the given writer. The sort is stable, so pairs
// of the same cell keep their relative input order and repeated builds from the same input are byte-identical.
func (b *GeoObjectsIndexBuilder) BuildCoveringIndex(covering ObjectsCovering, writer io.Writer) error {
	if err := b.validateDepthLevels(); err != nil {
		return err
	}

	sort.SliceStable(covering, func(i, j int) bool {
		return covering[i].Cell < covering[j].Cell
	})

	entryCount := 0
	for i := range covering {
		if i == 0 || covering[i].Cell != covering[i-1].Cell {
			entryCount++
		}
	}

	header := make([]byte, 9)
	binary.LittleEndian.PutUint32(header[0:], indexMagic)
	header[4] = byte(b.depthLevels)
	binary.LittleEndian.PutUint32(header[5:], uint32(entryCount))
	if _, err := writer.Write(header); err != nil {
		return errors.Wrap(err, "Unable to write covering index header")
	}

	var buffer []byte
	lastCell := common.CellID(0)
	for from := 0; from < len(covering); {
		to := from
		for to < len(covering) && covering[to].Cell == covering[from].Cell {
			to++
		}
		cell := covering[from].Cell

		buffer = buffer[:0]
		buffer = binary.AppendUvarint(buffer, uint64(cell)-uint64(lastCell))
		buffer = binary.AppendUvarint(buffer, uint64(to-from))
		for i := from; i < to; i++ {
			buffer = binary.LittleEndian.AppendUint64(buffer, uint64(covering[i].ObjectID))
		}
		if _, err := writer.Write(buffer); err != nil {
			return errors.Wrapf(err, "Unable to write covering index entry for cell %d", uint64(cell))
		}

		lastCell = cell
		from = to
	}

	return nil
}

func (b *GeoObjectsIndexBuilder) validateDepthLevels() error {
	if b.depthLevels <= 0 || b.depthLevels > common.MaxDepth {
		return errors.Wrapf(ErrInvalidDepthLevels, "depth levels must be in (0, %d] but was %d", common.MaxDepth, b.depthLevels)
	}
	return nil
}
