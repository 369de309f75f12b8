package importing

import (
	"context"
	"geoidx/index"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/pkg/errors"
	"os"
	"time"
)

// Ways share the 64-bit ID space with nodes, so way IDs get this bit set to keep the two ID kinds distinct within
// one index.
const wayIDBit = uint64(1) << 62

// Import reads the given OSM PBF file and builds the covering index for it. Nodes are indexed as points and ways
// as the bounding rectangle of their nodes. Relations are skipped, their geometry is not resolvable in a single
// pass over the file. A failed build leaves no partial index file behind.
func Import(inputFile string, outputFile string, depthLevels int, numWorkers int) error {
	sigolo.Infof("Start import of file %s", inputFile)
	importStartTime := time.Now()

	objects, err := readCoveredObjects(inputFile)
	if err != nil {
		return err
	}

	sigolo.Infof("Read %d objects, start building the covering index", len(objects))

	file, err := os.Create(outputFile)
	if err != nil {
		return errors.Wrapf(err, "Unable to create index output file %s", outputFile)
	}

	builder := index.NewGeoObjectsIndexBuilder(depthLevels, numWorkers)
	err = builder.Build(objects, file)
	if err != nil {
		file.Close()
		os.Remove(outputFile)
		return err
	}

	err = file.Close()
	if err != nil {
		os.Remove(outputFile)
		return errors.Wrapf(err, "Unable to close index output file %s", outputFile)
	}

	sigolo.Infof("Finished import in %s", time.Since(importStartTime))

	return nil
}

// readCoveredObjects converts the OSM objects of the given PBF file into covered objects. The file stores nodes
// before ways, so all node locations a way refers to have been seen once the way itself is processed.
func readCoveredObjects(inputFile string) ([]index.CoveredObject, error) {
	reader, err := os.Open(inputFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open OSM input file %s", inputFile)
	}
	defer reader.Close()

	scanner := osmpbf.New(context.Background(), reader, 1)
	defer scanner.Close()

	var objects []index.CoveredObject
	nodeLocations := map[osm.NodeID]orb.Point{}
	firstWayHasBeenProcessed := false

	sigolo.Debug("Start processing nodes (1/2)")
	for scanner.Scan() {
		switch osmObj := scanner.Object().(type) {
		case *osm.Node:
			point := orb.Point{osmObj.Lon, osmObj.Lat}
			nodeLocations[osmObj.ID] = point
			objects = append(objects, index.NewPointObject(index.GeoObjectID(osmObj.ID), point))
		case *osm.Way:
			if !firstWayHasBeenProcessed {
				sigolo.Debug("Start processing ways (2/2)")
				firstWayHasBeenProcessed = true
			}

			var bound *orb.Bound
			for _, node := range osmObj.Nodes {
				location, ok := nodeLocations[node.ID]
				if !ok {
					continue
				}
				nodeBound := location.Bound()
				if bound == nil {
					bound = &nodeBound
				} else {
					union := bound.Union(nodeBound)
					bound = &union
				}
			}
			if bound == nil {
				sigolo.Warnf("No bounding box for way %d could be determined. This way will be skipped.", osmObj.ID)
				continue
			}

			objects = append(objects, index.NewRectObject(index.GeoObjectID(uint64(osmObj.ID)|wayIDBit), *bound))
		}
	}
	if scanner.Err() != nil {
		return nil, errors.Wrapf(scanner.Err(), "Unable to read OSM input file %s", inputFile)
	}

	return objects, nil
}
