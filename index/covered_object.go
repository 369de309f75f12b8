package index

import (
	"geoidx/common"
	"github.com/paulmach/orb"
)

// GeoObjectID is the opaque 64-bit identifier of an indexed object. It is assigned by the data source and never
// interpreted by the index itself. Multiple objects may carry the same ID, the index enforces no uniqueness.
type GeoObjectID uint64

// CoveredObject is one object to be indexed: an identifier plus its approximate location, which is either a point
// (orb.Point) or an axis-aligned rectangle (orb.Bound). Objects are immutable once constructed.
type CoveredObject struct {
	ID       GeoObjectID
	Geometry orb.Geometry
}

func NewPointObject(id GeoObjectID, point orb.Point) CoveredObject {
	return CoveredObject{
		ID:       id,
		Geometry: point,
	}
}

func NewRectObject(id GeoObjectID, bound orb.Bound) CoveredObject {
	return CoveredObject{
		ID:       id,
		Geometry: bound,
	}
}

// Covering returns the cells covering the geometry of this object, at most depthLevels levels deep. A point object
// always yields exactly one cell, a rectangle object at least one.
func (o CoveredObject) Covering(depthLevels int) []common.CellID {
	return common.Cover(o.Geometry, depthLevels)
}
