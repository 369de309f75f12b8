package common

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"strconv"
	"strings"
)

// ParseBbox parses a rectangle given as "minX,minY,maxX,maxY" string.
func ParseBbox(bbox string) (orb.Bound, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return orb.Bound{}, errors.Errorf("Expected 4 comma separated values but got %d", len(parts))
	}

	values := make([]float64, 4)
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, errors.Wrapf(err, "Value '%s' of the bbox is not a number", part)
		}
		values[i] = value
	}

	return orb.Bound{
		Min: orb.Point{values[0], values[1]},
		Max: orb.Point{values[2], values[3]},
	}, nil
}
