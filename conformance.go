/*
Copyright © 2019 the MultiDop authors.
This file is part of MultiDop.

MultiDop is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MultiDop is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MultiDop.  If not, see <http://www.gnu.org/licenses/>.
*/

package multidop

import (
	"fmt"
	"math"
)

// coordTolerance is the maximum absolute difference [m] that two
// grids' coordinate arrays may have and still be considered the same
// analysis grid.
const coordTolerance = 10.

// checkConformance verifies that every grid shares the coordinate
// system and origin of the first one. It must be called before any
// computation; all of the per-radar arrays built later assume a single
// common grid.
func checkConformance(grids []*Grid) error {
	if len(grids) == 0 {
		return fmt.Errorf("multidop: at least one grid is required")
	}
	first := grids[0]
	for i, g := range grids[1:] {
		if err := coordsMatch(first.X, g.X); err != nil {
			return fmt.Errorf("multidop: grid %d x coordinates don't match grid 0: %v", i+1, err)
		}
		if err := coordsMatch(first.Y, g.Y); err != nil {
			return fmt.Errorf("multidop: grid %d y coordinates don't match grid 0: %v", i+1, err)
		}
		if err := coordsMatch(first.Z, g.Z); err != nil {
			return fmt.Errorf("multidop: grid %d z coordinates don't match grid 0: %v", i+1, err)
		}
		if g.OriginLatitude != first.OriginLatitude {
			return fmt.Errorf("multidop: grid %d origin latitude %g doesn't match grid 0 origin latitude %g",
				i+1, g.OriginLatitude, first.OriginLatitude)
		}
	}
	return nil
}

func coordsMatch(a, b []float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("lengths %d and %d differ", len(a), len(b))
	}
	for i, v := range a {
		if math.Abs(v-b[i]) > coordTolerance {
			return fmt.Errorf("coordinate %d: %g and %g differ by more than %g m",
				i, v, b[i], coordTolerance)
		}
	}
	return nil
}
