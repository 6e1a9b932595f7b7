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
	"math"

	"github.com/ctessum/sparse"
)

// beamCrossingAngle returns the angle [radians] between the two
// radars' horizontal lines of sight to each (y, x) grid cell. Wind
// components transverse to both beams are unobservable where this
// angle approaches 0 or π, so dual-Doppler coverage is only counted
// where it stays inside the configured bounds. The returned array has
// shape [ny, nx]. Cells coincident with a radar site hold NaN.
func beamCrossingAngle(gi, gj *Grid) (*sparse.DenseArray, error) {
	xi, yi, err := gi.radarPosition()
	if err != nil {
		return nil, err
	}
	xj, yj, err := gj.radarPosition()
	if err != nil {
		return nil, err
	}
	ny, nx := len(gi.Y), len(gi.X)
	bca := sparse.ZerosDense(ny, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			axi := gi.X[i] - xi
			ayi := gi.Y[j] - yi
			axj := gi.X[i] - xj
			ayj := gi.Y[j] - yj
			ri := math.Sqrt(axi*axi + ayi*ayi)
			rj := math.Sqrt(axj*axj + ayj*ayj)
			if ri == 0 || rj == 0 {
				bca.Set(math.NaN(), j, i)
				continue
			}
			cosang := (axi*axj + ayi*ayj) / (ri * rj)
			// Floating-point roundoff can push the cosine just
			// outside [-1, 1].
			cosang = math.Max(-1, math.Min(1, cosang))
			bca.Set(math.Acos(cosang), j, i)
		}
	}
	return bca, nil
}
