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

// interpolator evaluates a gridded field at arbitrary points by
// trilinear interpolation. Queries outside the grid bounds return NaN
// rather than extrapolating, and a NaN in any of the eight surrounding
// cells makes the result NaN.
type interpolator struct {
	z, y, x []float64
	data    *sparse.DenseArray
}

func newInterpolator(l *GridLevel, data *sparse.DenseArray) *interpolator {
	return &interpolator{z: l.Z, y: l.Y, x: l.X, data: data}
}

// at evaluates the field at the point (z, y, x).
func (in *interpolator) at(z, y, x float64) float64 {
	k, fz, ok := bracket(in.z, z)
	if !ok {
		return math.NaN()
	}
	j, fy, ok := bracket(in.y, y)
	if !ok {
		return math.NaN()
	}
	i, fx, ok := bracket(in.x, x)
	if !ok {
		return math.NaN()
	}
	// A single-node axis brackets to (0, 0); there is no upper
	// neighbor to read, and its interpolation weight is zero anyway.
	kmax, jmax, imax := 1, 1, 1
	if k+1 >= len(in.z) {
		kmax = 0
	}
	if j+1 >= len(in.y) {
		jmax = 0
	}
	if i+1 >= len(in.x) {
		imax = 0
	}
	var v float64
	for dk := 0; dk <= kmax; dk++ {
		wz := 1 - fz
		if dk == 1 {
			wz = fz
		}
		for dj := 0; dj <= jmax; dj++ {
			wy := 1 - fy
			if dj == 1 {
				wy = fy
			}
			for di := 0; di <= imax; di++ {
				wx := 1 - fx
				if di == 1 {
					wx = fx
				}
				v += wz * wy * wx * in.data.Get(k+dk, j+dj, i+di)
			}
		}
	}
	return v
}

// bracket finds the interval of the sorted coordinate array coords
// that contains c, returning the lower index and the fractional
// position of c within the interval. ok is false when c lies outside
// the array bounds.
func bracket(coords []float64, c float64) (i int, frac float64, ok bool) {
	n := len(coords)
	if n == 0 || c < coords[0] || c > coords[n-1] {
		return 0, 0, false
	}
	if n == 1 {
		return 0, 0, true
	}
	for i = 0; i < n-2; i++ {
		if c < coords[i+1] {
			break
		}
	}
	frac = (c - coords[i]) / (coords[i+1] - coords[i])
	return i, frac, true
}

// resample interpolates data, which is defined on grid level src, onto
// grid level dst. Destination cells that fall outside the source grid
// hold NaN.
func resample(src *GridLevel, data *sparse.DenseArray, dst *GridLevel) *sparse.DenseArray {
	in := newInterpolator(src, data)
	nz, ny, nx := dst.Shape()
	out := sparse.ZerosDense(nz, ny, nx)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				out.Set(in.at(dst.Z[k], dst.Y[j], dst.X[i]), k, j, i)
			}
		}
	}
	return out
}
