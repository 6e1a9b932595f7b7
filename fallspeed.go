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

const (
	// freezingLevel is the altitude [m] separating the liquid and ice
	// precipitation fall-speed regimes.
	freezingLevel = 4500.

	// densityScaleHeight is the e-folding height [m] of the assumed
	// exponential air density profile.
	densityScaleHeight = 10000.

	surfaceAirDensity = 1.2 // kg/m³
)

// CalculateFallSpeed estimates the terminal fall speed [m/s, positive
// downward] of precipitation in each grid cell from the reflectivity
// field with the given name, using a piecewise reflectivity power law
// with an air-density correction. Cells with missing reflectivity hold
// NaN.
func CalculateFallSpeed(g *Grid, reflFieldName string) (*sparse.DenseArray, error) {
	refl, err := g.Field(reflFieldName)
	if err != nil {
		return nil, err
	}
	nz, ny, nx := len(g.Z), len(g.Y), len(g.X)
	vt := sparse.ZerosDense(nz, ny, nx)
	for k := 0; k < nz; k++ {
		z := g.Z[k]
		rho := surfaceAirDensity * math.Exp(-z/densityScaleHeight)
		densCorr := math.Pow(surfaceAirDensity/rho, 0.4)
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				dbz := refl.Data.Get(k, j, i)
				if math.IsNaN(dbz) {
					vt.Set(math.NaN(), k, j, i)
					continue
				}
				a, b := fallSpeedCoefficients(z, dbz)
				vt.Set(a*math.Pow(10, dbz*b)*densCorr, k, j, i)
			}
		}
	}
	return vt, nil
}

// fallSpeedCoefficients returns the power-law coefficients for the
// given altitude [m] and reflectivity [dBZ]. The reflectivity bands
// follow the liquid (below the freezing level) and ice regimes of the
// Caya fall-speed parameterization.
func fallSpeedCoefficients(z, dbz float64) (a, b float64) {
	if z < freezingLevel {
		switch {
		case dbz < 55:
			return 2.6, 0.0107
		case dbz < 60:
			return 2.5, 0.013
		default:
			return 3.95, 0.0148
		}
	}
	switch {
	case dbz < 33:
		return 0.817, 0.0063
	case dbz < 49:
		return 2.5, 0.013
	default:
		return 3.95, 0.0148
	}
}
