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

	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// earthRadius is the spherical earth radius [m] used for the default
// grid projection.
const earthRadius = 6370997.

// radarPosition returns the (x, y) location [m] of the grid's radar
// site relative to the grid origin, by projecting the site's longitude
// and latitude into the grid coordinate system. If the grid doesn't
// specify a projection, a spherical transverse Mercator projection
// centered on the grid origin is assumed.
func (g *Grid) radarPosition() (x, y float64, err error) {
	projStr := g.Projection
	if projStr == "" {
		projStr = fmt.Sprintf("+proj=tmerc +lat_0=%g +lon_0=%g +a=%.0f +b=%.0f",
			g.OriginLatitude, g.OriginLongitude, earthRadius, earthRadius)
	}
	longlat, err := proj.Parse("+proj=longlat")
	if err != nil {
		return 0, 0, fmt.Errorf("multidop: parsing longlat projection: %v", err)
	}
	gridSR, err := proj.Parse(projStr)
	if err != nil {
		return 0, 0, fmt.Errorf("multidop: parsing grid projection %q: %v", projStr, err)
	}
	t, err := longlat.NewTransform(gridSR)
	if err != nil {
		return 0, 0, fmt.Errorf("multidop: creating grid transform: %v", err)
	}
	xr, yr, err := t(g.RadarLongitude, g.RadarLatitude)
	if err != nil {
		return 0, 0, fmt.Errorf("multidop: projecting radar location: %v", err)
	}
	xo, yo, err := t(g.OriginLongitude, g.OriginLatitude)
	if err != nil {
		return 0, 0, fmt.Errorf("multidop: projecting grid origin: %v", err)
	}
	// The transform reports unsupported projections by producing
	// non-finite coordinates rather than an error.
	if !isFinite(xr) || !isFinite(yr) || !isFinite(xo) || !isFinite(yo) {
		return 0, 0, fmt.Errorf("multidop: projection %q produced non-finite radar coordinates", projStr)
	}
	return xr - xo, yr - yo, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AddAzimuthField attaches a field holding the azimuth angle [degrees
// clockwise from north] from the grid's radar site to each grid cell.
// Any existing azimuth field is replaced.
func (g *Grid) AddAzimuthField() error {
	xr, yr, err := g.radarPosition()
	if err != nil {
		return err
	}
	nz, ny, nx := len(g.Z), len(g.Y), len(g.X)
	az := sparse.ZerosDense(nz, ny, nx)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				a := math.Atan2(g.X[i]-xr, g.Y[j]-yr) * 180 / math.Pi
				if a < 0 {
					a += 360
				}
				az.Set(a, k, j, i)
			}
		}
	}
	g.AddField(AzimuthFieldName, &Field{
		Data:         az,
		StandardName: "azimuth",
		LongName:     "azimuth angle from radar to grid cell",
		Units:        "degrees",
	})
	return nil
}

// AddElevationField attaches a field holding the elevation angle
// [degrees above the horizontal] from the grid's radar site to each
// grid cell. The radar is assumed to sit at the altitude of the grid
// origin. Any existing elevation field is replaced.
func (g *Grid) AddElevationField() error {
	xr, yr, err := g.radarPosition()
	if err != nil {
		return err
	}
	nz, ny, nx := len(g.Z), len(g.Y), len(g.X)
	el := sparse.ZerosDense(nz, ny, nx)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				dx := g.X[i] - xr
				dy := g.Y[j] - yr
				e := math.Atan2(g.Z[k], math.Sqrt(dx*dx+dy*dy)) * 180 / math.Pi
				el.Set(e, k, j, i)
			}
		}
	}
	g.AddField(ElevationFieldName, &Field{
		Data:         el,
		StandardName: "elevation",
		LongName:     "elevation angle from radar to grid cell",
		Units:        "degrees",
	})
	return nil
}
