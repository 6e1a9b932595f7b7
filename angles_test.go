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
	"testing"
)

// angleTolerance accommodates the small distortion of projecting the
// radar location onto the grid plane.
const angleTolerance = 0.02

func TestRadarPositionAtOrigin(t *testing.T) {
	g := testGrid(35, -98) // radar at the grid origin
	x, y, err := g.radarPosition()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x) > 1 || math.Abs(y) > 1 {
		t.Errorf("radar at the origin projects to (%g, %g), want (0, 0)", x, y)
	}
}

func TestRadarPositionEastOfOrigin(t *testing.T) {
	g := testGrid(35, -97.6) // 0.4° east of the origin
	x, y, err := g.radarPosition()
	if err != nil {
		t.Fatal(err)
	}
	// 0.4° of longitude at 35°N is roughly 36.4 km.
	if x < 35000 || x > 38000 {
		t.Errorf("projected x = %g, want roughly 36400", x)
	}
	if math.Abs(y) > 1000 {
		t.Errorf("projected y = %g, want roughly 0", y)
	}
}

func TestAddAzimuthField(t *testing.T) {
	g := testGrid(35, -98)
	if err := g.AddAzimuthField(); err != nil {
		t.Fatal(err)
	}
	az, err := g.Field(AzimuthFieldName)
	if err != nil {
		t.Fatal(err)
	}
	// Every cell of the grid lies northeast of the radar, so all
	// azimuths fall in the first quadrant.
	for _, a := range az.Data.Elements {
		if a < 0 || a > 90 {
			t.Fatalf("azimuth %g outside the expected quadrant [0, 90]", a)
		}
	}
	want := math.Atan2(g.X[3], g.Y[2]) * 180 / math.Pi
	if got := az.Data.Get(0, 2, 3); different(got, want, angleTolerance) {
		t.Errorf("azimuth: got %g, want %g", got, want)
	}
	// Azimuth doesn't depend on height.
	if az.Data.Get(0, 1, 1) != az.Data.Get(3, 1, 1) {
		t.Error("azimuth varies with height")
	}
}

func TestAddElevationField(t *testing.T) {
	g := testGrid(35, -98)
	if err := g.AddElevationField(); err != nil {
		t.Fatal(err)
	}
	el, err := g.Field(ElevationFieldName)
	if err != nil {
		t.Fatal(err)
	}
	for k := 1; k < len(g.Z); k++ {
		for j := 0; j < len(g.Y); j++ {
			for i := 0; i < len(g.X); i++ {
				if el.Data.Get(k, j, i) <= el.Data.Get(k-1, j, i) {
					t.Fatalf("elevation at (%d, %d, %d) doesn't increase with height", k, j, i)
				}
			}
		}
	}
	// A cell whose height equals its horizontal distance from the
	// radar sits at 45°. X[0] = 8000, Y = 0 is not on the grid, so
	// check against the exact formula at one point instead.
	d := math.Sqrt(float64(8000*8000 + 10000*10000))
	want := math.Atan2(g.Z[2], d) * 180 / math.Pi
	if got := el.Data.Get(2, 0, 0); different(got, want, angleTolerance) {
		t.Errorf("elevation: got %g, want %g", got, want)
	}
}

// The pinned proj library's transverse Mercator only handles spherical
// earth models; an ellipsoidal projection string produces non-finite
// coordinates, which must surface as an error rather than NaN radar
// positions.
func TestRadarPositionUnsupportedProjection(t *testing.T) {
	g := testGrid(35, -97.6)
	g.Projection = "+proj=tmerc +lat_0=35 +lon_0=-98 +ellps=WGS84"
	if _, _, err := g.radarPosition(); err == nil {
		t.Error("expected an error for an ellipsoidal tmerc projection")
	}
	if err := g.AddAzimuthField(); err == nil {
		t.Error("expected AddAzimuthField to fail for an ellipsoidal tmerc projection")
	}
}
