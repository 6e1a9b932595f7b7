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

	"github.com/ctessum/sparse"
)

const testTolerance = 1e-8

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance && math.Abs(a-b) > tolerance {
		return true
	}
	return math.IsNaN(a) != math.IsNaN(b)
}

// testGrid builds a uniformly spaced grid with the given radar
// location and no fields.
func testGrid(radarLat, radarLon float64) *Grid {
	return &Grid{
		X:               coords(8000, 4000, 6),
		Y:               coords(10000, 4000, 6),
		Z:               coords(500, 1000, 4),
		OriginLatitude:  35,
		OriginLongitude: -98,
		RadarLatitude:   radarLat,
		RadarLongitude:  radarLon,
	}
}

func coords(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// constField returns a grid-shaped field holding v everywhere.
func constField(g *Grid, v float64) *sparse.DenseArray {
	data := sparse.ZerosDense(g.Shape()...)
	for i := range data.Elements {
		data.Elements[i] = v
	}
	return data
}

func TestGridShape(t *testing.T) {
	g := testGrid(35, -98)
	want := []int{4, 6, 6}
	if got := g.Shape(); !shapeEqual(got, want) {
		t.Errorf("shape: got %v, want %v", got, want)
	}
}

func TestGridFieldShapeMismatch(t *testing.T) {
	g := testGrid(35, -98)
	g.AddField("refl", &Field{Data: sparse.ZerosDense(2, 2, 2)})
	if _, err := g.Field("refl"); err == nil {
		t.Error("expected an error for a field with the wrong shape")
	}
	if _, err := g.Field("missing"); err == nil {
		t.Error("expected an error for a missing field")
	}
}

func TestGridCopyIndependence(t *testing.T) {
	g := testGrid(35, -98)
	g.AddField("refl", &Field{Data: constField(g, 30), Units: "dBZ"})
	c := g.Copy()
	c.X[0] = -1e9
	c.Fields["refl"].Data.Elements[0] = -1e9
	if g.X[0] == -1e9 {
		t.Error("copy shares coordinate storage with the original")
	}
	if g.Fields["refl"].Data.Elements[0] == -1e9 {
		t.Error("copy shares field storage with the original")
	}
	if c.Fields["refl"].Units != "dBZ" {
		t.Error("copy dropped field metadata")
	}
}

func TestWindFieldComponents(t *testing.T) {
	g := testGrid(35, -98)
	l := newGridLevel(g)
	u := constField(g, 5)
	v := constField(g, 3)
	w := constField(g, -1)
	wf, err := windFieldFromComponents(l, u, v, w)
	if err != nil {
		t.Fatal(err)
	}
	for c, want := range []float64{5, 3, -1} {
		got := wf.Component(c)
		for _, e := range got.Elements {
			if e != want {
				t.Fatalf("component %d: got %g, want %g", c, e, want)
			}
		}
	}
	if len(wf.Vector()) != nComp*l.N() {
		t.Errorf("vector length: got %d, want %d", len(wf.Vector()), nComp*l.N())
	}
}

func TestWindFieldShapeMismatch(t *testing.T) {
	g := testGrid(35, -98)
	l := newGridLevel(g)
	bad := sparse.ZerosDense(2, 2, 2)
	if _, err := windFieldFromComponents(l, bad, bad, bad); err == nil {
		t.Error("expected an error for mismatched component shapes")
	}
}

func TestAddCorrectionSkipsNaN(t *testing.T) {
	g := testGrid(35, -98)
	l := newGridLevel(g)
	wf, err := windFieldFromComponents(l, constField(g, 1), constField(g, 1), constField(g, 1))
	if err != nil {
		t.Fatal(err)
	}
	delta := constField(g, 2)
	delta.Elements[0] = math.NaN()
	wf.AddCorrection(compU, delta)
	u := wf.Component(compU)
	if u.Elements[0] != 1 {
		t.Errorf("NaN correction was applied: got %g, want 1", u.Elements[0])
	}
	if u.Elements[1] != 3 {
		t.Errorf("correction not applied: got %g, want 3", u.Elements[1])
	}
}

func TestGridLevelSpacing(t *testing.T) {
	l := newGridLevel(testGrid(35, -98))
	dz, dy, dx := l.Spacing()
	if dz != 1000 || dy != 4000 || dx != 4000 {
		t.Errorf("spacing: got (%g, %g, %g), want (1000, 4000, 4000)", dz, dy, dx)
	}
}

func TestCoarsen(t *testing.T) {
	l := &GridLevel{
		Z: []float64{0, 1000, 2000, 3000, 4000},
		Y: []float64{0, 2000, 4000, 6000},
		X: []float64{0, 2000, 4000, 6000},
	}
	c := l.coarsen()
	nz, ny, nx := c.Shape()
	// The trailing odd Z coordinate is dropped.
	if nz != 2 || ny != 2 || nx != 2 {
		t.Fatalf("coarse shape: got (%d, %d, %d), want (2, 2, 2)", nz, ny, nx)
	}
	if c.Z[0] != 500 || c.Z[1] != 2500 {
		t.Errorf("coarse z: got %v, want [500 2500]", c.Z)
	}
	if c.X[0] != 1000 || c.X[1] != 5000 {
		t.Errorf("coarse x: got %v, want [1000 5000]", c.X)
	}
}

// A shallow grid coarsens to a single vertical node; Spacing must not
// index past the lone coordinate.
func TestGridLevelSpacingSingleNode(t *testing.T) {
	l := &GridLevel{
		Z: []float64{0, 1000, 2000},
		Y: []float64{0, 2000, 4000, 6000, 8000},
		X: []float64{0, 2000, 4000, 6000, 8000},
	}
	c := l.coarsen()
	if nz, _, _ := c.Shape(); nz != 1 {
		t.Fatalf("coarse nz: got %d, want 1", nz)
	}
	dz, dy, dx := c.Spacing()
	if dz != 1 || dy != 4000 || dx != 4000 {
		t.Errorf("spacing: got (%g, %g, %g), want (1, 4000, 4000)", dz, dy, dx)
	}
}
