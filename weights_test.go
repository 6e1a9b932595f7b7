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

// obsWithVr builds an observation set whose radial velocity field is
// vr everywhere.
func obsWithVr(g *Grid, vr float64) *ObservationSet {
	return &ObservationSet{Vr: constField(g, vr)}
}

func TestBuildWeightsSingleRadar(t *testing.T) {
	g := testGrid(35, -98)
	o := obsWithVr(g, 3)
	o.Vr.Set(math.NaN(), 1, 2, 3)
	w := buildWeights([]*ObservationSet{o}, nil, 0, DefaultOptions())

	if len(w.Obs) != 1 {
		t.Fatalf("got %d observation weight arrays, want 1", len(w.Obs))
	}
	for k := 0; k < 4; k++ {
		for j := 0; j < 6; j++ {
			for i := 0; i < 6; i++ {
				want := 1.
				if k == 1 && j == 2 && i == 3 {
					want = 0
				}
				if got := w.Obs[0].Get(k, j, i); got != want {
					t.Fatalf("single-radar weight at (%d, %d, %d): got %g, want %g", k, j, i, got, want)
				}
				// The background takes over exactly where no radar sees.
				if got := w.Background.Get(k, j, i); got != 1-want {
					t.Fatalf("background weight at (%d, %d, %d): got %g, want %g", k, j, i, got, 1-want)
				}
			}
		}
	}
}

func TestBuildWeightsTwoRadars(t *testing.T) {
	g := testGrid(35, -98)
	o1 := obsWithVr(g, 3)
	o2 := obsWithVr(g, -2)
	o2.Vr.Set(math.NaN(), 0, 0, 0)

	// A beam-crossing angle of 90° everywhere puts every cell inside
	// the default [30°, 150°] coverage bounds.
	bca := sparse.ZerosDense(6, 6)
	for i := range bca.Elements {
		bca.Elements[i] = math.Pi / 2
	}
	bcas := [][]*sparse.DenseArray{{nil, bca}, {nil, nil}}

	w := buildWeights([]*ObservationSet{o1, o2}, bcas, 0, DefaultOptions())
	for r, wr := range w.Obs {
		for _, v := range wr.Elements {
			if v != 0 && v != 1 {
				t.Fatalf("radar %d weight %g is not clipped to {0, 1}", r, v)
			}
		}
	}
	// Radar 2 is masked at one cell; radar 1 still covers it.
	if got := w.Obs[1].Get(0, 0, 0); got != 0 {
		t.Errorf("masked cell weight: got %g, want 0", got)
	}
	if got := w.Obs[0].Get(0, 0, 0); got != 1 {
		t.Errorf("covered cell weight: got %g, want 1", got)
	}
	// Some radar sees every cell, so the background is off everywhere.
	for _, v := range w.Background.Elements {
		if v != 0 {
			t.Fatalf("background weight %g where observations exist", v)
		}
	}
}

func TestBuildWeightsBCABounds(t *testing.T) {
	g := testGrid(35, -98)
	o1 := obsWithVr(g, 3)
	o2 := obsWithVr(g, -2)

	// Beams that cross at 10° are nearly parallel; no cell counts as
	// dual-Doppler coverage, so the background takes over everywhere.
	bca := sparse.ZerosDense(6, 6)
	for i := range bca.Elements {
		bca.Elements[i] = 10 * math.Pi / 180
	}
	bcas := [][]*sparse.DenseArray{{nil, bca}, {nil, nil}}

	w := buildWeights([]*ObservationSet{o1, o2}, bcas, 0, DefaultOptions())
	for r, wr := range w.Obs {
		for _, v := range wr.Elements {
			if v != 0 {
				t.Fatalf("radar %d has weight %g despite a %g° crossing angle", r, v, 10.)
			}
		}
	}
	for _, v := range w.Background.Elements {
		if v != 1 {
			t.Fatalf("background weight %g without coverage, want 1", v)
		}
	}
}

func TestBuildWeightsModel(t *testing.T) {
	g := testGrid(35, -98)
	o1 := obsWithVr(g, 3)
	o2 := obsWithVr(g, -2)
	bca := sparse.ZerosDense(6, 6)
	for i := range bca.Elements {
		bca.Elements[i] = math.Pi / 2
	}
	bcas := [][]*sparse.DenseArray{{nil, bca}, {nil, nil}}

	w := buildWeights([]*ObservationSet{o1, o2}, bcas, 1, DefaultOptions())
	if len(w.Model) != 1 {
		t.Fatalf("got %d model weight arrays, want 1", len(w.Model))
	}
	// Full two-radar coverage everywhere: the model fades to
	// 1 − 1/(nRadars+1) = 2/3.
	for _, v := range w.Model[0].Elements {
		if different(v, 2./3., testTolerance) {
			t.Fatalf("model weight under full coverage: got %g, want 2/3", v)
		}
	}
}

func TestBuildWeightsOverrides(t *testing.T) {
	g := testGrid(35, -98)
	o := obsWithVr(g, 3)
	opts := DefaultOptions()
	override := constField(g, 0.25)
	opts.ObsWeights = []*sparse.DenseArray{override}
	opts.BackgroundWeights = constField(g, 0.5)

	w := buildWeights([]*ObservationSet{o}, nil, 0, opts)
	if w.Obs[0] != override {
		t.Error("explicit observation weights were not used verbatim")
	}
	if w.Background.Get(0, 0, 0) != 0.5 {
		t.Error("explicit background weights were not used verbatim")
	}
}

func TestWeightSetRestrict(t *testing.T) {
	g := testGrid(35, -98)
	o := obsWithVr(g, 3)
	w := buildWeights([]*ObservationSet{o}, nil, 0, DefaultOptions())
	fine := newGridLevel(g)
	coarse := fine.coarsen()
	wc := w.restrict(fine, coarse)
	nz, ny, nx := coarse.Shape()
	if !shapeEqual(wc.Obs[0].Shape, []int{nz, ny, nx}) {
		t.Errorf("restricted weight shape: got %v, want [%d %d %d]", wc.Obs[0].Shape, nz, ny, nx)
	}
	for _, v := range wc.Obs[0].Elements {
		if different(v, 1, testTolerance) {
			t.Fatalf("restricted constant weight: got %g, want 1", v)
		}
	}
}
