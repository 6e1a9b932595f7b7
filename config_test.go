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

func TestCoefficientsValid(t *testing.T) {
	c := DefaultCoefficients()
	if err := c.Valid(0); err != nil {
		t.Errorf("default coefficients: %v", err)
	}

	c.Cv = 1
	if err := c.Valid(0); err == nil {
		t.Error("expected an error for Cv without storm motion")
	}
	c.Ut, c.Vt = 3, -1
	if err := c.Valid(0); err != nil {
		t.Errorf("Cv with storm motion: %v", err)
	}

	c = DefaultCoefficients()
	c.Cmod = 1
	if err := c.Valid(0); err == nil {
		t.Error("expected an error for Cmod without model fields")
	}
	if err := c.Valid(1); err != nil {
		t.Errorf("Cmod with a model field: %v", err)
	}
}

func TestSoundingInterpolateTo(t *testing.T) {
	s := &Sounding{
		Z: []float64{0, 1000, 2000},
		U: []float64{2, 4, 8},
		V: []float64{-1, 1, 1},
	}
	u, v := s.interpolateTo([]float64{500, 1000, 1500, 3000})
	wantU := []float64{3, 4, 6}
	wantV := []float64{0, 1, 1}
	for i := range wantU {
		if different(u[i], wantU[i], testTolerance) || different(v[i], wantV[i], testTolerance) {
			t.Errorf("level %d: got (%g, %g), want (%g, %g)", i, u[i], v[i], wantU[i], wantV[i])
		}
	}
	// Levels above the sounding top are unavailable rather than
	// extrapolated.
	if !math.IsNaN(u[3]) || !math.IsNaN(v[3]) {
		t.Errorf("level above the sounding: got (%g, %g), want NaN", u[3], v[3])
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.VelocityField != "corrected_velocity" {
		t.Errorf("velocity field: got %q", opts.VelocityField)
	}
	if opts.MaxIterations != 1300 {
		t.Errorf("iteration budget: got %d, want 1300", opts.MaxIterations)
	}
	if opts.MinBCA != 30 || opts.MaxBCA != 150 {
		t.Errorf("BCA bounds: got (%g, %g), want (30, 150)", opts.MinBCA, opts.MaxBCA)
	}
	if opts.MaskOutsideCoverage || !opts.MaskWOutsideCoverage {
		t.Error("default masking should blank only w outside coverage")
	}
}
