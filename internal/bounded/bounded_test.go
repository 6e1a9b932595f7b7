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

package bounded

import (
	"math"
	"testing"
)

// quadratic is ½‖x − center‖² with its unconstrained minimum at
// center.
func quadratic(center []float64) Problem {
	return Problem{
		Func: func(x []float64) float64 {
			var s float64
			for i, v := range x {
				d := v - center[i]
				s += d * d / 2
			}
			return s
		},
		Grad: func(grad, x []float64) {
			for i, v := range x {
				grad[i] = v - center[i]
			}
		},
	}
}

func TestMinimizeInterior(t *testing.T) {
	p := quadratic([]float64{3, -2, 0.5})
	result, err := Minimize(p, []float64{0, 0, 0}, -5, 5, 100, 1e-8)
	if result == nil {
		t.Fatal(err)
	}
	want := []float64{3, -2, 0.5}
	for i, v := range result.X {
		if math.Abs(v-want[i]) > 1e-6 {
			t.Errorf("x[%d]: got %g, want %g", i, v, want[i])
		}
	}
}

func TestMinimizeActiveBound(t *testing.T) {
	// The unconstrained minimum at 3 is outside the box [-1, 1], so
	// the solution sits on the bound. The projected gradient there
	// never reaches the tolerance; the iteration limit ends the solve
	// and the result must still be usable.
	p := quadratic([]float64{3})
	result, _ := Minimize(p, []float64{0}, -1, 1, 100, 1e-8)
	if result == nil {
		t.Fatal("no result returned")
	}
	if math.Abs(result.X[0]-1) > 1e-6 {
		t.Errorf("bounded minimum: got %g, want 1", result.X[0])
	}
}

func TestMinimizeClampsStart(t *testing.T) {
	p := quadratic([]float64{0})
	result, _ := Minimize(p, []float64{100}, -1, 1, 100, 1e-8)
	if result == nil {
		t.Fatal("no result returned")
	}
	if result.X[0] < -1 || result.X[0] > 1 {
		t.Errorf("result %g escaped the box [-1, 1]", result.X[0])
	}
}

func TestMinimizeNaNGradient(t *testing.T) {
	p := Problem{
		Func: func(x []float64) float64 {
			return (x[0] - 1) * (x[0] - 1)
		},
		Grad: func(grad, x []float64) {
			grad[0] = 2 * (x[0] - 1)
			grad[1] = math.NaN() // a masked cell
		},
	}
	result, _ := Minimize(p, []float64{0, 0}, -5, 5, 100, 1e-8)
	if result == nil {
		t.Fatal("no result returned")
	}
	if math.Abs(result.X[0]-1) > 1e-6 {
		t.Errorf("x[0]: got %g, want 1", result.X[0])
	}
	if math.IsNaN(result.X[1]) {
		t.Error("NaN gradient component corrupted the iterate")
	}
}

func TestMinimizeBadBounds(t *testing.T) {
	p := quadratic([]float64{0})
	if _, err := Minimize(p, []float64{0}, 1, -1, 100, 1e-8); err == nil {
		t.Error("expected an error for inverted bounds")
	}
}
