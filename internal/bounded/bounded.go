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

// Package bounded minimizes differentiable functions subject to a
// uniform box constraint, by projecting the iterates of a
// limited-memory quasi-Newton method onto the feasible box.
package bounded

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// A Problem is a differentiable objective. Grad stores the gradient at
// x into grad.
type Problem struct {
	Func func(x []float64) float64
	Grad func(grad, x []float64)
}

// A Result is the outcome of a minimization. The solver's termination
// status is reported but the minimizer X is always usable, converged
// or not.
type Result struct {
	X      []float64
	F      float64
	Status optimize.Status
}

// Minimize minimizes p subject to lower ≤ x ≤ upper component-wise,
// starting from x0, using L-BFGS with projection of the iterates onto
// the box. It stops when the projected gradient's infinity norm falls
// below tol or after maxIterations major iterations. NaN gradient
// components are treated as zero so that masked cells don't poison
// the line search.
func Minimize(p Problem, x0 []float64, lower, upper float64, maxIterations int, tol float64) (*Result, error) {
	if lower >= upper {
		return nil, fmt.Errorf("bounded: lower bound %g is not below upper bound %g", lower, upper)
	}
	clamp := func(x []float64) []float64 {
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = math.Max(lower, math.Min(upper, v))
		}
		return out
	}

	prob := optimize.Problem{
		Func: func(x []float64) float64 {
			return p.Func(clamp(x))
		},
		Grad: func(grad, x []float64) {
			xc := clamp(x)
			p.Grad(grad, xc)
			for i := range grad {
				if math.IsNaN(grad[i]) {
					grad[i] = 0
				}
				// Project out components that would push the iterate
				// past an active bound.
				if (x[i] <= lower && grad[i] > 0) || (x[i] >= upper && grad[i] < 0) {
					grad[i] = 0
				}
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   maxIterations,
		GradientThreshold: tol,
	}
	result, err := optimize.Minimize(prob, clamp(x0), settings, &optimize.LBFGS{})
	if result == nil {
		return nil, fmt.Errorf("bounded: %v", err)
	}
	return &Result{
		X:      clamp(result.X),
		F:      result.F,
		Status: result.Status,
	}, err
}
