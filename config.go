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

	"github.com/ctessum/sparse"
)

// Coefficients holds the regularization coefficients of the physical
// cost function. The short names follow the wind-retrieval literature.
// A Coefficients value is immutable for the duration of a retrieval.
type Coefficients struct {
	Co   float64 `desc:"Observation constraint weight"`
	Cm   float64 `desc:"Mass continuity constraint weight"`
	Cx   float64 `desc:"East-West smoothness constraint weight"`
	Cy   float64 `desc:"North-South smoothness constraint weight"`
	Cz   float64 `desc:"Vertical smoothness constraint weight"`
	Cb   float64 `desc:"Background sounding constraint weight"`
	Cv   float64 `desc:"Vertical vorticity constraint weight"`
	Cmod float64 `desc:"Model blending constraint weight"`

	// Ut and Vt are the prescribed storm motion components [m/s],
	// required when the vorticity constraint is enabled. They are NaN
	// when unset.
	Ut, Vt float64

	// UpperBC specifies whether to impose an impermeable upper
	// boundary (w = 0 at the grid top) in addition to the surface.
	UpperBC bool
}

// DefaultCoefficients returns the standard retrieval coefficients:
// observation and mass continuity constraints on, everything else off,
// no prescribed storm motion, impermeable upper boundary.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Co:      1.0,
		Cm:      1500.0,
		Ut:      math.NaN(),
		Vt:      math.NaN(),
		UpperBC: true,
	}
}

// Valid checks the coefficients against the inputs they will be used
// with.
func (c Coefficients) Valid(nModelFields int) error {
	if c.Cv != 0 && (math.IsNaN(c.Ut) || math.IsNaN(c.Vt)) {
		return fmt.Errorf("multidop: Ut and Vt must be specified when the " +
			"vertical vorticity constraint is enabled")
	}
	if c.Cmod != 0 && nModelFields == 0 {
		return fmt.Errorf("multidop: Cmod must be zero when no model fields are specified")
	}
	return nil
}

// A Sounding is a vertical profile of horizontal background winds,
// typically from a rawinsonde, used as a soft constraint where radar
// coverage is poor. Z is height [m] and must be sorted ascending.
type Sounding struct {
	Z, U, V []float64
}

// interpolateTo linearly interpolates the sounding onto the given grid
// levels. Levels outside the sounding's height range hold NaN.
func (s *Sounding) interpolateTo(levels []float64) (u, v []float64) {
	u = make([]float64, len(levels))
	v = make([]float64, len(levels))
	for k, z := range levels {
		i, frac, ok := bracket(s.Z, z)
		if !ok {
			u[k] = math.NaN()
			v[k] = math.NaN()
			continue
		}
		if i+1 >= len(s.Z) {
			u[k] = s.U[i]
			v[k] = s.V[i]
			continue
		}
		u[k] = s.U[i] + frac*(s.U[i+1]-s.U[i])
		v[k] = s.V[i] + frac*(s.V[i+1]-s.V[i])
	}
	return u, v
}

// Options holds the solver tuning parameters and input/output naming
// for a retrieval.
type Options struct {
	// VelocityField and ReflectivityField are the names of the radial
	// velocity and reflectivity fields in the input grids.
	VelocityField     string
	ReflectivityField string

	// MaxIterations is the outer iteration budget. Each multigrid
	// cycle consumes 50 iterations, reflecting the cost of its coarse
	// solve.
	MaxIterations int

	// CoarseMaxIterations and CoarseTolerance bound the inner
	// bound-constrained solve on the coarse grid.
	CoarseMaxIterations int
	CoarseTolerance     float64

	// MinBCA and MaxBCA are the beam-crossing-angle bounds [degrees]
	// within which a pair of radars counts as dual-Doppler coverage.
	MinBCA, MaxBCA float64

	// MaskOutsideCoverage masks retrieved u and v wherever no radar or
	// model influenced the solution. MaskWOutsideCoverage does the
	// same for w independently.
	MaskOutsideCoverage  bool
	MaskWOutsideCoverage bool

	// Background is an optional background wind sounding. The
	// background constraint is disabled when it is nil.
	Background *Sounding

	// ModelFieldNames lists the models whose wind fields are blended
	// into the retrieval. For each name the input grids must carry
	// fields U_name, V_name, and W_name.
	ModelFieldNames []string

	// Explicit weight overrides. When non-nil they replace the
	// computed observation weights (one array per radar), background
	// weight, and model weights (one array per model field) verbatim.
	ObsWeights        []*sparse.DenseArray
	BackgroundWeights *sparse.DenseArray
	ModelWeights      []*sparse.DenseArray

	// DiagnosticInterval is the outer-iteration interval at which the
	// coarse cost and gradient norm are logged. Zero disables the
	// diagnostics; they never affect convergence.
	DiagnosticInterval int
}

// DefaultOptions returns the standard solver configuration.
func DefaultOptions() *Options {
	return &Options{
		VelocityField:        "corrected_velocity",
		ReflectivityField:    "reflectivity",
		MaxIterations:        1300,
		CoarseMaxIterations:  200,
		CoarseTolerance:      1e-3,
		MinBCA:               30,
		MaxBCA:               150,
		MaskWOutsideCoverage: true,
		DiagnosticInterval:   50,
	}
}
