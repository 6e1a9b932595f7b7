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
	"log"
	"math"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/multidop/internal/bounded"
	"gonum.org/v1/gonum/floats"
)

// Multigrid solver tuning. These are fixed design parameters, not
// derived quantities.
const (
	// relaxationSteps is the number of steepest-descent sweeps on the
	// fine grid per multigrid cycle; relaxationStepSize is their step
	// size.
	relaxationSteps    = 5
	relaxationStepSize = 1.0

	// coarseResidualScale down-weights the residual target relative to
	// the raw magnitude of the physical cost in the coarse solve.
	coarseResidualScale = 0.001

	// coarseWindBound is the box bound [m/s] on each wind component in
	// the coarse solve.
	coarseWindBound = 5.0

	// iterationsPerCycle is how much of the outer iteration budget one
	// cycle consumes, reflecting the cost of its coarse solve.
	iterationsPerCycle = 50
)

// Retrieve reconstructs the three-dimensional wind field that best
// fits the radial-velocity observations in grids, starting the
// optimization from the initial guess (uInit, vInit, wInit). All grids
// must share the analysis grid coordinate system of grids[0]. It
// returns a copy of the input grids with retrieved u, v, and w fields
// attached; every output grid carries identical copies of the same
// retrieved field.
func Retrieve(grids []*Grid, uInit, vInit, wInit *sparse.DenseArray, coeff Coefficients, opts *Options) ([]*Grid, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := coeff.Valid(len(opts.ModelFieldNames)); err != nil {
		return nil, err
	}
	if err := checkConformance(grids); err != nil {
		return nil, err
	}
	// The background constraint needs a sounding to constrain toward.
	if opts.Background == nil {
		coeff.Cb = 0
	}

	fine := newGridLevel(grids[0])
	coarse := fine.coarsen()

	obs := make([]*ObservationSet, len(grids))
	for i, g := range grids {
		o, err := newObservationSet(g, opts)
		if err != nil {
			return nil, err
		}
		obs[i] = o
	}

	bcas, err := pairwiseBCA(grids)
	if err != nil {
		return nil, err
	}
	weights := buildWeights(obs, bcas, len(opts.ModelFieldNames), opts)

	models, err := readModelFields(grids[0], opts.ModelFieldNames)
	if err != nil {
		return nil, err
	}

	obsCoarse := make([]*ObservationSet, len(obs))
	for i, o := range obs {
		obsCoarse[i] = o.restrict(fine, coarse)
	}
	weightsCoarse := weights.restrict(fine, coarse)
	modelsCoarse := make([]*ModelField, len(models))
	for i, m := range models {
		modelsCoarse[i] = m.restrict(fine, coarse)
	}

	wf, err := windFieldFromComponents(fine, uInit, vInit, wInit)
	if err != nil {
		return nil, err
	}

	s := &multigridSolver{
		fine:      fine,
		coarse:    coarse,
		fineCtx:   newCostContext(fine, obs, weights, models, opts.Background, coeff),
		coarseCtx: newCostContext(coarse, obsCoarse, weightsCoarse, modelsCoarse, opts.Background, coeff),
		opts:      opts,
	}
	log.Printf("multidop: starting solver with %d radars, fine shape %v, coarse shape %v",
		len(grids), grids[0].Shape(), shapeOf(coarse))
	s.run(wf)

	return assembleResults(grids, wf, weights, opts), nil
}

func shapeOf(l *GridLevel) []int {
	nz, ny, nx := l.Shape()
	return []int{nz, ny, nx}
}

// newObservationSet annotates grid g with viewing angles and fall
// speed and collects its observation arrays, converting angles to
// radians.
func newObservationSet(g *Grid, opts *Options) (*ObservationSet, error) {
	vt, err := CalculateFallSpeed(g, opts.ReflectivityField)
	if err != nil {
		return nil, err
	}
	if err := g.AddAzimuthField(); err != nil {
		return nil, err
	}
	if err := g.AddElevationField(); err != nil {
		return nil, err
	}
	vr, err := g.Field(opts.VelocityField)
	if err != nil {
		return nil, err
	}
	az, err := g.Field(AzimuthFieldName)
	if err != nil {
		return nil, err
	}
	el, err := g.Field(ElevationFieldName)
	if err != nil {
		return nil, err
	}
	return &ObservationSet{
		Vr:        vr.Data.Copy(),
		FallSpeed: vt,
		Azimuth:   toRadians(az.Data),
		Elevation: toRadians(el.Data),
	}, nil
}

func toRadians(degrees *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(degrees.Shape...)
	for i, v := range degrees.Elements {
		out.Elements[i] = v * math.Pi / 180
	}
	return out
}

// pairwiseBCA computes the beam-crossing-angle field for every
// unordered pair of radars. bcas[i][j] is only populated for i < j.
func pairwiseBCA(grids []*Grid) ([][]*sparse.DenseArray, error) {
	bcas := make([][]*sparse.DenseArray, len(grids))
	for i := range grids {
		bcas[i] = make([]*sparse.DenseArray, len(grids))
		for j := i + 1; j < len(grids); j++ {
			b, err := beamCrossingAngle(grids[i], grids[j])
			if err != nil {
				return nil, fmt.Errorf("multidop: beam-crossing angle for radars %d and %d: %v", i, j, err)
			}
			bcas[i][j] = b
		}
	}
	return bcas, nil
}

// readModelFields collects the named models' wind fields from g.
func readModelFields(g *Grid, names []string) ([]*ModelField, error) {
	models := make([]*ModelField, 0, len(names))
	for _, name := range names {
		u, err := g.Field("U_" + name)
		if err != nil {
			return nil, err
		}
		v, err := g.Field("V_" + name)
		if err != nil {
			return nil, err
		}
		w, err := g.Field("W_" + name)
		if err != nil {
			return nil, err
		}
		models = append(models, &ModelField{
			Name: name,
			U:    u.Data.Copy(),
			V:    v.Data.Copy(),
			W:    w.Data.Copy(),
		})
	}
	return models, nil
}

// multigridSolver drives the two-level cycle: fine-grid relaxation,
// restriction of the state and residual to the coarse grid, a
// bound-constrained residual-correction solve there, and prolongation
// of the coarse correction back onto the fine grid.
type multigridSolver struct {
	fine, coarse *GridLevel
	fineCtx      *costContext
	coarseCtx    *costContext
	opts         *Options
}

// run iterates multigrid cycles on wf in place until the iteration
// budget is exhausted. There is no convergence test on the fine field;
// the coarse solver's internal tolerance is the only convergence
// signal, and its termination status never stops the outer loop.
func (s *multigridSolver) run(wf *WindField) {
	for iterations := 0; iterations < s.opts.MaxIterations; iterations += iterationsPerCycle {
		// Relaxation: a few steepest-descent sweeps knock down the
		// high-frequency error that the coarse grid can't represent.
		// The last gradient is kept as the residual target for the
		// coarse solve.
		x := wf.Vector()
		var residualFine []float64
		for i := 0; i < relaxationSteps; i++ {
			residualFine = s.fineCtx.gradient(x)
			floats.AddScaled(x, -relaxationStepSize, residualFine)
		}

		windsCoarse, residual := s.restrictState(wf, residualFine)

		adapter := &coarseAdapter{ctx: s.coarseCtx, residual: residual}
		result, err := bounded.Minimize(
			bounded.Problem{Func: adapter.cost, Grad: adapter.grad},
			windsCoarse, -coarseWindBound, coarseWindBound,
			s.opts.CoarseMaxIterations, s.opts.CoarseTolerance)
		if err != nil {
			// Deliberate policy: a poorly converged cycle is kept and
			// the iteration continues on the fixed budget.
			log.Printf("multidop: coarse solve at iteration %d: %v", iterations, err)
		}
		if result == nil {
			continue
		}
		log.Printf("multidop: iteration %d coarse solve status: %v", iterations, result.Status)

		if s.opts.DiagnosticInterval > 0 && iterations%s.opts.DiagnosticInterval == 0 {
			g := make([]float64, len(windsCoarse))
			adapter.grad(g, windsCoarse)
			log.Printf("multidop: iteration %d |cost - residual| = %g, gradient norm = %g",
				iterations, adapter.cost(windsCoarse), floats.Norm(g, 2))
		}

		s.prolongCorrection(wf, result.X, windsCoarse)
	}
}

// restrictState resamples the current wind estimate and fine residual
// onto the coarse grid, returning both as flattened vectors ordered
// per component.
func (s *multigridSolver) restrictState(wf *WindField, residualFine []float64) (windsCoarse, residual []float64) {
	nzc, nyc, nxc := s.coarse.Shape()
	nc := nzc * nyc * nxc
	windsCoarse = make([]float64, nComp*nc)
	residual = make([]float64, nComp*nc)
	nf := len(residualFine) / nComp
	nzf, nyf, nxf := s.fine.Shape()
	for c := 0; c < nComp; c++ {
		wc := resample(s.fine, wf.Component(c), s.coarse)
		copy(windsCoarse[c*nc:(c+1)*nc], wc.Elements)

		rf := sparse.ZerosDense(nzf, nyf, nxf)
		copy(rf.Elements, residualFine[c*nf:(c+1)*nf])
		rc := resample(s.fine, rf, s.coarse)
		copy(residual[c*nc:(c+1)*nc], rc.Elements)
	}
	return windsCoarse, residual
}

// prolongCorrection interpolates the coarse correction (solution minus
// coarse input) back onto the fine grid and adds it to the fine wind
// field. Fine cells outside the coarse grid's bounds receive no
// correction.
func (s *multigridSolver) prolongCorrection(wf *WindField, solution, input []float64) {
	nzc, nyc, nxc := s.coarse.Shape()
	nc := nzc * nyc * nxc
	for c := 0; c < nComp; c++ {
		delta := sparse.ZerosDense(nzc, nyc, nxc)
		for i := 0; i < nc; i++ {
			delta.Elements[i] = solution[c*nc+i] - input[c*nc+i]
		}
		wf.AddCorrection(c, resample(s.coarse, delta, s.fine))
	}
}

// coarseAdapter turns the physical cost function into the coarse
// residual-matching subproblem: instead of minimizing the raw cost, it
// minimizes the mismatch between the cost and a scaled copy of the
// fine-grid residual, so the coarse solve targets exactly the error
// the fine relaxation couldn't remove.
type coarseAdapter struct {
	ctx      *costContext
	residual []float64
}

// cost is the Euclidean norm of the difference between the physical
// cost and the scaled residual, restricted to entries where both the
// wind and residual values are finite.
func (a *coarseAdapter) cost(x []float64) float64 {
	J := a.ctx.cost(x)
	var sum float64
	for m, r := range a.residual {
		if math.IsNaN(x[m]) || math.IsInf(x[m], 0) || math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		d := J - coarseResidualScale*r
		sum += d * d
	}
	return math.Sqrt(sum)
}

// grad is the matching gradient, the physical cost gradient minus the
// scaled residual, with no finiteness restriction.
func (a *coarseAdapter) grad(grad, x []float64) {
	g := a.ctx.gradient(x)
	for m := range grad {
		grad[m] = g[m] - coarseResidualScale*a.residual[m]
	}
}

// assembleResults reshapes the converged wind vector into u/v/w
// fields, applies coverage masking, and attaches identical copies of
// the fields to a copy of every input grid.
func assembleResults(grids []*Grid, wf *WindField, weights *WeightSet, opts *Options) []*Grid {
	u := wf.Component(compU)
	v := wf.Component(compV)
	w := wf.Component(compW)

	// Combined influence of all radars and models on each cell; cells
	// below 1 were unconstrained by any observation or model.
	combined := totalCoverage(weights.Obs)
	for _, wm := range weights.Model {
		for i, val := range wm.Elements {
			if !math.IsNaN(val) {
				combined.Elements[i] += val
			}
		}
	}
	if opts.MaskOutsideCoverage {
		maskBelow(u, combined, 1)
		maskBelow(v, combined, 1)
		maskBelow(w, combined, 1)
	}
	if opts.MaskWOutsideCoverage {
		maskBelow(w, combined, 1)
	}

	fields := map[string]*Field{
		UFieldName: {
			Data:         u,
			StandardName: "u_wind",
			LongName:     "eastward component of wind velocity",
			Units:        "m/s",
			MinBCA:       opts.MinBCA,
			MaxBCA:       opts.MaxBCA,
		},
		VFieldName: {
			Data:         v,
			StandardName: "v_wind",
			LongName:     "northward component of wind velocity",
			Units:        "m/s",
			MinBCA:       opts.MinBCA,
			MaxBCA:       opts.MaxBCA,
		},
		WFieldName: {
			Data:         w,
			StandardName: "w_wind",
			LongName:     "vertical component of wind velocity",
			Units:        "m/s",
			MinBCA:       opts.MinBCA,
			MaxBCA:       opts.MaxBCA,
		},
	}

	out := make([]*Grid, len(grids))
	for i, g := range grids {
		ng := g.Copy()
		for name, f := range fields {
			ng.AddField(name, f.Copy())
		}
		out[i] = ng
	}
	return out
}

func maskBelow(data, weight *sparse.DenseArray, threshold float64) {
	for i, w := range weight.Elements {
		if math.IsNaN(w) || w < threshold {
			data.Elements[i] = math.NaN()
		}
	}
}
