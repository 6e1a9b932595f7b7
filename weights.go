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

// A WeightSet holds the per-cell constraint weights at one grid level:
// one observation weight array per radar, a background weight array,
// and one weight array per blended model field. All weights are
// non-negative, and observation weights are zero wherever the
// corresponding observation is masked.
type WeightSet struct {
	Obs        []*sparse.DenseArray
	Background *sparse.DenseArray
	Model      []*sparse.DenseArray
}

// buildWeights computes the observation-availability, background, and
// model weights on the fine grid.
//
// The observation weight for radar r is accumulated as a fold over
// unordered radar pairs: each pair (r, s) contributes 1 to every cell
// where radar r has a valid observation and the pair's beam-crossing
// angle lies within the configured bounds. After the fold the counts
// are clipped to a {0, 1} presence indicator. With a single radar the
// weight is simply the validity mask of its observations.
//
// The background weight is 1 exactly where no radar contributes
// observational coverage, so a retrieval with no valid dual-Doppler
// geometry anywhere degenerates to a pure background fit.
//
// The model weight fades with coverage: 1 − coverage/(nRadars+1),
// where coverage is the accumulated (pre-clip) pair count normalized
// to [0, 1], so a model's influence is maximal where no radar sees and
// shrinks to 1/(nRadars+1) under full coverage.
//
// Explicit weight arrays in opts override the corresponding computed
// weights verbatim.
func buildWeights(obs []*ObservationSet, bcas [][]*sparse.DenseArray, nModels int, opts *Options) *WeightSet {
	nRadars := len(obs)
	shape := obs[0].Vr.Shape
	nz, ny, nx := shape[0], shape[1], shape[2]

	w := &WeightSet{Obs: make([]*sparse.DenseArray, nRadars)}
	for r := range w.Obs {
		w.Obs[r] = sparse.ZerosDense(nz, ny, nx)
	}

	if nRadars == 1 {
		for i, vr := range obs[0].Vr.Elements {
			if !math.IsNaN(vr) {
				w.Obs[0].Elements[i] = 1
			}
		}
	} else {
		minBCA := opts.MinBCA * math.Pi / 180
		maxBCA := opts.MaxBCA * math.Pi / 180
		for r := 0; r < nRadars; r++ {
			for s := r + 1; s < nRadars; s++ {
				accumulatePairCoverage(w.Obs[r], obs[r], bcas[r][s], minBCA, maxBCA)
				accumulatePairCoverage(w.Obs[s], obs[s], bcas[r][s], minBCA, maxBCA)
			}
		}
	}

	coverage := totalCoverage(w.Obs)

	// Clip the accumulated pair counts to a presence indicator.
	for _, wr := range w.Obs {
		for i, v := range wr.Elements {
			if v > 0 {
				wr.Elements[i] = 1
			}
		}
	}

	w.Background = sparse.ZerosDense(nz, ny, nx)
	for i := range w.Background.Elements {
		if coverage.Elements[i] == 0 {
			w.Background.Elements[i] = 1
		}
	}

	if nModels > 0 {
		covMax := 0.
		for _, v := range coverage.Elements {
			covMax = math.Max(covMax, v)
		}
		w.Model = make([]*sparse.DenseArray, nModels)
		for m := range w.Model {
			w.Model[m] = sparse.ZerosDense(nz, ny, nx)
			for i, v := range coverage.Elements {
				grade := 0.
				if covMax > 0 {
					grade = v / covMax
				}
				w.Model[m].Elements[i] = 1 - grade/float64(nRadars+1)
			}
		}
	}

	if opts.ObsWeights != nil {
		w.Obs = opts.ObsWeights
	}
	if opts.BackgroundWeights != nil {
		w.Background = opts.BackgroundWeights
	}
	if opts.ModelWeights != nil {
		w.Model = opts.ModelWeights
	}
	return w
}

// accumulatePairCoverage adds 1 to every cell of wr where o has a
// valid observation and the pair's beam-crossing angle is within
// bounds. The BCA field is two-dimensional; it applies to every
// vertical level.
func accumulatePairCoverage(wr *sparse.DenseArray, o *ObservationSet, bca *sparse.DenseArray, minBCA, maxBCA float64) {
	nz, ny, nx := wr.Shape[0], wr.Shape[1], wr.Shape[2]
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				if math.IsNaN(o.Vr.Get(k, j, i)) {
					continue
				}
				a := bca.Get(j, i)
				if a >= minBCA && a <= maxBCA {
					wr.AddVal(1, k, j, i)
				}
			}
		}
	}
}

// totalCoverage sums the per-radar weight arrays.
func totalCoverage(obs []*sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(obs[0].Shape...)
	for _, wr := range obs {
		for i, v := range wr.Elements {
			out.Elements[i] += v
		}
	}
	return out
}

// restrict resamples the weight set onto grid level dst.
func (w *WeightSet) restrict(src, dst *GridLevel) *WeightSet {
	out := &WeightSet{
		Obs:        make([]*sparse.DenseArray, len(w.Obs)),
		Background: resample(src, w.Background, dst),
	}
	for r, wr := range w.Obs {
		out.Obs[r] = resample(src, wr, dst)
	}
	if w.Model != nil {
		out.Model = make([]*sparse.DenseArray, len(w.Model))
		for m, wm := range w.Model {
			out.Model[m] = resample(src, wm, dst)
		}
	}
	return out
}
