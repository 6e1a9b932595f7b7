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
	"github.com/ctessum/sparse"
)

// coarsen builds the half-resolution coordinate arrays for the coarse
// level of the multigrid hierarchy. Each coarse coordinate is the
// midpoint of two adjacent fine coordinates, so the coarse level has
// about half the nodes of l per axis. Trailing odd coordinates are
// dropped.
func (l *GridLevel) coarsen() *GridLevel {
	return &GridLevel{
		Z: midpoints(l.Z),
		Y: midpoints(l.Y),
		X: midpoints(l.X),
	}
}

func midpoints(c []float64) []float64 {
	out := make([]float64, len(c)/2)
	for i := range out {
		out[i] = (c[2*i] + c[2*i+1]) / 2
	}
	return out
}

// An ObservationSet holds one radar's observation arrays at one grid
// level: radial velocity [m/s], terminal fall speed [m/s], and viewing
// azimuth and elevation [radians]. Cells without a valid observation
// hold NaN. ObservationSets are immutable once built.
type ObservationSet struct {
	Vr        *sparse.DenseArray
	FallSpeed *sparse.DenseArray
	Azimuth   *sparse.DenseArray
	Elevation *sparse.DenseArray
}

// restrict resamples the observation set onto grid level dst.
func (o *ObservationSet) restrict(src, dst *GridLevel) *ObservationSet {
	return &ObservationSet{
		Vr:        resample(src, o.Vr, dst),
		FallSpeed: resample(src, o.FallSpeed, dst),
		Azimuth:   resample(src, o.Azimuth, dst),
		Elevation: resample(src, o.Elevation, dst),
	}
}

// A ModelField holds one numerical model's wind components at one grid
// level, used as a soft constraint on the retrieval.
type ModelField struct {
	Name    string
	U, V, W *sparse.DenseArray
}

// restrict resamples the model field onto grid level dst.
func (m *ModelField) restrict(src, dst *GridLevel) *ModelField {
	return &ModelField{
		Name: m.Name,
		U:    resample(src, m.U, dst),
		V:    resample(src, m.V, dst),
		W:    resample(src, m.W, dst),
	}
}
