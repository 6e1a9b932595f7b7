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

// Package multidop retrieves three-dimensional wind fields from
// radial-velocity observations taken by one or more scanning Doppler
// radars that have been mapped onto a common Cartesian analysis grid.
// The retrieval minimizes a variational cost function using a two-level
// multigrid scheme: gradient-descent relaxation on the full-resolution
// grid alternating with a bound-constrained residual-correction solve
// on a half-resolution grid.
package multidop

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// Version gives the version number of this version of MultiDop.
const Version = "0.1.0"

// Names of the wind fields that the retrieval attaches to its
// output grids.
const (
	UFieldName = "u"
	VFieldName = "v"
	WFieldName = "w"
)

// Names of the viewing-angle fields attached by AddAzimuthField and
// AddElevationField.
const (
	AzimuthFieldName   = "AZ"
	ElevationFieldName = "EL"
)

// A Field is one gridded data variable with shape [nz, ny, nx].
// Missing or invalid cells hold NaN.
type Field struct {
	Data *sparse.DenseArray

	StandardName string
	LongName     string
	Units        string

	// MinBCA and MaxBCA record the beam-crossing-angle bounds [degrees]
	// that were used when this field was retrieved. They are only set
	// on retrieved wind fields.
	MinBCA, MaxBCA float64
}

// Copy returns a deep copy of the receiver.
func (f *Field) Copy() *Field {
	o := *f
	o.Data = f.Data.Copy()
	return &o
}

// A Grid is one radar's observations mapped onto a Cartesian analysis
// grid, along with the metadata needed to locate the radar within that
// grid. X, Y, and Z are cell-center coordinates [m] relative to the
// grid origin. All fields share the shape [len(Z), len(Y), len(X)].
type Grid struct {
	X, Y, Z []float64

	OriginLatitude  float64
	OriginLongitude float64

	RadarLatitude  float64
	RadarLongitude float64

	// Projection is the proj4 specification of the horizontal
	// coordinate system that X and Y are measured in.
	Projection string

	Fields map[string]*Field
}

// Shape returns the [nz, ny, nx] shape of the grid.
func (g *Grid) Shape() []int {
	return []int{len(g.Z), len(g.Y), len(g.X)}
}

// Field returns the field with the given name, or an error if the grid
// doesn't have it.
func (g *Grid) Field(name string) (*Field, error) {
	f, ok := g.Fields[name]
	if !ok {
		return nil, fmt.Errorf("multidop: grid is missing field %s", name)
	}
	if want, have := g.Shape(), f.Data.Shape; !shapeEqual(want, have) {
		return nil, fmt.Errorf("multidop: field %s has shape %v; the grid requires %v",
			name, have, want)
	}
	return f, nil
}

// AddField attaches f to the grid under the given name, replacing any
// existing field with that name.
func (g *Grid) AddField(name string, f *Field) {
	if g.Fields == nil {
		g.Fields = make(map[string]*Field)
	}
	g.Fields[name] = f
}

// Copy returns a deep copy of the receiver.
func (g *Grid) Copy() *Grid {
	o := *g
	o.X = append([]float64(nil), g.X...)
	o.Y = append([]float64(nil), g.Y...)
	o.Z = append([]float64(nil), g.Z...)
	o.Fields = make(map[string]*Field, len(g.Fields))
	for name, f := range g.Fields {
		o.Fields[name] = f.Copy()
	}
	return &o
}

// A GridLevel holds the coordinate arrays of one resolution level of
// the analysis grid.
type GridLevel struct {
	Z, Y, X []float64
}

func newGridLevel(g *Grid) *GridLevel {
	return &GridLevel{
		Z: append([]float64(nil), g.Z...),
		Y: append([]float64(nil), g.Y...),
		X: append([]float64(nil), g.X...),
	}
}

// Shape returns the number of grid cells in each dimension.
func (l *GridLevel) Shape() (nz, ny, nx int) {
	return len(l.Z), len(l.Y), len(l.X)
}

// N returns the total number of grid cells at this level.
func (l *GridLevel) N() int {
	return len(l.Z) * len(l.Y) * len(l.X)
}

// Spacing returns the grid spacing in each dimension, assuming the
// coordinates are uniformly spaced. A single-node axis reports a
// spacing of 1; no difference is ever taken along such an axis.
func (l *GridLevel) Spacing() (dz, dy, dx float64) {
	return axisSpacing(l.Z), axisSpacing(l.Y), axisSpacing(l.X)
}

func axisSpacing(coords []float64) float64 {
	if len(coords) < 2 {
		return 1
	}
	return coords[1] - coords[0]
}

// Indices of the wind components within a WindField.
const (
	compU = iota
	compV
	compW
	nComp
)

// A WindField is the flattened (u, v, w) state vector at one grid
// level. It owns its buffer; all reads and writes of individual
// components go through the component accessors so that no two callers
// ever hold aliasing 3-d views of the same memory.
type WindField struct {
	data       []float64
	nz, ny, nx int
}

func newWindField(l *GridLevel) *WindField {
	nz, ny, nx := l.Shape()
	return &WindField{
		data: make([]float64, nComp*nz*ny*nx),
		nz:   nz, ny: ny, nx: nx,
	}
}

// windFieldFromComponents creates a WindField holding copies of the
// given component arrays.
func windFieldFromComponents(l *GridLevel, u, v, w *sparse.DenseArray) (*WindField, error) {
	wf := newWindField(l)
	n := wf.n()
	for c, a := range []*sparse.DenseArray{u, v, w} {
		if len(a.Elements) != n {
			return nil, fmt.Errorf("multidop: initial wind component %d has %d elements; the grid requires %d",
				c, len(a.Elements), n)
		}
		copy(wf.data[c*n:(c+1)*n], a.Elements)
	}
	return wf, nil
}

// n returns the number of cells in one component.
func (wf *WindField) n() int { return wf.nz * wf.ny * wf.nx }

// Vector returns the owned flattened state vector, ordered u then v
// then w. The caller may mutate it in place.
func (wf *WindField) Vector() []float64 { return wf.data }

// Component copies component c out of the state vector as a 3-d array.
func (wf *WindField) Component(c int) *sparse.DenseArray {
	out := sparse.ZerosDense(wf.nz, wf.ny, wf.nx)
	n := wf.n()
	copy(out.Elements, wf.data[c*n:(c+1)*n])
	return out
}

// AddCorrection adds delta to component c of the state vector in
// place. NaN entries of delta contribute nothing.
func (wf *WindField) AddCorrection(c int, delta *sparse.DenseArray) {
	n := wf.n()
	buf := wf.data[c*n : (c+1)*n]
	for i, d := range delta.Elements {
		if math.IsNaN(d) {
			continue
		}
		buf[i] += d
	}
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}
