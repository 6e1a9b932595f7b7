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
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// ReadGrid reads a Cartesian radar grid from the NetCDF file at
// filename. Coordinate variables x, y, and z hold the grid point
// locations in meters relative to the grid origin, every other
// variable is read as a [z, y, x] data field, and the radar and
// origin locations come from global attributes.
func ReadGrid(filename string) (*Grid, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("multidop: opening grid file: %v", err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("multidop: reading grid file %s: %v", filename, err)
	}

	g := new(Grid)
	if g.X, err = readCoord(ff, "x"); err != nil {
		return nil, err
	}
	if g.Y, err = readCoord(ff, "y"); err != nil {
		return nil, err
	}
	if g.Z, err = readCoord(ff, "z"); err != nil {
		return nil, err
	}
	if g.OriginLatitude, err = attrFloat(ff, "", "origin_latitude"); err != nil {
		return nil, err
	}
	if g.OriginLongitude, err = attrFloat(ff, "", "origin_longitude"); err != nil {
		return nil, err
	}
	if g.RadarLatitude, err = attrFloat(ff, "", "radar_latitude"); err != nil {
		return nil, err
	}
	if g.RadarLongitude, err = attrFloat(ff, "", "radar_longitude"); err != nil {
		return nil, err
	}
	g.Projection = attrString(ff, "", "projection")

	g.Fields = make(map[string]*Field)
	for _, v := range ff.Header.Variables() {
		if v == "x" || v == "y" || v == "z" {
			continue
		}
		data, err := readField(ff, v, g.Shape())
		if err != nil {
			return nil, err
		}
		field := &Field{
			Data:         data,
			StandardName: attrString(ff, v, "standard_name"),
			LongName:     attrString(ff, v, "long_name"),
			Units:        attrString(ff, v, "units"),
		}
		field.MinBCA, _ = attrFloat(ff, v, "min_bca")
		field.MaxBCA, _ = attrFloat(ff, v, "max_bca")
		g.Fields[v] = field
	}
	return g, nil
}

func readCoord(ff *cdf.File, name string) ([]float64, error) {
	dims := ff.Header.Lengths(name)
	if len(dims) != 1 {
		return nil, fmt.Errorf("multidop: coordinate variable %s missing or not one-dimensional", name)
	}
	r := ff.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("multidop: reading coordinate %s: %v", name, err)
	}
	vals := toFloat64(buf)
	if vals == nil {
		return nil, fmt.Errorf("multidop: coordinate %s has non-numeric type", name)
	}
	return vals, nil
}

func readField(ff *cdf.File, name string, shape []int) (*sparse.DenseArray, error) {
	dims := ff.Header.Lengths(name)
	if len(dims) != 3 {
		return nil, fmt.Errorf("multidop: field %s has %d dimensions, want 3", name, len(dims))
	}
	for i, d := range dims {
		if d != shape[i] {
			return nil, fmt.Errorf("multidop: field %s shape %v doesn't match grid shape %v", name, dims, shape)
		}
	}
	r := ff.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("multidop: reading field %s: %v", name, err)
	}
	vals := toFloat64(buf)
	if vals == nil {
		return nil, fmt.Errorf("multidop: field %s has non-numeric type", name)
	}
	data := sparse.ZerosDense(dims...)
	copy(data.Elements, vals)
	return data, nil
}

func toFloat64(buf interface{}) []float64 {
	switch b := buf.(type) {
	case []float64:
		return b
	case []float32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	case []int32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out
	default:
		return nil
	}
}

func attrFloat(ff *cdf.File, v, name string) (float64, error) {
	a := ff.Header.GetAttribute(v, name)
	if a == nil {
		return 0, fmt.Errorf("multidop: attribute %s missing", name)
	}
	switch a := a.(type) {
	case []float64:
		return a[0], nil
	case []float32:
		return float64(a[0]), nil
	default:
		return 0, fmt.Errorf("multidop: attribute %s has unexpected type %T", name, a)
	}
}

func attrString(ff *cdf.File, v, name string) string {
	a := ff.Header.GetAttribute(v, name)
	if a == nil {
		return ""
	}
	if s, ok := a.(string); ok {
		return s
	}
	return ""
}

// WriteGrid writes g to a NetCDF file at filename in the layout that
// ReadGrid reads.
func WriteGrid(g *Grid, filename string) error {
	shape := g.Shape()
	h := cdf.NewHeader(
		[]string{"z", "y", "x"},
		[]int{shape[0], shape[1], shape[2]})
	h.AddAttribute("", "origin_latitude", []float64{g.OriginLatitude})
	h.AddAttribute("", "origin_longitude", []float64{g.OriginLongitude})
	h.AddAttribute("", "radar_latitude", []float64{g.RadarLatitude})
	h.AddAttribute("", "radar_longitude", []float64{g.RadarLongitude})
	h.AddAttribute("", "projection", g.Projection)

	h.AddVariable("x", []string{"x"}, []float64{0})
	h.AddAttribute("x", "units", "m")
	h.AddVariable("y", []string{"y"}, []float64{0})
	h.AddAttribute("y", "units", "m")
	h.AddVariable("z", []string{"z"}, []float64{0})
	h.AddAttribute("z", "units", "m")

	// Deterministic variable order for reproducible files.
	names := make([]string, 0, len(g.Fields))
	for name := range g.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field := g.Fields[name]
		h.AddVariable(name, []string{"z", "y", "x"}, []float32{0})
		if field.StandardName != "" {
			h.AddAttribute(name, "standard_name", field.StandardName)
		}
		if field.LongName != "" {
			h.AddAttribute(name, "long_name", field.LongName)
		}
		if field.Units != "" {
			h.AddAttribute(name, "units", field.Units)
		}
		if field.MinBCA != 0 || field.MaxBCA != 0 {
			h.AddAttribute(name, "min_bca", []float64{field.MinBCA})
			h.AddAttribute(name, "max_bca", []float64{field.MaxBCA})
		}
	}
	h.Define()

	ff, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("multidop: creating grid file: %v", err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return fmt.Errorf("multidop: writing grid file %s: %v", filename, err)
	}
	for _, c := range []struct {
		name string
		vals []float64
	}{{"x", g.X}, {"y", g.Y}, {"z", g.Z}} {
		if err := writeCoord(f, c.name, c.vals); err != nil {
			ff.Close()
			return err
		}
	}
	for _, name := range names {
		if err := writeField(f, name, g.Fields[name].Data); err != nil {
			ff.Close()
			return err
		}
	}
	if err := cdf.UpdateNumRecs(ff); err != nil {
		ff.Close()
		return fmt.Errorf("multidop: finalizing grid file %s: %v", filename, err)
	}
	return ff.Close()
}

func writeCoord(f *cdf.File, name string, vals []float64) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(vals); err != nil {
		return fmt.Errorf("multidop: writing coordinate %s: %v", name, err)
	}
	return nil
}

func writeField(f *cdf.File, name string, data *sparse.DenseArray) error {
	buf := make([]float32, len(data.Elements))
	for i, v := range data.Elements {
		buf[i] = float32(v)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("multidop: writing field %s: %v", name, err)
	}
	return nil
}
