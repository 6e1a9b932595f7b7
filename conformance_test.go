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

import "testing"

func TestCheckConformance(t *testing.T) {
	a := testGrid(35, -98)
	b := testGrid(35.2, -97.6)
	if err := checkConformance([]*Grid{a, b}); err != nil {
		t.Errorf("matching grids: %v", err)
	}

	// Coordinate offsets within the tolerance are accepted.
	c := testGrid(35.2, -97.6)
	c.X[0] += 5
	if err := checkConformance([]*Grid{a, c}); err != nil {
		t.Errorf("grids within coordinate tolerance: %v", err)
	}

	c.X[0] += 100
	if err := checkConformance([]*Grid{a, c}); err == nil {
		t.Error("expected an error for offset x coordinates")
	}

	d := testGrid(35.2, -97.6)
	d.Z = d.Z[:len(d.Z)-1]
	if err := checkConformance([]*Grid{a, d}); err == nil {
		t.Error("expected an error for mismatched z lengths")
	}

	e := testGrid(35.2, -97.6)
	e.OriginLatitude = 36
	if err := checkConformance([]*Grid{a, e}); err == nil {
		t.Error("expected an error for mismatched origins")
	}

	if err := checkConformance(nil); err == nil {
		t.Error("expected an error for an empty grid list")
	}
}
