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

package multidoputil

import (
	"fmt"
	"time"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/multidop"
)

// Retrieve reads the gridded radar observations in gridFiles, runs
// the wind retrieval, and writes the first result grid, with the
// retrieved u, v, and w fields attached, to outputFile.
func Retrieve(gridFiles []string, outputFile string, coeff multidop.Coefficients, opts *multidop.Options) error {
	if len(gridFiles) == 0 {
		return fmt.Errorf("multidop: no grid files specified; set the GridFiles configuration variable")
	}
	startTime := time.Now()

	grids := make([]*multidop.Grid, len(gridFiles))
	for i, file := range gridFiles {
		logrus.WithField("file", file).Info("reading grid")
		g, err := multidop.ReadGrid(file)
		if err != nil {
			return err
		}
		grids[i] = g
	}

	shape := grids[0].Shape()
	logrus.WithFields(logrus.Fields{
		"radars": len(grids),
		"shape":  shape,
	}).Info("starting wind retrieval")

	// The retrieval starts from calm winds; the background and model
	// constraints, when enabled, pull the early iterations toward
	// their fields instead.
	uInit := sparse.ZerosDense(shape...)
	vInit := sparse.ZerosDense(shape...)
	wInit := sparse.ZerosDense(shape...)

	results, err := multidop.Retrieve(grids, uInit, vInit, wInit, coeff, opts)
	if err != nil {
		return err
	}

	logrus.WithField("file", outputFile).Info("writing retrieved winds")
	if err := multidop.WriteGrid(results[0], outputFile); err != nil {
		return err
	}
	logrus.WithField("elapsed", time.Since(startTime)).Info("retrieval finished")
	return nil
}
