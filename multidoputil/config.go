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
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/multidop"
	"github.com/spf13/cast"
)

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="winds.nc")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("multidop: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// coefficients extracts the cost function weights from the
// configuration information in cfg.
func coefficients(cfg *viper.Viper) (multidop.Coefficients, error) {
	c := multidop.DefaultCoefficients()
	c.Co = cfg.GetFloat64("Coeff.Co")
	c.Cm = cfg.GetFloat64("Coeff.Cm")
	c.Cx = cfg.GetFloat64("Coeff.Cx")
	c.Cy = cfg.GetFloat64("Coeff.Cy")
	c.Cz = cfg.GetFloat64("Coeff.Cz")
	c.Cb = cfg.GetFloat64("Coeff.Cb")
	c.Cv = cfg.GetFloat64("Coeff.Cv")
	c.Cmod = cfg.GetFloat64("Coeff.Cmod")
	c.UpperBC = cfg.GetBool("Coeff.UpperBC")
	// Storm motion defaults to NaN, meaning unset, so that
	// Coefficients.Valid can catch a vorticity constraint without one.
	c.Ut = cfg.GetFloat64("Coeff.Ut")
	c.Vt = cfg.GetFloat64("Coeff.Vt")
	return c, nil
}

// retrievalOptions extracts the solver options from the configuration
// information in cfg.
func retrievalOptions(cfg *viper.Viper) (*multidop.Options, error) {
	opts := multidop.DefaultOptions()
	opts.VelocityField = cfg.GetString("VelocityField")
	opts.ReflectivityField = cfg.GetString("ReflectivityField")
	opts.MaxIterations = cfg.GetInt("MaxIterations")
	opts.CoarseMaxIterations = cfg.GetInt("CoarseMaxIterations")
	opts.CoarseTolerance = cfg.GetFloat64("CoarseTolerance")
	opts.MinBCA = cfg.GetFloat64("MinBCA")
	opts.MaxBCA = cfg.GetFloat64("MaxBCA")
	opts.MaskOutsideCoverage = cfg.GetBool("MaskOutsideCoverage")
	opts.MaskWOutsideCoverage = cfg.GetBool("MaskWOutsideCoverage")
	opts.DiagnosticInterval = cfg.GetInt("DiagnosticInterval")
	opts.ModelFieldNames = cfg.GetStringSlice("ModelFieldNames")
	if soundingFile := os.ExpandEnv(cfg.GetString("SoundingFile")); soundingFile != "" {
		sounding, err := ReadSounding(soundingFile)
		if err != nil {
			return nil, err
		}
		opts.Background = sounding
	}
	return opts, nil
}

// ReadSounding reads a background wind sounding from the text file at
// filename. Each non-empty line holds whitespace-separated height [m],
// eastward wind [m/s], and northward wind [m/s] values; lines starting
// with '#' are skipped.
func ReadSounding(filename string) (*multidop.Sounding, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("multidop: opening sounding file: %v", err)
	}
	defer f.Close()

	s := new(multidop.Sounding)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("multidop: sounding file %s line %d: want 3 fields, got %d", filename, line, len(fields))
		}
		vals := make([]float64, 3)
		for i, field := range fields {
			v, err := cast.ToFloat64E(field)
			if err != nil {
				return nil, fmt.Errorf("multidop: sounding file %s line %d: %v", filename, line, err)
			}
			vals[i] = v
		}
		if n := len(s.Z); n > 0 && vals[0] <= s.Z[n-1] {
			return nil, fmt.Errorf("multidop: sounding file %s line %d: heights must increase", filename, line)
		}
		s.Z = append(s.Z, vals[0])
		s.U = append(s.U, vals[1])
		s.V = append(s.V, vals[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("multidop: reading sounding file %s: %v", filename, err)
	}
	if len(s.Z) == 0 {
		return nil, fmt.Errorf("multidop: sounding file %s holds no data", filename)
	}
	if math.IsNaN(s.Z[0]) {
		return nil, fmt.Errorf("multidop: sounding file %s holds invalid heights", filename)
	}
	return s, nil
}
