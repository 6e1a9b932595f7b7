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

// Package multidoputil provides a command-line interface and
// configuration handling for the MultiDop wind retrieval.
package multidoputil

import (
	"fmt"
	"math"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/multidop"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to MultiDop.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "GridFiles",
			usage: `
              GridFiles is a list of paths to the NetCDF files holding the
              Cartesian-gridded observations from each radar, one file per
              radar. All files must share the analysis grid of the first one.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path where the retrieved wind field
              will be written. The output is a copy of the first input grid
              with u, v, and w fields added.`,
			defaultVal: "winds.nc",
			shorthand:  "o",
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "SoundingFile",
			usage: `
              SoundingFile is the path to a text file holding a background
              wind sounding, with one 'height u v' triple per line in
              meters and m/s. If empty, no background constraint is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "VelocityField",
			usage: `
              VelocityField is the name of the variable in each grid file
              that holds the Doppler radial velocity observations.`,
			defaultVal: "corrected_velocity",
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "ReflectivityField",
			usage: `
              ReflectivityField is the name of the variable in each grid
              file that holds radar reflectivity, used to estimate
              hydrometeor fall speed.`,
			defaultVal: "reflectivity",
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "ModelFieldNames",
			usage: `
              ModelFieldNames lists names of numerical weather model runs
              whose wind fields are stored in the first grid file as
              variables U_name, V_name, and W_name, to be blended into
              the retrieval.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.Co",
			usage: `
              Coeff.Co weights the radial velocity observation constraint.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.Cm",
			usage: `
              Coeff.Cm weights the anelastic mass continuity constraint.`,
			defaultVal: 1500.0,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.Cx",
			usage: `
              Coeff.Cx weights smoothness in the east-west direction.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.Cy",
			usage: `
              Coeff.Cy weights smoothness in the north-south direction.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.Cz",
			usage: `
              Coeff.Cz weights smoothness in the vertical direction.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.Cb",
			usage: `
              Coeff.Cb weights the background sounding constraint. It is
              ignored unless SoundingFile is set.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.Cv",
			usage: `
              Coeff.Cv weights the vertical vorticity equation constraint.
              Requires Coeff.Ut and Coeff.Vt.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.Cmod",
			usage: `
              Coeff.Cmod weights the model field blending constraint. It is
              ignored unless ModelFieldNames is set.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.Ut",
			usage: `
              Coeff.Ut is the eastward storm motion [m/s] used by the
              vorticity constraint. It must be set when Coeff.Cv is
              nonzero.`,
			defaultVal: math.NaN(),
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.Vt",
			usage: `
              Coeff.Vt is the northward storm motion [m/s] used by the
              vorticity constraint. It must be set when Coeff.Cv is
              nonzero.`,
			defaultVal: math.NaN(),
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "Coeff.UpperBC",
			usage: `
              Coeff.UpperBC specifies whether to hold vertical velocity at
              zero at the top of the analysis domain.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "MaxIterations",
			usage: `
              MaxIterations is the total iteration budget for the
              multigrid solver.`,
			defaultVal: 1300,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "CoarseMaxIterations",
			usage: `
              CoarseMaxIterations limits the iterations of each
              coarse-grid solve.`,
			defaultVal: 200,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "CoarseTolerance",
			usage: `
              CoarseTolerance is the gradient norm below which a
              coarse-grid solve is considered converged.`,
			defaultVal: 1.e-3,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "MinBCA",
			usage: `
              MinBCA is the minimum beam-crossing angle [degrees] between
              two radars for a grid cell to count as dual-Doppler coverage.`,
			defaultVal: 30.0,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "MaxBCA",
			usage: `
              MaxBCA is the maximum beam-crossing angle [degrees] between
              two radars for a grid cell to count as dual-Doppler coverage.`,
			defaultVal: 150.0,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "MaskOutsideCoverage",
			usage: `
              MaskOutsideCoverage specifies whether to blank all three
              retrieved wind components in cells without observation or
              model coverage.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "MaskWOutsideCoverage",
			usage: `
              MaskWOutsideCoverage specifies whether to blank retrieved
              vertical velocity in cells without observation or model
              coverage.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
		{
			name: "DiagnosticInterval",
			usage: `
              DiagnosticInterval is the iteration interval at which solver
              diagnostics are logged. Zero disables diagnostics.`,
			defaultVal: 50,
			flagsets:   []*pflag.FlagSet{retrieveCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("MULTIDOP")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(retrieveCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("multidop: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "multidop",
	Short: "A multiple-Doppler radar wind retrieval.",
	Long: `MultiDop retrieves three-dimensional wind fields from radial velocity
observations taken by one or more scanning Doppler radars. Use the
subcommands specified below to access the model functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'MULTIDOP_var' where 'var'
is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of MultiDop.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("MultiDop v%s\n", multidop.Version)
	},
	DisableAutoGenTag: true,
}

// retrieveCmd is a command that runs a wind retrieval.
var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Retrieve a wind field.",
	Long: `retrieve reads the gridded radar observations in GridFiles, runs the
variational multigrid wind retrieval, and writes the retrieved wind
field to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		coeff, err := coefficients(Cfg)
		if err != nil {
			return err
		}
		opts, err := retrievalOptions(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		return Retrieve(
			expandStringSlice(Cfg.GetStringSlice("GridFiles")),
			outputFile, coeff, opts)
	},
	DisableAutoGenTag: true,
}
