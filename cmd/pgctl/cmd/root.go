/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgplatform-operator/cmd/pgctl/internal"
	"github.com/pgplatform-operator/internal/platform"
)

// options holds the global flags shared by every subcommand.
type options struct {
	verbose        bool
	outputFormat   string
	platformConfig string

	// now is the reference time for schedule previews.
	now func() time.Time
}

// NewRootCmd builds the pgctl command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{now: time.Now})
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pgctl",
		Short: "Offline PostgresDatabase tooling",
		Long: `pgctl checks and previews PostgresDatabase manifests without a cluster.

It applies the same validation and translation the operator runs, so a
manifest that passes "pgctl validate" is accepted by the operator, and
"pgctl render" prints the PostgresCluster the operator would generate.

Platform tables (images, resource defaults, backup settings) come from the
built-in defaults unless --platform-config points at the operator's file.

Example:
  pgctl validate -f orders.yaml
  pgctl validate -f orders.yaml --previous orders-live.yaml
  pgctl render -f orders.yaml -o json`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVarP(&opts.outputFormat, "output", "o", "", "Output format (table|yaml|json)")
	rootCmd.PersistentFlags().StringVar(&opts.platformConfig, "platform-config", "", "Path to the platform tables YAML file")

	rootCmd.AddCommand(newValidateCmd(opts))
	rootCmd.AddCommand(newRenderCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree against the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadPlatform returns the platform tables named by --platform-config.
func (o *options) loadPlatform() (*platform.Config, error) {
	if o.platformConfig == "" {
		return platform.Default(), nil
	}
	cfg, err := platform.LoadFile(o.platformConfig)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("platform config %s: %w", o.platformConfig, err)
	}
	return cfg, nil
}

func (o *options) printer(w io.Writer, fallback internal.OutputFormat) (*internal.Printer, error) {
	if o.outputFormat == "" {
		return internal.NewPrinter(fallback, w), nil
	}
	format, err := internal.ParseOutputFormat(o.outputFormat)
	if err != nil {
		return nil, err
	}
	return internal.NewPrinter(format, w), nil
}

// printVerbose prints verbose output if verbose mode is enabled
func (o *options) printVerbose(w io.Writer, format string, args ...interface{}) {
	if o.verbose {
		fmt.Fprintf(w, "[VERBOSE] "+format+"\n", args...)
	}
}
