// Command web serves the sensor metrics HTTP API, the live feed and /metrics.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sensorcli/internal/app"
	"sensorcli/internal/config"
	"sensorcli/internal/dataprocessing"
)

type options struct {
	configFile string
	port       int
	baseDir    string
	strict     bool
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}

func execute(args []string, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "web",
		Short:         "Serve the sensor metrics API",
		Version:       config.AppVersion,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(opts)
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cfg, nil)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run()
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "YAML config file (defaults to the standard search path)")
	f.IntVar(&opts.port, "port", 0, "listen port (overrides the configured port)")
	f.StringVar(&opts.baseDir, "base-dir", "", "root for relative data, uploads, reports and logs directories")
	f.BoolVar(&opts.strict, "strict", false, "reject uploads that need a classification fallback or padding")

	return cmd
}

// buildConfig loads the configuration and applies command-line overrides.
func buildConfig(opts options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFrom(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.port != 0 {
		if opts.port < 0 || opts.port > 65535 {
			return nil, fmt.Errorf("invalid port: %d", opts.port)
		}
		cfg.Server.Port = opts.port
	}
	if opts.baseDir != "" {
		cfg.Paths.BaseDir = opts.baseDir
	}
	if opts.strict {
		cfg.Calibration.Mode = string(dataprocessing.ModeStrict)
	}
	return cfg, nil
}
