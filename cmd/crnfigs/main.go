package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/experiment"
	"github.com/Vincent-lau/crnfigs/internal/metrics"
	"github.com/Vincent-lau/crnfigs/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func setLogging(mode string) error {
	switch mode {
	case "DEV":
		log.SetLevel(log.DebugLevel)
		log.SetFormatter(&log.TextFormatter{
			ForceColors: true,
		})
	case "PROD":
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown mode %q, want DEV or PROD", mode)
	}
	return nil
}

// newRootCmd also returns a function stopping any profile or trace the
// command started. It runs whether or not the command failed.
func newRootCmd() (*cobra.Command, func()) {
	var stopProfile func()
	stop := func() {
		if stopProfile != nil {
			stopProfile()
			stopProfile = nil
		}
	}

	rootCmd := &cobra.Command{
		Use:   "crnfigs",
		Short: "Reproduce the common random number variance reduction figures",
		Long: `crnfigs runs each scenario with and without common random numbers
across a range of seeds and writes figures comparing the variance of the
intervention effect under both seeding policies.

Without flags the built-in scenario parameters are used.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setLogging(config.Mode); err != nil {
				return err
			}
			if config.MetricsAddr != "" {
				metrics.Start(config.MetricsAddr)
			} else {
				metrics.Register()
			}
			sp, err := util.StartProfile(config.CpuProfile, config.Trace)
			if err != nil {
				return err
			}
			stopProfile = sp
			return nil
		},
	}

	fl := rootCmd.PersistentFlags()
	fl.StringVar(&config.Mode, "mode", config.Mode, "DEV or PROD")
	fl.StringVar(&config.FigDir, "figdir", config.FigDir, "root folder of the figures")
	fl.StringVar(&config.File, "config", config.File, "YAML file overriding the scenario defaults")
	fl.IntVar(&config.Workers, "workers", config.Workers, "concurrent runs, 0 for one per processor")
	fl.StringVar(&config.CachePath, "cache", config.CachePath, "SQLite file caching run results")
	fl.StringVar(&config.MetricsAddr, "metrics-addr", config.MetricsAddr, "serve prometheus metrics on this address")
	fl.StringVar(&config.CpuProfile, "cpuprofile", config.CpuProfile, "write cpu profile to file")
	fl.StringVar(&config.Trace, "trace", config.Trace, "write execution trace to file")

	rootCmd.AddCommand(
		newScenarioCmd(config.SIR, "Susceptible-infected-recovered spread with vaccination"),
		newScenarioCmd(config.PPH, "Postpartum hemorrhage with a treatment intervention"),
		newScenarioCmd(config.VMMC, "HIV spread with voluntary medical male circumcision"),
		newPairwiseCmd(),
		newAllCmd(),
	)
	return rootCmd, stop
}

func newScenarioCmd(scenario, short string) *cobra.Command {
	return &cobra.Command{
		Use:   scenario,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := experiment.Scenario(cmd.Context(), scenario, config.File, experiment.OptionsFromFlags())
			return err
		},
	}
}

func newAllCmd() *cobra.Command {
	pc := defaultPairwise()
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run every scenario and the pairwise experiment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.File != "" {
				return fmt.Errorf("--config applies to a single scenario, not to all")
			}
			for _, s := range []string{config.SIR, config.PPH, config.VMMC} {
				if _, err := experiment.Scenario(cmd.Context(), s, "", experiment.OptionsFromFlags()); err != nil {
					return err
				}
			}
			return runPairwise(cmd.Context(), pc.cfg)
		},
	}
	pc.bind(cmd)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd, stopProfile := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stopProfile()
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Error("crnfigs failed")
		stop()
		os.Exit(1)
	}
}
