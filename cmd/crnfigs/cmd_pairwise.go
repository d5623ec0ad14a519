package main

import (
	"context"

	config "github.com/Vincent-lau/crnfigs/internal/configs"
	"github.com/Vincent-lau/crnfigs/internal/pairwise"
	"github.com/spf13/cobra"
)

type pairwiseFlags struct {
	cfg pairwise.Config
}

func defaultPairwise() *pairwiseFlags {
	return &pairwiseFlags{cfg: pairwise.DefaultConfig}
}

func (p *pairwiseFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.cfg.Nodes, "nodes", p.cfg.Nodes, "nodes per graph")
	cmd.Flags().IntVar(&p.cfg.Reps, "reps", p.cfg.Reps, "graphs drawn per method")
	cmd.Flags().Float64Var(&p.cfg.EdgeProb, "edge-prob", p.cfg.EdgeProb, "edge probability")
	cmd.Flags().Uint64Var(&p.cfg.Seed, "seed", p.cfg.Seed, "random seed")
}

func newPairwiseCmd() *cobra.Command {
	p := defaultPairwise()
	cmd := &cobra.Command{
		Use:   "pairwise",
		Short: "Compare pairwise random number combiners on Erdős–Rényi graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPairwise(cmd.Context(), p.cfg)
		},
	}
	p.bind(cmd)
	return cmd
}

func runPairwise(ctx context.Context, cfg pairwise.Config) error {
	_, err := pairwise.Run(ctx, cfg, pairwise.Dir(config.FigDir, cfg))
	return err
}
