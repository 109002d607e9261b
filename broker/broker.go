// Command broker runs every rank of the simulation in one process, each
// rank a goroutine talking to the others through an in-memory world.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"uk.ac.bris.cs/gameoflife/cli"
	"uk.ac.bris.cs/gameoflife/gol"
	"uk.ac.bris.cs/gameoflife/mpi"
)

func newCommand() *cobra.Command {
	var o cli.Options
	var procs int
	cmd := &cobra.Command{
		Use:           "broker",
		Short:         "Run a distributed Game of Life with every rank in this process",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.Out == nil {
				o.Out = cmd.OutOrStdout()
			}
			logger := o.Logger(cmd.ErrOrStderr())
			p, err := o.Resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if err := p.Validate(procs); err != nil {
				return err
			}
			_, err = run(procs, p, &o, logger)
			if err != nil {
				logger.Error("simulation failed", "err", err)
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&procs, "procs", "n", 1, "number of ranks, a perfect square")
	o.Bind(cmd.Flags())
	return cmd
}

// run starts every rank and waits for all of them. The first rank to fail
// aborts the others.
func run(procs int, p gol.Params, o *cli.Options, logger *slog.Logger) (gol.Result, error) {
	world, err := mpi.NewLocalWorld(procs)
	if err != nil {
		return gol.Result{}, err
	}
	results := make([]gol.Result, procs)
	var g errgroup.Group
	for r := range procs {
		comm := world.Comm(r)
		g.Go(func() error {
			defer comm.Finalize()
			res, err := cli.RunRank(comm, p, o, logger)
			if err != nil {
				world.Abort(err)
				return fmt.Errorf("rank %d: %w", r, err)
			}
			results[r] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return gol.Result{}, err
	}
	return results[mpi.Root], nil
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "broker:", err)
		os.Exit(1)
	}
}
