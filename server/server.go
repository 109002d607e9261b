// Command server runs one rank of the simulation as its own process. Every
// rank is started with the same peer list and its own rank, and they talk
// net/rpc over TCP.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"uk.ac.bris.cs/gameoflife/cli"
	"uk.ac.bris.cs/gameoflife/mpi"
)

// Environment variables read when the matching flag is not given.
const (
	envRank  = "GOL_RANK"
	envPeers = "GOL_PEERS"
)

func newCommand() *cobra.Command {
	var o cli.Options
	var rank int
	var peers []string
	var dialTimeout time.Duration
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Run one rank of a distributed Game of Life over TCP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.Out == nil {
				o.Out = cmd.OutOrStdout()
			}
			if err := fromEnv(cmd, &rank, &peers); err != nil {
				return err
			}
			logger := o.Logger(cmd.ErrOrStderr())
			p, err := o.Resolve(cmd.Flags())
			if err != nil {
				return err
			}
			if err := p.Validate(len(peers)); err != nil {
				return err
			}

			comm, err := mpi.Dial(mpi.NetConfig{Rank: rank, Peers: peers, DialTimeout: dialTimeout})
			if err != nil {
				return err
			}
			logger.Info("rank started", "rank", rank, "peers", len(peers))
			_, err = cli.RunRank(comm, p, &o, logger)
			if err != nil {
				comm.Abort(err)
				logger.Error("simulation failed", "rank", rank, "err", err)
			}
			return errors.Join(err, comm.Finalize())
		},
	}
	cmd.Flags().IntVar(&rank, "rank", 0, "rank of this process (or $"+envRank+")")
	cmd.Flags().StringSliceVar(&peers, "peers", nil, "listen address of every rank, in rank order (or $"+envPeers+")")
	cmd.Flags().DurationVar(&dialTimeout, "dial-timeout", mpi.DefaultDialTimeout, "how long to wait for a peer to start listening")
	o.Bind(cmd.Flags())
	return cmd
}

// fromEnv fills rank and peers from the environment when their flags were
// not given.
func fromEnv(cmd *cobra.Command, rank *int, peers *[]string) error {
	if !cmd.Flags().Changed("rank") {
		if v, ok := os.LookupEnv(envRank); ok {
			r, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", envRank, err)
			}
			*rank = r
		}
	}
	if !cmd.Flags().Changed("peers") {
		if v, ok := os.LookupEnv(envPeers); ok && v != "" {
			*peers = strings.Split(v, ",")
		}
	}
	if len(*peers) == 0 {
		return errors.New("no peers: set --peers or $" + envPeers)
	}
	return nil
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}
