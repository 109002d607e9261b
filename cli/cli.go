// Package cli holds what the broker and server commands share: the
// simulation flags, the logger and the code that runs one rank.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"

	"uk.ac.bris.cs/gameoflife/gol"
	"uk.ac.bris.cs/gameoflife/mpi"
	"uk.ac.bris.cs/gameoflife/sdl"
	"uk.ac.bris.cs/gameoflife/util"
)

// ProgressInterval is how often rank 0 logs the generation it has reached.
var ProgressInterval = 2 * time.Second

// Options are the flags common to every command.
type Options struct {
	Params gol.Params
	Config string

	// Out receives the text boards and the summary; nil means stdout.
	Out io.Writer

	Clear  bool
	Colour bool
	Header bool
	SDL    bool
	Scale  int

	Verbose     bool
	VeryVerbose bool
	Quiet       bool
}

// Bind registers the flags on fs with the default params.
func (o *Options) Bind(fs *pflag.FlagSet) {
	d := gol.DefaultParams()
	fs.IntVarP(&o.Params.Size, "size", "s", d.Size, "side of the whole board (required)")
	fs.IntVarP(&o.Params.Threads, "threads", "t", d.Threads, "workers per rank, -1 for one per CPU")
	fs.IntVarP(&o.Params.AliveProbability, "alive-prob", "a", d.AliveProbability, "percentage chance of a cell starting alive")
	fs.IntVarP(&o.Params.MaxGenerations, "end", "e", d.MaxGenerations, "generations to run, -1 to run until nothing changes")
	fs.BoolVarP(&o.Params.Print, "print", "p", d.Print, "render the board on rank 0 every generation")
	fs.Int64Var(&o.Params.Seed, "seed", d.Seed, "seed of the initial board")
	fs.StringVar(&o.Config, "config", "", "read params from a .toml or .yaml file; flags override it")

	fs.BoolVar(&o.Clear, "clear", false, "clear the terminal before each board")
	fs.BoolVar(&o.Colour, "color", false, "colour alive cells")
	fs.BoolVar(&o.Header, "header", false, "print the generation above each board")
	fs.BoolVar(&o.SDL, "sdl", false, "render in an SDL window instead of the terminal")
	fs.IntVar(&o.Scale, "scale", sdl.DefaultScale, "pixels per cell in the SDL window")

	fs.BoolVarP(&o.Verbose, "verbose", "v", false, "log progress")
	fs.BoolVar(&o.VeryVerbose, "vv", false, "log every generation")
	fs.BoolVarP(&o.Quiet, "quiet", "q", false, "log errors only")
}

// paramFlags maps flag names to the param they set.
var paramFlags = map[string]func(dst *gol.Params, src gol.Params){
	"size":       func(dst *gol.Params, src gol.Params) { dst.Size = src.Size },
	"threads":    func(dst *gol.Params, src gol.Params) { dst.Threads = src.Threads },
	"alive-prob": func(dst *gol.Params, src gol.Params) { dst.AliveProbability = src.AliveProbability },
	"end":        func(dst *gol.Params, src gol.Params) { dst.MaxGenerations = src.MaxGenerations },
	"print":      func(dst *gol.Params, src gol.Params) { dst.Print = src.Print },
	"seed":       func(dst *gol.Params, src gol.Params) { dst.Seed = src.Seed },
}

// Resolve returns the params to run with: the config file if one was given,
// overridden by every flag set on the command line. A leading ~ in the
// config path is the home directory.
func (o *Options) Resolve(fs *pflag.FlagSet) (gol.Params, error) {
	if o.Config == "" {
		return o.Params, nil
	}
	path, err := homedir.Expand(o.Config)
	if err != nil {
		return o.Params, fmt.Errorf("config %s: %w", o.Config, err)
	}
	p, err := gol.LoadParams(path)
	if err != nil {
		return p, err
	}
	fs.Visit(func(f *pflag.Flag) {
		if set, ok := paramFlags[f.Name]; ok {
			set(&p, o.Params)
		}
	})
	return p, nil
}

// Logger returns the logger for the verbosity flags, writing to w.
func (o *Options) Logger(w io.Writer) *slog.Logger {
	return util.NewLogger(w, util.LevelFromFlags(o.VeryVerbose, o.Verbose, o.Quiet), o.Colour)
}

func (o *Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

// renderer returns what rank 0 renders with and how to close it.
func (o *Options) renderer(side int) (gol.Renderer, func() error, error) {
	if o.SDL {
		w, err := sdl.Open("Game of Life", side, o.Scale)
		if err != nil {
			return nil, nil, err
		}
		return w, w.Close, nil
	}
	t := gol.NewTextRenderer(o.out())
	t.Clear = o.Clear
	t.Colour = o.Colour
	t.Header = o.Header
	return t, func() error { return nil }, nil
}

// RunRank runs the simulation on one rank of comm's world. Rank 0 renders,
// reports progress and prints the summary.
func RunRank(comm mpi.Comm, p gol.Params, o *Options, logger *slog.Logger) (gol.Result, error) {
	opts := []gol.Option{gol.WithLogger(logger)}
	var events chan gol.Event
	var done chan struct{}
	if comm.Rank() == mpi.Root {
		if p.Print {
			r, closeRenderer, err := o.renderer(p.Size)
			if err != nil {
				return gol.Result{}, err
			}
			defer func() {
				if err := closeRenderer(); err != nil {
					logger.Warn("closing renderer", "err", err)
				}
			}()
			opts = append(opts, gol.WithRenderer(r))
		}
		events = make(chan gol.Event, 64)
		done = make(chan struct{})
		go func() {
			defer close(done)
			reportProgress(events, logger, ProgressInterval)
		}()
		opts = append(opts, gol.WithEvents(events))
	}

	s, err := gol.NewSimulation(p, comm, opts...)
	if err != nil {
		if events != nil {
			// Run never started, so nothing else closes it.
			close(events)
			<-done
		}
		return gol.Result{}, err
	}
	res, err := s.Run()
	if done != nil {
		<-done
	}
	if err != nil {
		return res, err
	}
	if comm.Rank() == mpi.Root {
		fmt.Fprintf(o.out(), "Finished after %d generations: %v\n", res.Generations, res.State)
	}
	return res, nil
}

// reportProgress drains events until the channel closes, logging the latest
// generation every interval.
func reportProgress(events <-chan gol.Event, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var latest gol.GenerationComplete
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			switch e := e.(type) {
			case gol.GenerationComplete:
				latest = e
			case gol.StateChange:
				logger.Debug("state change", "generation", e.Generation, "state", e.NewState.String())
			case gol.FinalGenerationComplete:
				logger.Info("final generation", "generation", e.Generation, "alive", len(e.Alive))
			}
		case <-ticker.C:
			if latest.Generation > 0 {
				logger.Info("progress", "generation", latest.Generation, "alive", latest.Alive)
			}
		}
	}
}
