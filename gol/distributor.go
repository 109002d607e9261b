package gol

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"slices"

	"uk.ac.bris.cs/gameoflife/mpi"
)

// Simulation is the part of the board owned by one rank and the loop that
// moves it on. Every rank of the world runs its own Simulation with the
// same Params.
type Simulation struct {
	Params Params
	Topo   Topology
	Grid   *Grid

	// Generation is the number of completed generations.
	Generation int

	// Changed is the global result of the last convergence check.
	Changed bool

	// Running is set while Run is looping.
	Running bool

	comm     mpi.Comm
	counter  *Counter
	workers  int
	initial  []uint8
	renderer Renderer
	events   chan<- Event
	log      *slog.Logger
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithRenderer sets what rank 0 renders the board with when Params.Print
// is set. The default prints text to stdout.
func WithRenderer(r Renderer) Option {
	return func(s *Simulation) { s.renderer = r }
}

// WithEvents makes the simulation send its events on events. Run closes
// the channel when it returns.
func WithEvents(events chan<- Event) Option {
	return func(s *Simulation) { s.events = events }
}

// WithGrid starts this rank from a copy of cells instead of a random
// sub-board.
func WithGrid(cells []uint8) Option {
	return func(s *Simulation) { s.initial = cells }
}

// WithLogger sets the logger; a rank attribute is added to it.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.log = l }
}

// NewSimulation validates p against the world of comm and sets up this
// rank's sub-board.
func NewSimulation(p Params, comm mpi.Comm, opts ...Option) (*Simulation, error) {
	if err := p.Validate(comm.Size()); err != nil {
		return nil, err
	}
	topo, err := NewTopology(comm.Rank(), comm.Size())
	if err != nil {
		return nil, err
	}
	s := &Simulation{
		Params:  p,
		Topo:    topo,
		Changed: true,
		comm:    comm,
		workers: p.Workers(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("rank", topo.Rank)

	width := p.Size / topo.Side
	if s.initial != nil {
		if s.Grid, err = GridFrom(width, slices.Clone(s.initial)); err != nil {
			return nil, err
		}
	} else {
		seed := uint64(p.Seed + int64(topo.Rank))
		s.Grid = NewGrid(width)
		s.Grid.Randomise(p.AliveProbability, rand.New(rand.NewPCG(seed, seed)))
	}
	if s.renderer == nil && topo.Rank == mpi.Root {
		s.renderer = NewTextRenderer(os.Stdout)
	}
	s.counter = NewCounter(s.Grid, s.workers)
	s.log.Debug("simulation ready", "topology", topo.String(), "width", width, "workers", s.workers)
	return s, nil
}

// Result is how a simulation ended.
type Result struct {
	Generations int
	State       State
}

// Step runs one generation: halo exchange overlapped with the interior
// count, boundary count, update and the global convergence check. It
// reports whether any cell on any rank changed. Every rank must step in
// lockstep.
func (s *Simulation) Step() (bool, error) {
	pending := StartExchange(s.comm, s.Topo, s.Grid)
	s.counter.Interior()
	halo, err := pending.Wait()
	if err != nil {
		return false, fmt.Errorf("generation %d: %w", s.Generation+1, err)
	}
	s.counter.Boundary(halo)
	local := Update(s.counter.Sums, s.Grid.Cells, s.workers)
	s.Generation++

	s.Changed, err = AnyChanged(s.comm, local)
	if err != nil {
		return false, fmt.Errorf("generation %d: %w", s.Generation, err)
	}
	s.log.Debug("generation complete", "generation", s.Generation, "changed", s.Changed, "local", local)

	if s.Params.Print {
		if err := s.render(); err != nil {
			return false, err
		}
	}
	s.send(GenerationComplete{Generation: s.Generation, Changed: s.Changed, Alive: s.Grid.Alive()})
	return s.Changed, nil
}

// Run steps until no cell changes or the generation budget is used up.
func (s *Simulation) Run() (Result, error) {
	if s.events != nil {
		defer close(s.events)
	}
	s.Running = true
	defer func() { s.Running = false }()
	s.send(StateChange{Generation: s.Generation, NewState: Executing})

	if s.Params.Print {
		if err := s.render(); err != nil {
			s.send(StateChange{Generation: s.Generation, NewState: Aborted})
			return Result{Generations: s.Generation, State: Aborted}, err
		}
	}

	state := Exhausted
	for !s.Params.Exhausted(s.Generation) {
		changed, err := s.Step()
		if err != nil {
			s.send(StateChange{Generation: s.Generation, NewState: Aborted})
			return Result{Generations: s.Generation, State: Aborted}, err
		}
		if !changed {
			state = Converged
			break
		}
	}

	row, col := s.Topo.Coords(s.Topo.Rank)
	s.send(FinalGenerationComplete{
		Generation: s.Generation,
		Alive:      s.Grid.AliveCells(col*s.Grid.Width, row*s.Grid.Width),
	})
	s.send(StateChange{Generation: s.Generation, NewState: state})
	s.log.Info("simulation finished", "generations", s.Generation, "state", state.String())
	return Result{Generations: s.Generation, State: state}, nil
}

// render gathers the board on rank 0 and renders it there.
func (s *Simulation) render() error {
	tiles, err := Gather(s.comm, s.Topo, s.Grid)
	if err != nil {
		return fmt.Errorf("generation %d: %w", s.Generation, err)
	}
	if tiles == nil || s.renderer == nil {
		return nil
	}
	if err := s.renderer.Render(s.Generation, tiles.Board(), tiles.BoardSide()); err != nil {
		return fmt.Errorf("generation %d: %w", s.Generation, err)
	}
	return nil
}

func (s *Simulation) send(e Event) {
	if s.events != nil {
		s.events <- e
	}
}
