package gol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Unlimited is the MaxGenerations value that never stops the simulation.
const Unlimited = -1

// Configuration errors, reported before any rank starts simulating.
var (
	ErrNotSquare      = errors.New("process count is not a perfect square")
	ErrBadSize        = errors.New("board size must be positive")
	ErrIndivisible    = errors.New("board size is not divisible by the process grid side")
	ErrBadProbability = errors.New("alive probability must be in [0, 100]")
	ErrBadGenerations = errors.New("generation budget must be positive or -1 for unlimited")
)

// Params provides the details of how to run the Game of Life. It is built
// once at startup and not changed afterwards.
type Params struct {
	// Size is the side of the whole square board.
	Size int `toml:"size" yaml:"size"`

	// Threads is the number of workers per rank; -1 uses every CPU.
	Threads int `toml:"threads" yaml:"threads"`

	// AliveProbability is the percentage chance of each cell starting alive.
	AliveProbability int `toml:"alive_probability" yaml:"alive_probability"`

	// MaxGenerations stops the simulation after that many generations;
	// Unlimited runs until it converges.
	MaxGenerations int `toml:"max_generations" yaml:"max_generations"`

	// Print renders the whole board on rank 0 after every generation.
	Print bool `toml:"print" yaml:"print"`

	// Seed of the initial board; each rank mixes in its own rank.
	Seed int64 `toml:"seed" yaml:"seed"`
}

// DefaultParams returns the defaults of every field but Size.
func DefaultParams() Params {
	return Params{
		Threads:          -1,
		AliveProbability: 15,
		MaxGenerations:   100,
	}
}

// Validate checks p against a world of procs ranks.
func (p Params) Validate(procs int) error {
	side, ok := IntSqrt(procs)
	if !ok {
		return fmt.Errorf("%w: %d processes", ErrNotSquare, procs)
	}
	if p.Size <= 0 {
		return fmt.Errorf("%w: %d", ErrBadSize, p.Size)
	}
	if p.Size%side != 0 {
		return fmt.Errorf("%w: %d %% %d != 0", ErrIndivisible, p.Size, side)
	}
	if p.AliveProbability < 0 || p.AliveProbability > 100 {
		return fmt.Errorf("%w: %d", ErrBadProbability, p.AliveProbability)
	}
	if p.MaxGenerations != Unlimited && p.MaxGenerations <= 0 {
		return fmt.Errorf("%w: %d", ErrBadGenerations, p.MaxGenerations)
	}
	return nil
}

// Workers returns the number of workers to use per rank.
func (p Params) Workers() int {
	if p.Threads <= 0 {
		return runtime.NumCPU()
	}
	return p.Threads
}

// Exhausted reports whether generation has used up the budget.
func (p Params) Exhausted(generation int) bool {
	return p.MaxGenerations != Unlimited && generation >= p.MaxGenerations
}

// LoadParams reads params from a .toml, .yaml or .yml file on top of
// DefaultParams. Unknown keys are an error.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&p)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&p); errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return p, fmt.Errorf("config %s: unknown format %q", path, ext)
	}
	if err != nil {
		return p, fmt.Errorf("config %s: %w", path, err)
	}
	return p, nil
}
