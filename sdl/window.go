//go:build sdl

package sdl

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/veandco/go-sdl2/sdl"
)

// Window shows the board in an SDL window, one square per cell. SDL runs
// on its own locked OS thread; Render hands it frames.
type Window struct {
	frames chan []uint8
	done   chan struct{}
	side   int
	err    error
}

// Open creates a window for a side x side board drawn at scale pixels per
// cell.
func Open(title string, side, scale int) (*Window, error) {
	w := &Window{
		frames: make(chan []uint8, 1),
		done:   make(chan struct{}),
		side:   side,
	}
	ready := make(chan error)
	go w.loop(title, scale, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Window) loop(title string, scale int, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		ready <- fmt.Errorf("sdl init: %w", err)
		return
	}
	defer sdl.Quit()

	px := int32(w.side * scale)
	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, px, px, sdl.WINDOW_SHOWN)
	if err != nil {
		ready <- fmt.Errorf("sdl window: %w", err)
		return
	}
	defer window.Destroy()
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		ready <- fmt.Errorf("sdl renderer: %w", err)
		return
	}
	defer renderer.Destroy()
	ready <- nil

	poll := time.NewTicker(16 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case board, ok := <-w.frames:
			if !ok {
				return
			}
			if err := w.draw(renderer, board, int32(scale)); err != nil {
				w.err = err
				return
			}
		case <-poll.C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				if _, ok := event.(*sdl.QuitEvent); ok {
					slog.Info("window closed")
					w.err = ErrClosed
					return
				}
			}
		}
	}
}

func (w *Window) draw(r *sdl.Renderer, board []uint8, scale int32) error {
	if err := r.SetDrawColor(0, 0, 0, 255); err != nil {
		return err
	}
	if err := r.Clear(); err != nil {
		return err
	}
	if err := r.SetDrawColor(255, 255, 255, 255); err != nil {
		return err
	}
	for i, cell := range board {
		if cell == 0 {
			continue
		}
		rect := sdl.Rect{
			X: int32(i%w.side) * scale,
			Y: int32(i/w.side) * scale,
			W: scale,
			H: scale,
		}
		if err := r.FillRect(&rect); err != nil {
			return err
		}
	}
	r.Present()
	return nil
}

// Render queues the board for drawing, dropping a frame not yet drawn. It
// must not be called after Close.
func (w *Window) Render(generation int, board []uint8, side int) error {
	if side != w.side {
		return fmt.Errorf("sdl: board side %d, window side %d", side, w.side)
	}
	frame := append([]uint8(nil), board...)
	for {
		select {
		case <-w.done:
			if w.err != nil {
				return w.err
			}
			return ErrClosed
		case w.frames <- frame:
			return nil
		default:
		}
		select {
		case <-w.frames:
		default:
		}
	}
}

// Close shuts the window and waits for SDL to quit.
func (w *Window) Close() error {
	select {
	case <-w.done:
	default:
		close(w.frames)
		<-w.done
	}
	if w.err == ErrClosed {
		return nil
	}
	return w.err
}
