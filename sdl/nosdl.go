//go:build !sdl

package sdl

// Window is unavailable without the sdl build tag.
type Window struct{}

// Open always fails without the sdl build tag.
func Open(title string, side, scale int) (*Window, error) {
	return nil, ErrUnsupported
}

func (w *Window) Render(generation int, board []uint8, side int) error {
	return ErrUnsupported
}

func (w *Window) Close() error {
	return nil
}
