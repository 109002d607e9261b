// Package sdl draws the board in a desktop window. It needs the SDL2
// libraries and is only built with the sdl build tag; without it Open
// returns ErrUnsupported.
package sdl

import "errors"

var (
	// ErrClosed is returned by Render once the user has closed the window.
	ErrClosed = errors.New("sdl: window closed")

	// ErrUnsupported is returned by Open in builds without the sdl tag.
	ErrUnsupported = errors.New("sdl: built without the sdl tag")
)

// DefaultScale is the default number of pixels per cell.
const DefaultScale = 4
