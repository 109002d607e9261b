package gol

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// Renderer displays the whole board on rank 0.
type Renderer interface {
	Render(generation int, board []uint8, side int) error
}

// Symbols used by TextRenderer.
const (
	AliveSymbol   = 'O'
	EmptySymbol   = '.'
	UnknownSymbol = '?'
)

// FormatBoard returns one line per board row with the cell symbols
// separated by single spaces, followed by a blank line.
func FormatBoard(board []uint8, side int) string {
	var sb strings.Builder
	writeBoard(&sb, board, side, func(r rune) string { return string(r) })
	return sb.String()
}

func writeBoard(sb *strings.Builder, board []uint8, side int, style func(rune) string) {
	for row := range side {
		for col := range side {
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(style(symbol(board[row*side+col])))
		}
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
}

func symbol(cell uint8) rune {
	switch cell {
	case Alive:
		return AliveSymbol
	case Empty:
		return EmptySymbol
	}
	return UnknownSymbol
}

// TextRenderer prints the board as text.
type TextRenderer struct {
	out *termenv.Output

	// Clear clears the screen before each board.
	Clear bool

	// Colour highlights alive cells. It has no effect when the output
	// is not a terminal.
	Colour bool

	// Header prints the generation number above each board.
	Header bool
}

// NewTextRenderer returns a renderer writing to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{out: termenv.NewOutput(w)}
}

func (t *TextRenderer) Render(generation int, board []uint8, side int) error {
	if len(board) != side*side {
		return fmt.Errorf("render: %d cells do not make a %dx%d board", len(board), side, side)
	}
	if t.Clear {
		t.out.ClearScreen()
		t.out.MoveCursor(1, 1)
	}
	var sb strings.Builder
	if t.Header {
		fmt.Fprintf(&sb, "generation %d\n", generation)
	}
	style := func(r rune) string { return string(r) }
	if t.Colour {
		alive := t.out.Color("2")
		style = func(r rune) string {
			if r == AliveSymbol {
				return t.out.String(string(r)).Foreground(alive).Bold().String()
			}
			return string(r)
		}
	}
	writeBoard(&sb, board, side, style)
	_, err := io.WriteString(t.out, sb.String())
	return err
}
