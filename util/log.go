package util

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/muesli/termenv"
)

// LevelFromFlags returns the slog level for the verbosity flags. The flags
// are checked in the order vv, v, q; the default is warn.
func LevelFromFlags(vv, v, q bool) slog.Level {
	switch {
	case vv:
		return slog.LevelDebug
	case v:
		return slog.LevelInfo
	case q:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// NewLogger returns a text logger writing to w. When colour is set the level
// names are coloured using the terminal profile detected for w.
func NewLogger(w io.Writer, level slog.Leveler, colour bool) *slog.Logger {
	if colour {
		w = &levelWriter{w: w, out: termenv.NewOutput(w)}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

var levelKey = []byte(slog.LevelKey + "=")

// levelWriter colours the level value of each record. The text handler
// writes every record with a single Write call.
type levelWriter struct {
	w   io.Writer
	out *termenv.Output
}

func (lw *levelWriter) Write(p []byte) (int, error) {
	start := bytes.Index(p, levelKey)
	if start < 0 {
		return lw.w.Write(p)
	}
	start += len(levelKey)
	end := bytes.IndexAny(p[start:], " \n")
	if end < 0 {
		end = len(p)
	} else {
		end += start
	}
	name := string(p[start:end])
	styled := lw.out.String(name).Foreground(lw.out.Color(levelColour(name))).String()

	line := make([]byte, 0, len(p)+len(styled)-len(name))
	line = append(line, p[:start]...)
	line = append(line, styled...)
	line = append(line, p[end:]...)
	if _, err := lw.w.Write(line); err != nil {
		return 0, err
	}
	return len(p), nil
}

// levelColour is the ANSI colour index used for a level name.
func levelColour(name string) string {
	switch {
	case strings.HasPrefix(name, "ERROR"):
		return "1"
	case strings.HasPrefix(name, "WARN"):
		return "3"
	case strings.HasPrefix(name, "INFO"):
		return "2"
	default:
		return "4"
	}
}
