package app

import (
	"fmt"
	"strings"
)

// WindowFlags are handed to the platform glue that creates the window.
type WindowFlags uint32

const (
	Decorated WindowFlags = 1 << iota
	Resizable
	MinimizeBox

	DefaultWindowFlags = Decorated | Resizable | MinimizeBox
)

var windowFlagNames = map[string]WindowFlags{
	"decorated":    Decorated,
	"resizable":    Resizable,
	"minimize_box": MinimizeBox,
}

// ParseWindowFlags turns names like "decorated" or "minimize_box" into
// flags.
func ParseWindowFlags(names []string) (WindowFlags, error) {
	var f WindowFlags
	for _, n := range names {
		flag, ok := windowFlagNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("unknown window flag %q", n)
		}
		f |= flag
	}
	return f, nil
}

func (f WindowFlags) Has(flag WindowFlags) bool { return f&flag == flag }

type WindowOptions struct {
	Title  string
	Width  int
	Height int
	Flags  WindowFlags
}

func DefaultWindow() WindowOptions {
	return WindowOptions{
		Title:  "Webbridge App",
		Width:  800,
		Height: 600,
		Flags:  DefaultWindowFlags,
	}
}
