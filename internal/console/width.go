package console

import (
	"os"

	"golang.org/x/term"
)

// minTimelineWidth is the floor the spec's "minimum 10" rule enforces
// on the derived timeline bar column.
const minTimelineWidth = 10

// fixedColumnWidths is the sum of every non-timeline column's printed
// width: service, name, kind, duration, span-id-prefix, status, plus
// inter-column spacing.
const fixedColumnWidths = 84

// TimelineWidth derives the bar column's width from the detected
// terminal width, falling back to a sane default when stdout is not a
// terminal (e.g. redirected to a file or CI log).
func TimelineWidth() int {
	const fallbackTerminalWidth = 120

	width := fallbackTerminalWidth
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	timeline := width - fixedColumnWidths
	if timeline < minTimelineWidth {
		timeline = minTimelineWidth
	}
	return timeline
}
