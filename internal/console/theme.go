// Package console implements the C4 console renderer: given one
// flushed trace's payloads, it decodes every span, builds a
// parent-child tree, and prints a tabular timeline plus a chronological
// event log to the terminal.
package console

import (
	"hash/fnv"

	"github.com/fatih/color"
)

// Theme is a named color palette the renderer cycles spans through.
type Theme struct {
	Name    string
	Palette []*color.Color
}

// Named themes, mirroring the "six named palettes" requirement.
// fatih/color is used directly, the same way DataDog-datadog-agent's
// version command colorizes its output (color.CyanString et al.).
var (
	ThemeDefault = Theme{Name: "default", Palette: []*color.Color{
		color.New(color.FgCyan), color.New(color.FgMagenta), color.New(color.FgYellow),
		color.New(color.FgGreen), color.New(color.FgBlue), color.New(color.FgWhite),
	}}
	ThemeSolarized = Theme{Name: "solarized", Palette: []*color.Color{
		color.New(color.FgHiYellow), color.New(color.FgHiCyan), color.New(color.FgHiGreen),
		color.New(color.FgHiRed), color.New(color.FgHiBlue), color.New(color.FgHiMagenta),
	}}
	ThemeMono = Theme{Name: "mono", Palette: []*color.Color{
		color.New(color.FgWhite), color.New(color.FgHiBlack), color.New(color.Bold),
	}}
	ThemePastel = Theme{Name: "pastel", Palette: []*color.Color{
		color.New(color.FgHiCyan), color.New(color.FgHiMagenta), color.New(color.FgHiYellow),
		color.New(color.FgHiGreen),
	}}
	ThemeOcean = Theme{Name: "ocean", Palette: []*color.Color{
		color.New(color.FgBlue), color.New(color.FgCyan), color.New(color.FgHiBlue), color.New(color.FgHiCyan),
	}}
	ThemeEarth = Theme{Name: "earth", Palette: []*color.Color{
		color.New(color.FgYellow), color.New(color.FgGreen), color.New(color.FgHiYellow), color.New(color.FgRed),
	}}
)

var themesByName = map[string]Theme{
	ThemeDefault.Name:   ThemeDefault,
	ThemeSolarized.Name: ThemeSolarized,
	ThemeMono.Name:      ThemeMono,
	ThemePastel.Name:    ThemePastel,
	ThemeOcean.Name:     ThemeOcean,
	ThemeEarth.Name:      ThemeEarth,
}

// ThemeByName resolves a theme name, falling back to ThemeDefault for
// an unrecognized one.
func ThemeByName(name string) Theme {
	if t, ok := themesByName[name]; ok {
		return t
	}
	return ThemeDefault
}

// ColorBy selects what a span's color is keyed on.
type ColorBy string

const (
	ColorByService ColorBy = "service"
	ColorBySpanID  ColorBy = "span_id"
)

// ErrorColor is forced on any span whose status is an error, regardless
// of theme or ColorBy.
var ErrorColor = color.New(color.FgRed, color.Bold)

// colorFor picks a color for one span, hashing key with the same
// hash/fnv idiom pkg/hyperloglog/hll.go uses for its register indexing,
// generalized from "index a register array" to "index a palette slice".
func colorFor(theme Theme, key string, isError bool) *color.Color {
	if isError {
		return ErrorColor
	}
	if len(theme.Palette) == 0 {
		return color.New(color.Reset)
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return theme.Palette[h.Sum32()%uint32(len(theme.Palette))]
}
