package render

import (
	"sort"
	"strings"

	"github.com/matzehuels/retrocausal/pkg/errors"
)

// Theme is the color palette for frame rendering.
type Theme struct {
	Name       string
	Background string
	Grain      string
	Rail       string
	Node       string
	NodeStroke string
	Label      string
	Signal     string // signal photons
	WhichPath  string // idlers on the which-path route
	Erased     string // idlers on the erased route
	Engine     string
	Pattern    string
}

var themes = map[string]Theme{
	"dark": {
		Name:       "dark",
		Background: "#07070c",
		Grain:      "#ffffff",
		Rail:       "#2a2d3e",
		Node:       "#11131c",
		NodeStroke: "#8b93b8",
		Label:      "#c9cde4",
		Signal:     "#5ee7ff",
		WhichPath:  "#ffb347",
		Erased:     "#b48cff",
		Engine:     "#ff5fa2",
		Pattern:    "#5ee7ff",
	},
	"light": {
		Name:       "light",
		Background: "#f6f4ee",
		Grain:      "#000000",
		Rail:       "#c9c4b5",
		Node:       "#ffffff",
		NodeStroke: "#3b3f55",
		Label:      "#23263a",
		Signal:     "#0077b6",
		WhichPath:  "#d1495b",
		Erased:     "#6a4c93",
		Engine:     "#c2185b",
		Pattern:    "#0077b6",
	},
}

// DefaultTheme is the palette used when none is configured.
const DefaultTheme = "dark"

// ThemeByName returns the named theme.
func ThemeByName(name string) (Theme, error) {
	t, ok := themes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Theme{}, errors.New(errors.ErrCodeInvalidInput, "unknown theme %q (available: %s)", name, strings.Join(ThemeNames(), ", "))
	}
	return t, nil
}

// ThemeNames lists the available themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
