package ui

import "charm.land/lipgloss/v2"

type Theme struct {
	Header      lipgloss.Style
	Status      lipgloss.Style
	PanelTitle  lipgloss.Style
	PanelBorder lipgloss.Style
	PanelBody   lipgloss.Style
	Accent      lipgloss.Style
	Pass        lipgloss.Style
	Fail        lipgloss.Style
	Pending     lipgloss.Style
	Muted       lipgloss.Style
	Info        lipgloss.Style
	// Board frames the puzzle grid; Cursor marks the focused slot or row.
	Board  lipgloss.Style
	Cursor lipgloss.Style
	Piece  lipgloss.Style

	// Progress bar gradient.
	BarFrom string
	BarTo   string
}

type palette struct {
	ink, slate, paper  string
	accent, pass, fail string
	pending, muted     string
	border, highlight  string
}

func DefaultTheme() Theme {
	return ThemeForVariant("modern_arcade")
}

func ThemeForVariant(variant string) Theme {
	switch variant {
	case "cozy_clean":
		return buildTheme(palette{
			ink: "#1E2430", slate: "#30394A", paper: "#F4F6FA",
			accent: "#86B6F6", pass: "#80C4A3", fail: "#D17A86",
			pending: "#F2B872", muted: "#A3ACC2",
			border: "#4A5972", highlight: "#F2B872",
		})
	case "retro_terminal":
		return buildTheme(palette{
			ink: "#07150A", slate: "#12301A", paper: "#C5F7C4",
			accent: "#9CF5A2", pass: "#9CF5A2", fail: "#FF6B6B",
			pending: "#E5D47A", muted: "#73A17A",
			border: "#1F5C2F", highlight: "#E5D47A",
		})
	default:
		return buildTheme(palette{
			ink: "#0E1420", slate: "#1B2740", paper: "#EAF2FF",
			accent: "#5EEBFF", pass: "#67F0A8", fail: "#FF6F91",
			pending: "#FFC857", muted: "#9CAAC6",
			border: "#4B5F8A", highlight: "#FFC857",
		})
	}
}

func buildTheme(p palette) Theme {
	c := lipgloss.Color
	return Theme{
		Header:      lipgloss.NewStyle().Background(c(p.ink)).Foreground(c(p.paper)).Bold(true).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(c(p.slate)).Foreground(c(p.paper)).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(c(p.accent)).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(c(p.border)),
		PanelBody:   lipgloss.NewStyle().Foreground(c(p.paper)),
		Accent:      lipgloss.NewStyle().Foreground(c(p.accent)).Bold(true),
		Pass:        lipgloss.NewStyle().Foreground(c(p.pass)).Bold(true),
		Fail:        lipgloss.NewStyle().Foreground(c(p.fail)).Bold(true),
		Pending:     lipgloss.NewStyle().Foreground(c(p.pending)),
		Muted:       lipgloss.NewStyle().Foreground(c(p.muted)),
		Info:        lipgloss.NewStyle().Foreground(c(p.accent)),
		Board:       lipgloss.NewStyle().Foreground(c(p.border)),
		Cursor:      lipgloss.NewStyle().Foreground(c(p.ink)).Background(c(p.highlight)).Bold(true),
		Piece:       lipgloss.NewStyle().Foreground(c(p.pass)),
		BarFrom:     p.accent,
		BarTo:       p.pass,
	}
}
