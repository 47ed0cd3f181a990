package tui

import "github.com/charmbracelet/lipgloss"

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	safetyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	offerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Italic(true)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// expressionColors maps each expression tag to a display color.
var expressionColors = map[string]lipgloss.Color{
	"EMPATHETIC": lipgloss.Color("13"),
	"COMFORTING": lipgloss.Color("14"),
	"WARM":       lipgloss.Color("11"),
	"STEADY":     lipgloss.Color("10"),
	"REFLECTIVE": lipgloss.Color("12"),
	"STRESSED":   lipgloss.Color("3"),
	"TIRED":      lipgloss.Color("8"),
	"SAFETY":     lipgloss.Color("9"),
	"NEUTRAL":    lipgloss.Color("7"),
}

func expressionStyle(tag string) lipgloss.Style {
	color, ok := expressionColors[tag]
	if !ok {
		color = lipgloss.Color("7")
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}
