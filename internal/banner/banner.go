package banner

import (
	"seqbench/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

const ascii = `
                 __                    __
  ________  ____/ /_  ___  ____  _____/ /_
 / ___/ _ \/ __  / __ \/ _ \/ __ \/ ___/ __ \
(__  )  __/ /_/ / /_/ /  __/ / / / /__/ / / /
/____/\___/\__, /_.___/\___/_/ /_/\___/_/ /_/
             /_/                              `

// GetString renders the banner. Colors are dropped when stdout is not a terminal.
func GetString() string {
	style := lipgloss.DefaultRenderer().NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	return "\n" + style.Render(ascii) + "\n" + styles.Subtle.Render("  sequential HTTP benchmarking") + "\n"
}
