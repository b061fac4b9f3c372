package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// EnvNoColor disables colored output when set, see https://no-color.org
const EnvNoColor = "NO_COLOR"

// IsTTY returns true if we can use a TTY for interactive output
func IsTTY() bool {
	if !((isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))) {
		return false
	}
	// stdin may be a terminal without a controlling tty, e.g. under some CI runners
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// DisableColors renders every style as plain text
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func render(color, text string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

// ColorRed colors text red
func ColorRed(text string) string { return render("1", text) }

// ColorGreen colors text green
func ColorGreen(text string) string { return render("2", text) }

// ColorYellow colors text yellow
func ColorYellow(text string) string { return render("3", text) }

// ColorDim makes text dim/gray
func ColorDim(text string) string { return render("8", text) }

// ColorBold renders text bold
func ColorBold(text string) string {
	return lipgloss.NewStyle().Bold(true).Render(text)
}

// ColorBranchName colors a branch name based on whether it's current
func ColorBranchName(branchName string, isCurrent bool) string {
	if isCurrent {
		return render("6", branchName+" (current)")
	}
	return render("12", branchName)
}

// ColorSeverity colors a conflict severity label: red for blocking
// severities, yellow otherwise.
func ColorSeverity(label string, blocking bool) string {
	if blocking {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true).Render(label)
	}
	return ColorYellow(label)
}
