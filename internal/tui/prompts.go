package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitmove.dev/gitmove/internal/strategy"
)

// EnvNoInteractive disables prompts, for tests and scripts
const EnvNoInteractive = "GITMOVE_NO_INTERACTIVE"

// ErrInteractiveDisabled is returned when interactive prompts are disabled via GITMOVE_NO_INTERACTIVE
var ErrInteractiveDisabled = fmt.Errorf("interactive prompts are disabled (%s is set)", EnvNoInteractive)

// checkInteractiveAllowed returns an error if interactive mode is disabled for testing
func checkInteractiveAllowed() error {
	if os.Getenv(EnvNoInteractive) != "" {
		return ErrInteractiveDisabled
	}
	return nil
}

// confirmModel is a simple yes/no confirmation prompt model
type confirmModel struct {
	prompt string
	choice bool
	done   bool
	err    error
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.err = fmt.Errorf("canceled")
			m.done = true
			return m, tea.Quit
		case tea.KeyRunes:
			switch strings.ToLower(string(msg.Runes)) {
			case "y", "yes":
				m.choice = true
				m.done = true
				return m, tea.Quit
			case "n", "no":
				m.choice = false
				m.done = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	yesNo := "[y/N]"
	if m.choice {
		yesNo = "[Y/n]"
	}
	return lipgloss.NewStyle().Margin(1, 0).
		Render(fmt.Sprintf("%s %s\n\n(Press y/yes or n/no, Enter to confirm, Ctrl+C to cancel)", m.prompt, yesNo))
}

// PromptConfirm prompts the user for yes/no confirmation
func PromptConfirm(prompt string, defaultValue bool) (bool, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return false, err
	}

	p := tea.NewProgram(confirmModel{prompt: prompt, choice: defaultValue},
		tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	model, err := p.Run()
	if err != nil {
		return false, err
	}

	if finalModel, ok := model.(confirmModel); ok {
		if finalModel.err != nil {
			return false, finalModel.err
		}
		return finalModel.choice, nil
	}
	return false, fmt.Errorf("unexpected model type")
}

// StrategyOptions lists the strategies with the recommended one first
func StrategyOptions(recommended strategy.Strategy) []string {
	other := strategy.Merge
	if recommended == strategy.Merge {
		other = strategy.Rebase
	}
	return []string{
		recommended.String() + " (recommended)",
		other.String(),
	}
}

// PromptStrategy asks which strategy to apply, defaulting to recommended
func PromptStrategy(branch string, recommended strategy.Strategy) (strategy.Strategy, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return "", err
	}

	options := StrategyOptions(recommended)
	var answer string
	prompt := &survey.Select{
		Message: fmt.Sprintf("How should %s be synced?", branch),
		Options: options,
		Default: options[0],
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return "", err
	}
	return strategy.Parse(strings.TrimSuffix(answer, " (recommended)"))
}
