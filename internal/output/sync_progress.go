package output

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Progress states of a SyncItem
const (
	ItemPending   = "pending"
	ItemAnalyzing = "analyzing"
	ItemApplying  = "applying"
	ItemDone      = "done"
	ItemSkipped   = "skipped"
	ItemError     = "error"
)

// SyncItem is one branch of a batch sync
type SyncItem struct {
	Branch string
	Status string
	Detail string
	Err    error
}

// SyncProgressUI displays the progress of a batch sync. UpdateItem may be
// called from several goroutines.
type SyncProgressUI interface {
	Start(branches []string)
	UpdateItem(idx int, status, detail string, err error)
	Complete()
}

// NewSyncProgressUI creates the appropriate progress UI based on TTY availability
func NewSyncProgressUI(splog *Splog) SyncProgressUI {
	if IsTTY() {
		return NewTTYSyncProgress()
	}
	return NewSimpleSyncProgress(splog)
}

func tally(items []SyncItem) (done, skipped, failed int) {
	for _, item := range items {
		switch item.Status {
		case ItemDone:
			done++
		case ItemSkipped:
			skipped++
		case ItemError:
			failed++
		}
	}
	return done, skipped, failed
}

func summaryLine(items []SyncItem) string {
	done, skipped, failed := tally(items)
	return fmt.Sprintf("Synced: %d, Skipped: %d, Failed: %d", done, skipped, failed)
}

// SimpleSyncProgress prints progress line by line (non-TTY)
type SimpleSyncProgress struct {
	splog *Splog
	mu    sync.Mutex
	items []SyncItem
}

// NewSimpleSyncProgress creates a new simple progress UI
func NewSimpleSyncProgress(splog *Splog) *SimpleSyncProgress {
	return &SimpleSyncProgress{splog: splog}
}

func (p *SimpleSyncProgress) Start(branches []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = make([]SyncItem, len(branches))
	for i, b := range branches {
		p.items[i] = SyncItem{Branch: b, Status: ItemPending}
	}
}

func (p *SimpleSyncProgress) UpdateItem(idx int, status, detail string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx >= len(p.items) {
		return
	}
	branch := p.items[idx].Branch

	switch status {
	case ItemApplying:
		p.splog.Info("  ⋯ %s %s", branch, detail)
	case ItemDone, ItemSkipped:
		p.splog.Info("  ✓ %s %s", branch, detail)
	case ItemError:
		p.splog.Info("  ✗ %s %s", branch, detail)
	}

	p.items[idx].Status = status
	p.items[idx].Detail = detail
	p.items[idx].Err = err
}

func (p *SimpleSyncProgress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.splog.Newline()
	p.splog.Info("%s", summaryLine(p.items))
}

// Items returns a copy of the current item states
func (p *SimpleSyncProgress) Items() []SyncItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SyncItem(nil), p.items...)
}

// TTYSyncProgress uses bubbletea for animated progress (TTY)
type TTYSyncProgress struct {
	program *tea.Program
	done    chan struct{}
}

// NewTTYSyncProgress creates a new TTY progress UI
func NewTTYSyncProgress() *TTYSyncProgress {
	return &TTYSyncProgress{}
}

func (p *TTYSyncProgress) Start(branches []string) {
	items := make([]SyncItem, len(branches))
	for i, b := range branches {
		items[i] = SyncItem{Branch: b, Status: ItemPending}
	}
	p.program = tea.NewProgram(newSyncProgressModel(items), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		_, _ = p.program.Run()
	}()
}

func (p *TTYSyncProgress) UpdateItem(idx int, status, detail string, err error) {
	if p.program == nil {
		return
	}
	p.program.Send(syncUpdateMsg{idx: idx, status: status, detail: detail, err: err})
}

func (p *TTYSyncProgress) Complete() {
	if p.program == nil {
		return
	}
	p.program.Send(syncCompleteMsg{})
	<-p.done
}

type syncStyles struct {
	spinnerStyle lipgloss.Style
	doneStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	branchStyle  lipgloss.Style
	dimStyle     lipgloss.Style
}

type syncProgressModel struct {
	items   []SyncItem
	spinner spinner.Model
	done    bool
	styles  syncStyles
}

type syncUpdateMsg struct {
	idx    int
	status string
	detail string
	err    error
}

type syncCompleteMsg struct{}

func newSyncProgressModel(items []SyncItem) *syncProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &syncProgressModel{
		items:   items,
		spinner: s,
		styles: syncStyles{
			spinnerStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
			doneStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
			branchStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
			dimStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		},
	}
}

func (m *syncProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *syncProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case syncUpdateMsg:
		if msg.idx < len(m.items) {
			m.items[msg.idx].Status = msg.status
			m.items[msg.idx].Detail = msg.detail
			m.items[msg.idx].Err = msg.err
		}
		return m, m.spinner.Tick

	case syncCompleteMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *syncProgressModel) View() string {
	var b strings.Builder
	b.WriteString("\n")

	for i, item := range m.items {
		var icon, status string
		switch item.Status {
		case ItemPending:
			icon = m.styles.dimStyle.Render("○")
			status = m.styles.dimStyle.Render("pending")
		case ItemAnalyzing, ItemApplying:
			icon = m.spinner.View()
			status = m.styles.spinnerStyle.Render(item.Status + "...")
		case ItemDone, ItemSkipped:
			icon = m.styles.doneStyle.Render("✓")
			status = m.styles.doneStyle.Render(item.Detail)
		case ItemError:
			icon = m.styles.errorStyle.Render("✗")
			status = m.styles.errorStyle.Render(item.Detail)
		}

		b.WriteString(fmt.Sprintf("  %s %s %s", icon, m.styles.branchStyle.Render(item.Branch), status))
		if i < len(m.items)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if m.done {
		b.WriteString("\n")
		_, _, failed := tally(m.items)
		if failed > 0 {
			b.WriteString(m.styles.errorStyle.Render(summaryLine(m.items)))
		} else {
			b.WriteString(m.styles.doneStyle.Render(summaryLine(m.items)))
		}
		b.WriteString("\n")
	}
	return b.String()
}
