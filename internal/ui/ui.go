package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smok95/Sangtae/internal/model"
	"github.com/smok95/Sangtae/internal/publish"
)

// Model renders the currently published snapshot. It never samples anything
// itself and never mutates what it reads.
type Model struct {
	pub    *publish.Publisher
	latest model.Snapshot
	width  int
	height int
}

func New(pub *publish.Publisher) *Model {
	return &Model{pub: pub, latest: pub.Current(), width: 100, height: 36}
}

type tickMsg struct{}

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		m.latest = m.pub.Current()
		return m, tickCmd()
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	s := m.latest
	header := titleStyle.Render("Sangtae 상태") + "  " +
		subtleStyle.Render(s.Timestamp.Format("Mon Jan 2 15:04:05")) + "  " +
		subtleStyle.Render(topologyLine(s.Topology))

	cpuCard := card("CPU",
		fmt.Sprintf("%s  load %.2f %.2f %.2f",
			gaugeBar(s.CPUTotal*100, 24),
			s.LoadAvg[0], s.LoadAvg[1], s.LoadAvg[2]))

	coreLines := make([]string, 0, len(s.Cores))
	for _, c := range s.Cores {
		coreLines = append(coreLines, fmt.Sprintf("%-8s %s", c.Name, gaugeBar(c.Usage*100, 12)))
	}
	coreCard := card("Cores (hottest first)", strings.Join(coreLines, "\n"))

	memCard := card("Memory",
		fmt.Sprintf("%s  %.1f/%.1f GB",
			gaugeBar(s.MemUsedRatio*100, 24), s.MemUsedGB, s.MemTotalGB))

	netCard := card("Network",
		fmt.Sprintf("▼ %.2f MiB/s   ▲ %.2f MiB/s", s.NetDownMBs, s.NetUpMBs))

	diskLines := make([]string, 0, len(s.Disks))
	for _, d := range s.Disks {
		diskLines = append(diskLines, fmt.Sprintf("%-14s %s %s",
			truncate(d.Name, 14), gaugeBar(d.UsedRatio*100, 16), d.Label))
	}
	diskCard := ""
	if len(diskLines) > 0 {
		diskCard = card("Disks", strings.Join(diskLines, "\n"))
	}

	battCard := ""
	if s.Battery.Level >= 0 {
		state := "on battery"
		if s.Battery.Charging {
			state = "charging"
		}
		battCard = card("Battery", fmt.Sprintf("%.0f%% (%s)", s.Battery.Level*100, state))
	}

	procLines := make([]string, 0, len(s.TopProcesses))
	for _, p := range s.TopProcesses {
		procLines = append(procLines, fmt.Sprintf("%-22s %5.1f%%", truncate(p.Name, 22), p.CPUPercent))
	}
	procCard := ""
	if len(procLines) > 0 {
		procCard = card("Top CPU", strings.Join(procLines, "\n"))
	}

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard, netCard)
	cols2 := []string{coreCard}
	if diskCard != "" {
		cols2 = append(cols2, diskCard)
	}
	if battCard != "" {
		cols2 = append(cols2, battCard)
	}
	if procCard != "" {
		cols2 = append(cols2, procCard)
	}
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, cols2...)

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2)
}

// Helpers
func topologyLine(t model.CoreTopology) string {
	if t.Performance == 0 && t.Efficiency == 0 {
		return fmt.Sprintf("%d cores", t.Logical)
	}
	return fmt.Sprintf("%dP + %dE cores", t.Performance, t.Efficiency)
}

func gaugeBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	return cardStyle.Render(labelStyle.Render(title) + "\n" + body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run starts the Bubble Tea program and stops it when ctx is canceled.
func Run(ctx context.Context, pub *publish.Publisher) error {
	prog := tea.NewProgram(New(pub), tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		prog.Quit()
	}()
	_, err := prog.Run()
	return err
}
