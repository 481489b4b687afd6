package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bastionmc/bastion/internal/busykey"
	"github.com/bastionmc/bastion/internal/logtail"
	"github.com/bastionmc/bastion/internal/ringlog"
	"github.com/bastionmc/bastion/internal/session"
)

// Header, progress line, tab bar, viewport, footer.
const chromeLines = 4

func (m Model) contentHeight() int {
	h := m.height - chromeLines
	if h < 1 {
		h = 1
	}
	return h
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')
	b.WriteString(m.renderProgressLine())
	b.WriteByte('\n')
	b.WriteString(m.renderTabs())
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	parts := []string{m.styles.Logo.Render("BASTION")}

	if m.instanceID != "" {
		parts = append(parts, m.styles.MutedText.Render("instance:")+" "+m.styles.Text.Render(m.instanceID))
	}

	if m.snap.metricsTarget != "" {
		if m.snap.metricsRunning && len(m.snap.rss) > 0 {
			latest := m.snap.rss[len(m.snap.rss)-1]
			parts = append(parts, m.styles.SuccessText.Render("● RUNNING")+" "+m.styles.Text.Render(formatRSS(latest)))
		} else {
			parts = append(parts, m.styles.FaintText.Render("● IDLE"))
		}
	}

	if len(m.snap.busy) > 0 {
		parts = append(parts, m.styles.InfoText.Render(busySummary(m.snap.busy)))
	}

	return m.styles.Header.Render(strings.Join(parts, "  "))
}

// busySummary renders in-flight operations in a stable order.
func busySummary(busy map[busykey.Key]busykey.Tag) string {
	labels := make([]string, 0, len(busy))
	for key, tag := range busy {
		labels = append(labels, fmt.Sprintf("%s %s:%s", tag, key.Kind, key.ID))
	}
	sort.Strings(labels)
	return strings.Join(labels, ", ")
}

func (m Model) renderProgressLine() string {
	if !m.snap.progressActive {
		return m.styles.FaintText.Render(strings.Repeat("─", max(m.width, 1)))
	}

	p := m.snap.progress
	parts := []string{
		m.styles.StageStyle(p.Stage).Render(p.Stage),
		m.styles.Text.Render(truncate(p.Message, 48)),
		progressBar(p.Current, p.Total, 24),
		m.styles.MutedText.Render(percent(p.Current, p.Total)),
	}
	if p.Detail != "" {
		parts = append(parts, m.styles.FaintText.Render(truncate(p.Detail, 40)))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderTabs() string {
	labels := []struct {
		tab  logTab
		text string
	}{
		{tabLauncher, "1 Launcher"},
		{tabGame, "2 Game"},
		{tabInstance, "3 Instance"},
		{tabDiag, "4 Diag"},
	}

	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.tab == m.tab {
			parts = append(parts, m.styles.Selected.Render(" "+l.text+" "))
		} else {
			parts = append(parts, m.styles.MutedText.Render(" "+l.text+" "))
		}
	}

	follow := "follow off"
	if m.follow {
		follow = "follow on"
	}
	parts = append(parts, m.styles.FaintText.Render(follow))

	return strings.Join(parts, " ")
}

func (m Model) renderFooter() string {
	if m.status != "" && time.Since(m.statusAt) < statusTTL {
		style := m.styles.Text
		switch m.statusKind {
		case session.StatusSuccess:
			style = m.styles.SuccessText
		case session.StatusError:
			style = m.styles.DangerText
		}
		return m.styles.Footer.Render(style.Render(truncate(m.status, max(m.width-4, 8))))
	}
	return m.styles.Footer.Render("h/? help   tab switch log   Space follow   T theme   q quit")
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.styles.Logo.Render("BASTION"))
	b.WriteString(m.styles.MutedText.Render("  key bindings"))
	b.WriteString("\n\n")
	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			help := binding.Help()
			fmt.Fprintf(&b, "  %s  %s\n",
				m.styles.AccentText.Render(fmt.Sprintf("%-10s", help.Key)),
				m.styles.Text.Render(help.Desc))
		}
		b.WriteByte('\n')
	}
	b.WriteString(m.styles.FaintText.Render("  press any key to close"))
	return b.String()
}

// refreshViewport rebuilds the viewport content for the active tab.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	if m.tab == tabDiag {
		m.setDiagContent()
		return
	}

	var lines []ringlog.Line
	switch m.tab {
	case tabLauncher:
		lines = m.snap.launcher
	case tabGame:
		lines = m.snap.game
	case tabInstance:
		lines = m.snap.instance
	}

	if len(lines) == 0 {
		m.viewport.SetContent(m.styles.FaintText.Render("  (no output yet)"))
		return
	}

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line.String())
	}
	m.viewport.SetContent(b.String())

	if m.follow {
		m.viewport.GotoBottom()
	}
}

// setDiagContent renders the diagnostic log tail, styled by level.
func (m *Model) setDiagContent() {
	if len(m.snap.diag) == 0 {
		m.viewport.SetContent(m.styles.FaintText.Render("  (no diagnostics yet)"))
		return
	}

	var b strings.Builder
	for i, line := range m.snap.diag {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch logtail.Level(line) {
		case "error", "fatal":
			b.WriteString(m.styles.DangerText.Render(line))
		case "warn":
			b.WriteString(m.styles.WarningText.Render(line))
		default:
			b.WriteString(m.styles.MutedText.Render(line))
		}
	}
	m.viewport.SetContent(b.String())

	if m.follow {
		m.viewport.GotoBottom()
	}
}
