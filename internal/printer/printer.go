// Package printer renders boards and summaries for the terminal.
package printer

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taskledger/internal/model"
	"taskledger/internal/service"
)

// Printer writes styled text to w. Styles degrade to plain text when w is
// not a terminal.
type Printer struct {
	w      io.Writer
	r      *lipgloss.Renderer
	title  lipgloss.Style
	muted  lipgloss.Style
	done   lipgloss.Style
	detail lipgloss.Style
}

func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:      w,
		r:      r,
		title:  r.NewStyle().Bold(true),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#888888")),
		done:   r.NewStyle().Foreground(lipgloss.Color("#888888")).Strikethrough(true),
		detail: r.NewStyle().Faint(true).PaddingLeft(7),
	}
}

// Board prints every module in display order with its pending tasks and,
// when showDone is set, its done tasks.
func (p *Printer) Board(mods []model.Module, tasks []model.Task, showDone bool) error {
	byModule := make(map[string][]model.Task, len(mods))
	for _, t := range tasks {
		byModule[t.ModuleID] = append(byModule[t.ModuleID], t)
	}

	var sb strings.Builder
	for i, m := range mods {
		split := service.SplitTasks(byModule[m.ID])
		swatch := p.r.NewStyle().Foreground(lipgloss.Color(m.Color)).Render("■")
		header := fmt.Sprintf("%s %s %s", swatch, p.title.Render(fmt.Sprintf("%d. %s", i+1, m.Name)),
			p.muted.Render(fmt.Sprintf("(%d open, %d done)", len(split.Pending), len(split.Done))))
		sb.WriteString(header + "\n")

		if len(split.Pending) == 0 && (!showDone || len(split.Done) == 0) {
			sb.WriteString(p.muted.Render("    nothing here") + "\n")
		}
		for j, t := range split.Pending {
			sb.WriteString(fmt.Sprintf("  %2d. %s\n", j+1, t.Title))
			p.writeDetail(&sb, t)
		}
		if showDone {
			for _, t := range split.Done {
				sb.WriteString(fmt.Sprintf("   ✓  %s\n", p.done.Render(t.Title)))
			}
		}
		if i < len(mods)-1 {
			sb.WriteString("\n")
		}
	}

	_, err := io.WriteString(p.w, sb.String())
	return err
}

func (p *Printer) writeDetail(sb *strings.Builder, t model.Task) {
	detail := strings.TrimSpace(t.Detail)
	if detail == "" {
		return
	}
	sb.WriteString(p.detail.Render(detail) + "\n")
}

// Summary prints a period report, skipping empty periods.
func (p *Printer) Summary(s service.Summary) error {
	var sb strings.Builder
	heading := "Completed tasks"
	if s.Mode == service.SummaryOpen {
		heading = "Open tasks"
	}
	sb.WriteString(p.title.Render(fmt.Sprintf("%s by %s", heading, s.Granularity)) + "\n")

	empty := true
	for _, period := range s.Periods {
		if len(period.Items) == 0 {
			continue
		}
		empty = false
		sb.WriteString(fmt.Sprintf("\n%s %s\n", p.title.Render(period.Label), p.muted.Render(fmt.Sprintf("· %d", len(period.Items)))))
		for _, item := range period.Items {
			module := p.r.NewStyle().Foreground(lipgloss.Color(item.ModuleColor)).Render(item.ModuleName)
			sb.WriteString(fmt.Sprintf("  %s  %s (%s)\n", p.muted.Render(item.At.Format("15:04")), item.Task.Title, module))
		}
	}
	if empty {
		sb.WriteString(p.muted.Render("nothing in this window") + "\n")
	}

	_, err := io.WriteString(p.w, sb.String())
	return err
}
