package bot

import (
	"fmt"
	"html"
	"strings"

	"taskledger/internal/model"
	"taskledger/internal/service"
)

func escape(s string) string {
	return html.EscapeString(s)
}

func shortTitle(title string, maxLen int) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-1]) + "…"
}

func formatModuleList(mods []model.Module, tasks []model.Task) string {
	open := make(map[string]int, len(mods))
	done := make(map[string]int, len(mods))
	for _, t := range tasks {
		if t.Done() {
			done[t.ModuleID]++
		} else {
			open[t.ModuleID]++
		}
	}

	var builder strings.Builder
	builder.WriteString("🗂 <b>Modules</b>\n")
	for i, m := range mods {
		builder.WriteString(fmt.Sprintf("%d. %s · %d open, %d done\n", i+1, escape(m.Name), open[m.ID], done[m.ID]))
	}
	return strings.TrimSpace(builder.String())
}

func formatModuleTasks(mod model.Module, split service.ModuleTasks) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🗂 <b>%s</b>\n", escape(mod.Name)))
	if len(split.Pending) == 0 && len(split.Done) == 0 {
		builder.WriteString("Nothing here yet. Add a task with /newtask.")
		return builder.String()
	}
	if len(split.Pending) > 0 {
		builder.WriteString("\n🔥 <b>To do</b>\n")
		for _, t := range split.Pending {
			builder.WriteString(formatTask(t))
		}
	}
	if len(split.Done) > 0 {
		builder.WriteString("\n✅ <b>Done</b>\n")
		for _, t := range split.Done {
			builder.WriteString(formatTask(t))
		}
	}
	return strings.TrimSpace(builder.String())
}

func formatTask(t model.Task) string {
	var b strings.Builder
	if t.Done() {
		b.WriteString(fmt.Sprintf("• <s>%s</s>\n", escape(strings.TrimSpace(t.Title))))
	} else {
		b.WriteString(fmt.Sprintf("• %s\n", escape(strings.TrimSpace(t.Title))))
	}
	if detail := strings.TrimSpace(t.Detail); detail != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(detail)))
	}
	return b.String()
}
