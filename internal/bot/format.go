package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"desk-planner/internal/model"
	"desk-planner/internal/service"
)

const (
	iconDue      = "🔔"
	iconDone     = "✅"
	iconIdle     = "▫️"
	iconSchedule = "🗓"

	menuLabelDesks = "🗂 Desks"
	menuLabelHelp  = "ℹ️ Help"
)

var menuAliases = map[string]string{
	strings.ToLower(menuLabelDesks): "desks",
	strings.ToLower(menuLabelHelp):  "help",
}

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /desks — your desks and the ones shared with you\n" +
	"• /newdesk &lt;name&gt; — create a desk\n" +
	"• /renamedesk &lt;desk&gt; &lt;name&gt;, /deletedesk &lt;desk&gt;\n" +
	"• /tasks &lt;desk&gt; — tasks by category, tap to toggle\n" +
	"• /newcategory &lt;desk&gt; &lt;title&gt;, /delcategory &lt;desk&gt; &lt;categoryID&gt;\n" +
	"• /newtask &lt;desk&gt; &lt;categoryID&gt; &lt;title&gt;\n" +
	"• /task, /deltask &lt;desk&gt; &lt;taskID&gt; — details or delete\n" +
	"• /toggle &lt;desk&gt; &lt;taskID&gt; — mark due or done\n" +
	"• /sharelink &lt;desk&gt;, /rotate &lt;desk&gt; — share link, new link\n" +
	"• /join &lt;token&gt; — open a shared desk\n" +
	"• /grant &lt;desk&gt; &lt;username&gt; &lt;view|admin&gt;, /revoke &lt;desk&gt; &lt;username&gt;\n" +
	"• /shares &lt;desk&gt; — who else can open the desk\n" +
	"• /templates &lt;desk&gt;, /newtemplate &lt;desk&gt; &lt;name&gt;, /deltemplate &lt;desk&gt; &lt;templateID&gt;\n" +
	"• /trigger &lt;desk&gt; &lt;templateID&gt; &lt;day&gt; &lt;HH:MM&gt; — e.g. /trigger home 3 wed 09:00\n" +
	"• /untrigger &lt;desk&gt; &lt;templateID&gt; &lt;momentID&gt;\n" +
	"• /bind, /unbind &lt;desk&gt; &lt;taskID&gt; &lt;templateID&gt;"

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := normalizeTitle(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

// sentence capitalizes an error message for display.
func sentence(msg string) string {
	return normalizeTitle(msg)
}

func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	var icon string
	switch strings.ToLower(base) {
	case "study", "school":
		icon = "🎓"
	case "work":
		icon = "💼"
	case "shopping", "groceries":
		icon = "🛒"
	case "health":
		icon = "🩺"
	case "personal":
		icon = "🧩"
	case "chores", "home":
		icon = "🏠"
	default:
		icon = "🏷️"
	}
	return fmt.Sprintf("%s %s", icon, escape(normalizeTitle(base)))
}

func formatTask(task model.Task) string {
	var b strings.Builder
	icon := iconIdle
	if task.IsActive {
		icon = iconDue
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", icon, task.ID, escape(normalizeTitle(task.Title))))
	if task.Description != "" {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	b.WriteByte('\n')
	return b.String()
}

func toggleLabel(task model.Task) string {
	if task.IsActive {
		return fmt.Sprintf("%s #%d %s", iconDone, task.ID, shortTitle(task.Title, 24))
	}
	return fmt.Sprintf("%s #%d %s", iconDue, task.ID, shortTitle(task.Title, 24))
}

func formatDesk(v service.DeskView) string {
	return fmt.Sprintf("• <b>%s</b> <code>%s</code> · %s\n", escape(v.Desk.Name), escape(v.Desk.Slug), accessLabel(v.Access))
}

func accessLabel(a service.Access) string {
	switch {
	case a.IsOwner:
		return "owner"
	case a.IsAdmin:
		return "admin"
	case a.CanView:
		return "view"
	default:
		return "no access"
	}
}

func permissionLabel(p model.Permission) string {
	switch p {
	case model.PermissionAdmin:
		return "admin"
	case model.PermissionOwner:
		return "owner"
	default:
		return "view"
	}
}

func formatTemplate(tpl model.ScheduleTemplate) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", iconSchedule, tpl.ID, escape(tpl.Name)))
	if len(tpl.Triggers) == 0 {
		b.WriteString("   no moments yet\n")
	}
	for _, trigger := range tpl.Triggers {
		b.WriteString(fmt.Sprintf("   ⏰ <i>#%d</i> %s %s\n", trigger.ID, trigger.DayOfWeek, trigger.Time))
	}
	return b.String()
}

func formatShare(share model.DeskUserShare) string {
	return fmt.Sprintf("• %s · %s\n", escape(share.User.DisplayName()), permissionLabel(share.Permission))
}

func formatBindings(bindings []model.TaskSchedule) string {
	var active []string
	for _, binding := range bindings {
		if binding.IsActive() {
			active = append(active, fmt.Sprintf("#%d", binding.TemplateID))
		}
	}
	if len(active) == 0 {
		return iconSchedule + " follows no schedule\n"
	}
	return fmt.Sprintf("%s follows %s\n", iconSchedule, strings.Join(active, ", "))
}
