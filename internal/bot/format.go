package bot

import (
	"fmt"
	"html"
	"strings"

	"tg-task-tracker/internal/models"
)

func priorityMarker(p models.TaskPriority) string {
	switch p {
	case models.PriorityHigh:
		return "🔴"
	case models.PriorityMedium:
		return "🟡"
	case models.PriorityLow:
		return "🟢"
	}
	return "⚪"
}

func statusLabel(s models.TaskStatus) string {
	switch s {
	case models.StatusTodo:
		return "To Do"
	case models.StatusInProgress:
		return "In Progress"
	case models.StatusDone:
		return "Done"
	}
	return string(s)
}

func priorityLabel(p models.TaskPriority) string {
	switch p {
	case models.PriorityHigh:
		return "High"
	case models.PriorityMedium:
		return "Medium"
	case models.PriorityLow:
		return "Low"
	}
	return string(p)
}

var listSections = []models.TaskStatus{models.StatusTodo, models.StatusInProgress, models.StatusDone}

// FormatTaskList renders the tasks grouped by status, keeping their order
// within each group. Output is HTML.
func FormatTaskList(tasks []*models.Task) string {
	if len(tasks) == 0 {
		return "📭 You have no tasks yet. Use /addtask to create one!"
	}

	grouped := make(map[models.TaskStatus][]*models.Task, len(listSections))
	for _, t := range tasks {
		grouped[t.Status] = append(grouped[t.Status], t)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Your tasks</b> (%d)\n", len(tasks))
	for _, status := range listSections {
		group := grouped[status]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n<b>%s</b>\n", statusLabel(status))
		for _, t := range group {
			fmt.Fprintf(&b, "%s %s\n", priorityMarker(t.Priority), html.EscapeString(t.Title))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTask renders one task with its details.
func FormatTask(t *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(t.Title))
	if t.Description != nil && *t.Description != "" {
		fmt.Fprintf(&b, "%s\n", html.EscapeString(*t.Description))
	}
	fmt.Fprintf(&b, "\nStatus: %s\n", statusLabel(t.Status))
	fmt.Fprintf(&b, "Priority: %s %s", priorityMarker(t.Priority), priorityLabel(t.Priority))
	if t.Deadline != nil {
		fmt.Fprintf(&b, "\nDeadline: %s", t.Deadline.UTC().Format("2006-01-02 15:04"))
	}
	return b.String()
}

// FormatStats renders the aggregate counts.
func FormatStats(s *models.TaskStats) string {
	return fmt.Sprintf("📊 <b>Statistics</b>\n\n"+
		"📝 Total: %d\n"+
		"⏳ To Do: %d\n"+
		"🔄 In Progress: %d\n"+
		"✅ Done: %d\n\n"+
		"🔴 High: %d\n"+
		"🟡 Medium: %d\n"+
		"🟢 Low: %d",
		s.Total, s.Todo, s.InProgress, s.Done,
		s.HighPriority, s.MediumPriority, s.LowPriority)
}
