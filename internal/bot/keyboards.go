package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-task-tracker/internal/models"
)

// Reply keyboard labels. They act like the matching commands.
const (
	ButtonMyTasks = "📋 My tasks"
	ButtonAddTask = "➕ Add task"
	ButtonStats   = "📊 Statistics"
	ButtonHelp    = "ℹ️ Help"
)

const (
	maxOpenButtons   = 10
	buttonTitleRunes = 32
)

// MainKeyboard is the persistent reply keyboard shown after /start.
func MainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonMyTasks),
			tgbotapi.NewKeyboardButton(ButtonAddTask),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonStats),
			tgbotapi.NewKeyboardButton(ButtonHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// WebAppKeyboard links to the Web App. ok is false when url cannot be opened
// from Telegram.
func WebAppKeyboard(url string) (tgbotapi.InlineKeyboardMarkup, bool) {
	if !strings.HasPrefix(url, "https://") {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📱 Open Task Tracker", url),
		),
	), true
}

// TaskActionsKeyboard holds the status and delete buttons of one task.
func TaskActionsKeyboard(taskID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Mark as Done", EncodeCallback(ActionDone, taskID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", EncodeCallback(ActionDelete, taskID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 In Progress", EncodeCallback(ActionProgress, taskID)),
			tgbotapi.NewInlineKeyboardButtonData("↩️ To Do", EncodeCallback(ActionTodo, taskID)),
		),
	)
}

// TaskListKeyboard has one open button per unfinished task. ok is false when
// there is nothing to open.
func TaskListKeyboard(tasks []*models.Task) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range tasks {
		if t.Status == models.StatusDone {
			continue
		}
		if len(rows) == maxOpenButtons {
			break
		}
		label := priorityMarker(t.Priority) + " " + truncate(t.Title, buttonTitleRunes)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, EncodeCallback(ActionView, t.ID)),
		))
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
