// Package bot implements the Telegram chat surface of the task tracker.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-task-tracker/internal/models"
	"tg-task-tracker/internal/repositories"
	"tg-task-tracker/internal/services"
)

// Sender is the part of *tgbotapi.BotAPI the dispatcher talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

const (
	msgSomethingWrong = "❌ Sorry, something went wrong. Please try again later."
	msgTaskNotFound   = "Task not found."
	msgUnknownAction  = "Unknown action."
	msgIdleHint       = "Use /addtask to create a task or /help to see the commands."
)

// Dispatcher routes updates to the command, text and callback handlers.
type Dispatcher struct {
	sender    Sender
	tasks     *services.TaskService
	users     *services.UserService
	states    *StateStore
	webAppURL string
	log       zerolog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(sender Sender, tasks *services.TaskService, users *services.UserService, webAppURL string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		tasks:     tasks,
		users:     users,
		states:    NewStateStore(),
		webAppURL: webAppURL,
		log:       log.With().Str("component", "bot").Logger(),
	}
}

// State exposes the conversation state of a chat.
func (d *Dispatcher) State(chatID, userID int64) State {
	return d.states.Get(chatID, userID)
}

// HandleUpdate processes a single update. Updates other than messages and
// callback queries are ignored.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.Message != nil:
		return d.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		return d.handleCallback(ctx, update.CallbackQuery)
	}
	return nil
}

func telegramUser(u *tgbotapi.User) models.TelegramUser {
	return models.TelegramUser{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.UserName,
		LanguageCode: u.LanguageCode,
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	log := d.log.With().Int64("chat_id", msg.Chat.ID).Int64("telegram_id", msg.From.ID).Logger()
	ctx = log.WithContext(ctx)

	var err error
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			err = d.cmdStart(ctx, msg)
		case "mytasks":
			err = d.cmdMyTasks(ctx, msg)
		case "addtask":
			err = d.cmdAddTask(msg)
		case "cancel":
			err = d.cmdCancel(msg)
		case "stats":
			err = d.cmdStats(ctx, msg)
		case "help":
			err = d.cmdHelp(msg)
		default:
			err = d.reply(msg.Chat.ID, "🤔 Unknown command. Send /help to see what I can do.", nil)
		}
	} else {
		switch strings.TrimSpace(msg.Text) {
		case ButtonMyTasks:
			err = d.cmdMyTasks(ctx, msg)
		case ButtonAddTask:
			err = d.cmdAddTask(msg)
		case ButtonStats:
			err = d.cmdStats(ctx, msg)
		case ButtonHelp:
			err = d.cmdHelp(msg)
		default:
			err = d.handleText(ctx, msg)
		}
	}

	if err != nil {
		log.Error().Err(err).Str("text", msg.Text).Msg("failed to handle message")
		if sendErr := d.reply(msg.Chat.ID, msgSomethingWrong, nil); sendErr != nil {
			log.Error().Err(sendErr).Msg("failed to send error reply")
		}
		return err
	}
	return nil
}

func (d *Dispatcher) cmdStart(ctx context.Context, msg *tgbotapi.Message) error {
	u, created, err := d.users.SyncProfile(ctx, telegramUser(msg.From))
	if err != nil {
		return fmt.Errorf("sync user: %w", err)
	}
	if created {
		zerolog.Ctx(ctx).Info().Int("user_id", u.ID).Msg("created user")
	}

	text := fmt.Sprintf("👋 Hi, %s!\n\n"+
		"🎯 <b>Task Tracker</b> keeps your tasks right here in Telegram.\n\n"+
		"📱 Open the Web App from the button below or from the menu.\n\n"+
		"Commands:\n"+
		"• /mytasks - list your tasks\n"+
		"• /addtask - create a task\n"+
		"• /stats - statistics\n"+
		"• /help - help",
		html.EscapeString(msg.From.FirstName))
	if err := d.reply(msg.Chat.ID, text, MainKeyboard()); err != nil {
		return err
	}

	if kb, ok := WebAppKeyboard(d.webAppURL); ok {
		return d.reply(msg.Chat.ID, "Tap to open the tracker:", kb)
	}
	return nil
}

func (d *Dispatcher) cmdMyTasks(ctx context.Context, msg *tgbotapi.Message) error {
	u, _, err := d.users.EnsureUser(ctx, telegramUser(msg.From))
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	tasks, err := d.tasks.ListTasks(ctx, u.ID, models.TaskFilter{})
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if kb, ok := TaskListKeyboard(tasks); ok {
		return d.reply(msg.Chat.ID, FormatTaskList(tasks), kb)
	}
	return d.reply(msg.Chat.ID, FormatTaskList(tasks), nil)
}

func (d *Dispatcher) cmdAddTask(msg *tgbotapi.Message) error {
	if _, err := d.states.Fire(msg.Chat.ID, msg.From.ID, EventAddTask); err != nil {
		return err
	}
	return d.reply(msg.Chat.ID, "📝 <b>Add New Task</b>\n\nSend me the task title.\n(Send /cancel to abort)", nil)
}

func (d *Dispatcher) cmdCancel(msg *tgbotapi.Message) error {
	if _, err := d.states.Fire(msg.Chat.ID, msg.From.ID, EventCancel); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return d.reply(msg.Chat.ID, "Nothing to cancel.", nil)
		}
		return err
	}
	return d.reply(msg.Chat.ID, "❌ Task creation cancelled.", nil)
}

func (d *Dispatcher) cmdStats(ctx context.Context, msg *tgbotapi.Message) error {
	u, _, err := d.users.EnsureUser(ctx, telegramUser(msg.From))
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	stats, err := d.tasks.Stats(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("task stats: %w", err)
	}
	return d.reply(msg.Chat.ID, FormatStats(stats), nil)
}

func (d *Dispatcher) cmdHelp(msg *tgbotapi.Message) error {
	return d.reply(msg.Chat.ID, "ℹ️ <b>Help</b>\n\n"+
		"Use the keyboard buttons for quick access or open the Web App from the menu.\n\n"+
		"<b>Commands:</b>\n"+
		"/start - start working with the bot\n"+
		"/mytasks - list tasks\n"+
		"/addtask - create a task\n"+
		"/cancel - abort task creation\n"+
		"/stats - statistics", nil)
}

func (d *Dispatcher) handleText(ctx context.Context, msg *tgbotapi.Message) error {
	if d.states.Get(msg.Chat.ID, msg.From.ID) != StateAwaitingTitle {
		return d.reply(msg.Chat.ID, msgIdleHint, nil)
	}

	title := strings.TrimSpace(msg.Text)
	if err := models.ValidateTitle(title); err != nil {
		return d.reply(msg.Chat.ID, fmt.Sprintf("⚠️ The title must be 1 to %d characters. Please send another one or /cancel.", models.TitleMaxLength), nil)
	}

	// Leaving AwaitingTitle claims the title; a concurrent message for the same
	// conversation gets the idle hint instead of creating a second task.
	if _, err := d.states.Fire(msg.Chat.ID, msg.From.ID, EventTitleReceived); err != nil {
		return d.reply(msg.Chat.ID, msgIdleHint, nil)
	}

	task, err := d.createTask(ctx, msg.From, title)
	if err != nil {
		if _, ferr := d.states.Fire(msg.Chat.ID, msg.From.ID, EventAddTask); ferr != nil {
			zerolog.Ctx(ctx).Error().Err(ferr).Msg("failed to restore conversation state")
		}
		return err
	}
	zerolog.Ctx(ctx).Info().Int("task_id", task.ID).Msg("created task")

	return d.reply(msg.Chat.ID, "✅ Task created!\n\n"+FormatTask(task), TaskActionsKeyboard(task.ID))
}

func (d *Dispatcher) createTask(ctx context.Context, from *tgbotapi.User, title string) (*models.Task, error) {
	u, _, err := d.users.EnsureUser(ctx, telegramUser(from))
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	task, err := d.tasks.CreateTask(ctx, u.ID, models.TaskCreateRequest{Title: title})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (d *Dispatcher) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if cq.From == nil {
		return nil
	}
	log := d.log.With().Int64("telegram_id", cq.From.ID).Str("data", cq.Data).Logger()

	action, taskID, err := ParseCallback(cq.Data)
	if err != nil {
		log.Warn().Err(err).Msg("rejected callback")
		return d.answer(cq.ID, msgUnknownAction)
	}

	text, notice, keyboard, err := d.applyAction(ctx, cq.From, action, taskID)
	switch {
	case errors.Is(err, repositories.ErrTaskNotFound):
		return d.answer(cq.ID, msgTaskNotFound)
	case err != nil:
		log.Error().Err(err).Msg("failed to handle callback")
		if answerErr := d.answer(cq.ID, "❌ Error processing action."); answerErr != nil {
			log.Error().Err(answerErr).Msg("failed to answer callback")
		}
		return err
	}

	if cq.Message != nil && cq.Message.Chat != nil {
		edit := tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.ReplyMarkup = keyboard
		if _, err := d.sender.Send(edit); err != nil {
			log.Error().Err(err).Msg("failed to edit message")
		}
	}
	return d.answer(cq.ID, notice)
}

// applyAction performs action for the callback sender and returns the new
// message text, the callback notice and the keyboard to show.
func (d *Dispatcher) applyAction(ctx context.Context, from *tgbotapi.User, action CallbackAction, taskID int) (string, string, *tgbotapi.InlineKeyboardMarkup, error) {
	u, _, err := d.users.EnsureUser(ctx, telegramUser(from))
	if err != nil {
		return "", "", nil, fmt.Errorf("ensure user: %w", err)
	}

	var status models.TaskStatus
	var notice string
	switch action {
	case ActionView:
		task, err := d.tasks.GetTask(ctx, u.ID, taskID)
		if err != nil {
			return "", "", nil, err
		}
		kb := TaskActionsKeyboard(task.ID)
		return FormatTask(task), "", &kb, nil
	case ActionDelete:
		task, err := d.tasks.DeleteTask(ctx, u.ID, taskID)
		if err != nil {
			return "", "", nil, err
		}
		return "🗑 Task deleted:\n<s>" + html.EscapeString(task.Title) + "</s>", "Task deleted!", nil, nil
	case ActionDone:
		status, notice = models.StatusDone, "✅ Marked as done"
	case ActionProgress:
		status, notice = models.StatusInProgress, "🔄 Moved to in progress"
	case ActionTodo:
		status, notice = models.StatusTodo, "⏳ Moved to to do"
	default:
		return "", "", nil, fmt.Errorf("%w: %s", ErrMalformedCallback, action)
	}

	task, err := d.tasks.SetStatus(ctx, u.ID, taskID, status)
	if err != nil {
		return "", "", nil, err
	}
	kb := TaskActionsKeyboard(task.ID)
	return notice + "!\n\n" + FormatTask(task), notice, &kb, nil
}

func (d *Dispatcher) reply(chatID int64, text string, markup any) error {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		m.ReplyMarkup = markup
	}
	if _, err := d.sender.Send(m); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (d *Dispatcher) answer(callbackID, text string) error {
	if _, err := d.sender.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}
