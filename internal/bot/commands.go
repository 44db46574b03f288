package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"desk-planner/internal/logger"
	"desk-planner/internal/model"
	"desk-planner/internal/repository"
	"desk-planner/internal/service"
)

const cbTogglePrefix = "toggle:"

// Sender identifies the Telegram user behind a request.
type Sender struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
}

// Request is one incoming private-chat message.
type Request struct {
	From    Sender
	Command string
	Args    string
	Text    string
}

// Button is an inline button carrying callback data.
type Button struct {
	Label string
	Data  string
}

// Reply is what the bot answers with. Buttons, if any, are shown one per row.
type Reply struct {
	Text    string
	Buttons []Button
}

func textReply(format string, args ...any) Reply {
	return Reply{Text: fmt.Sprintf(format, args...)}
}

// Handler turns chat commands into service calls. It knows nothing about the
// Telegram API so it can be driven directly from tests.
type Handler struct {
	registration *service.RegistrationService
	users        *repository.UserRepository
	desks        *service.DeskService
	categories   *service.CategoryService
	tasks        *service.TaskService
	schedules    *service.ScheduleService
	logger       *zap.Logger
}

// Deps groups the services the handler talks to.
type Deps struct {
	Registration *service.RegistrationService
	Users        *repository.UserRepository
	Desks        *service.DeskService
	Categories   *service.CategoryService
	Tasks        *service.TaskService
	Schedules    *service.ScheduleService
}

func NewHandler(deps Deps, log *zap.Logger) *Handler {
	return &Handler{
		registration: deps.Registration,
		users:        deps.Users,
		desks:        deps.Desks,
		categories:   deps.Categories,
		tasks:        deps.Tasks,
		schedules:    deps.Schedules,
		logger:       logger.OrNop(log).Named("commands"),
	}
}

type commandFunc func(ctx context.Context, user *model.User, args []string) (Reply, error)

// Handle registers the sender if needed and runs the command. Domain errors
// become user-facing replies; anything else is returned.
func (h *Handler) Handle(ctx context.Context, req Request) (Reply, error) {
	command := req.Command
	args := req.Args
	if command == "" {
		alias, ok := menuAliases[strings.ToLower(strings.TrimSpace(req.Text))]
		if !ok {
			return Reply{Text: "I didn't get that. Type /help for the list of commands."}, nil
		}
		command = alias
	}

	user, _, err := h.registration.Register(ctx, req.From.TelegramID, req.From.FirstName, req.From.LastName, req.From.Username)
	if err != nil {
		return Reply{}, fmt.Errorf("register sender: %w", err)
	}

	var fn commandFunc
	switch command {
	case "start":
		return h.start(user), nil
	case "help":
		return Reply{Text: helpText}, nil
	case "desks":
		fn = h.listDesks
	case "newdesk":
		fn = h.newDesk
	case "renamedesk":
		fn = h.renameDesk
	case "deletedesk":
		fn = h.deleteDesk
	case "tasks":
		fn = h.listTasks
	case "newcategory":
		fn = h.newCategory
	case "delcategory":
		fn = h.deleteCategory
	case "newtask":
		fn = h.newTask
	case "task":
		fn = h.showTask
	case "deltask":
		fn = h.deleteTask
	case "toggle":
		fn = h.toggleTask
	case "sharelink":
		fn = h.shareLink
	case "rotate":
		fn = h.rotateLink
	case "join":
		fn = h.join
	case "grant":
		fn = h.grant
	case "revoke":
		fn = h.revoke
	case "shares":
		fn = h.listShares
	case "templates":
		fn = h.listTemplates
	case "newtemplate":
		fn = h.newTemplate
	case "deltemplate":
		fn = h.deleteTemplate
	case "trigger":
		fn = h.addTrigger
	case "untrigger":
		fn = h.removeTrigger
	case "bind":
		fn = h.bind
	case "unbind":
		fn = h.unbind
	default:
		return Reply{Text: "Unknown command. See /help."}, nil
	}

	reply, err := fn(ctx, user, strings.Fields(args))
	if err != nil {
		if text, ok := errorText(err); ok {
			return Reply{Text: text}, nil
		}
		return Reply{}, err
	}
	return reply, nil
}

// HandleCallback answers an inline button press.
func (h *Handler) HandleCallback(ctx context.Context, from Sender, data string) (Reply, error) {
	if !strings.HasPrefix(data, cbTogglePrefix) {
		return Reply{}, nil
	}
	taskID, slug, ok := parseToggleData(data)
	if !ok {
		return Reply{}, nil
	}
	user, _, err := h.registration.Register(ctx, from.TelegramID, from.FirstName, from.LastName, from.Username)
	if err != nil {
		return Reply{}, fmt.Errorf("register sender: %w", err)
	}
	reply, err := h.toggleTask(ctx, user, []string{slug, strconv.FormatUint(uint64(taskID), 10)})
	if err != nil {
		if text, ok := errorText(err); ok {
			return Reply{Text: text}, nil
		}
		return Reply{}, err
	}
	return reply, nil
}

func (h *Handler) start(user *model.User) Reply {
	name := strings.TrimSpace(user.FirstName)
	if name == "" {
		name = user.DisplayName()
	}
	return textReply("👋 Hi, %s!\n<b>Desks keep your tasks; schedules wake them up on time.</b>\n\n%s",
		escape(name), helpText)
}

func (h *Handler) listDesks(ctx context.Context, user *model.User, _ []string) (Reply, error) {
	views, err := h.desks.ListDesks(ctx, user)
	if err != nil {
		return Reply{}, err
	}
	if len(views) == 0 {
		return Reply{Text: "You have no desks yet. Create one with /newdesk &lt;name&gt;."}, nil
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Your desks</b>\n")
	for _, v := range views {
		b.WriteString(formatDesk(v))
	}
	return Reply{Text: b.String()}, nil
}

func (h *Handler) newDesk(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) == 0 {
		return Reply{Text: "Usage: /newdesk &lt;name&gt;"}, nil
	}
	desk, err := h.desks.CreateDesk(ctx, user, strings.Join(args, " "))
	if err != nil {
		return Reply{}, err
	}
	return textReply("✅ Desk <b>%s</b> created. Its slug is <code>%s</code>.", escape(desk.Name), escape(desk.Slug)), nil
}

func (h *Handler) renameDesk(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{Text: "Usage: /renamedesk &lt;desk&gt; &lt;name&gt;"}, nil
	}
	desk, err := h.desks.RenameDesk(ctx, user, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return Reply{}, err
	}
	return textReply("✏️ Desk <code>%s</code> is now <b>%s</b>.", escape(desk.Slug), escape(desk.Name)), nil
}

func (h *Handler) deleteDesk(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{Text: "Usage: /deletedesk &lt;desk&gt;"}, nil
	}
	if err := h.desks.DeleteDesk(ctx, user, args[0]); err != nil {
		return Reply{}, err
	}
	return textReply("🗑 Desk <code>%s</code> deleted with its tasks and schedules.", escape(args[0])), nil
}

func (h *Handler) listTasks(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{Text: "Usage: /tasks &lt;desk&gt;"}, nil
	}
	slug := args[0]
	categories, err := h.categories.List(ctx, user, slug)
	if err != nil {
		return Reply{}, err
	}
	tasks, err := h.tasks.ListTasks(ctx, user, slug)
	if err != nil {
		return Reply{}, err
	}
	if len(categories) == 0 {
		return Reply{Text: "This desk is empty. Add a category with /newcategory."}, nil
	}

	byCategory := make(map[uint][]model.Task, len(categories))
	for _, task := range tasks {
		byCategory[task.CategoryID] = append(byCategory[task.CategoryID], task)
	}

	var b strings.Builder
	var buttons []Button
	for _, category := range categories {
		b.WriteString(fmt.Sprintf("%s <i>(#%d)</i>\n", categoryLabel(category.Title), category.ID))
		list := byCategory[category.ID]
		if len(list) == 0 {
			b.WriteString("   no tasks\n\n")
			continue
		}
		for _, task := range list {
			b.WriteString(formatTask(task))
			if data, ok := toggleData(task.ID, slug); ok {
				buttons = append(buttons, Button{Label: toggleLabel(task), Data: data})
			}
		}
	}
	return Reply{Text: b.String(), Buttons: buttons}, nil
}

func (h *Handler) newCategory(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{Text: "Usage: /newcategory &lt;desk&gt; &lt;title&gt;"}, nil
	}
	category, err := h.categories.Create(ctx, user, args[0], strings.Join(args[1:], " "), "")
	if err != nil {
		return Reply{}, err
	}
	return textReply("✅ Category %s created (#%d).", categoryLabel(category.Title), category.ID), nil
}

func (h *Handler) deleteCategory(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 2 {
		return Reply{Text: "Usage: /delcategory &lt;desk&gt; &lt;categoryID&gt;"}, nil
	}
	categoryID, ok := parseID(args[1])
	if !ok {
		return Reply{Text: "Category ID must be a number."}, nil
	}
	if err := h.categories.Delete(ctx, user, args[0], categoryID); err != nil {
		return Reply{}, err
	}
	return textReply("🗑 Category #%d deleted with its tasks.", categoryID), nil
}

func (h *Handler) newTask(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) < 3 {
		return Reply{Text: "Usage: /newtask &lt;desk&gt; &lt;categoryID&gt; &lt;title&gt;"}, nil
	}
	categoryID, ok := parseID(args[1])
	if !ok {
		return Reply{Text: "Category ID must be a number."}, nil
	}
	task, err := h.tasks.CreateTask(ctx, user, args[0], service.TaskInput{
		CategoryID: categoryID,
		Title:      strings.Join(args[2:], " "),
	})
	if err != nil {
		return Reply{}, err
	}
	return textReply("✅ Task <b>#%d</b> %s added.", task.ID, escape(normalizeTitle(task.Title))), nil
}

func (h *Handler) showTask(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 2 {
		return Reply{Text: "Usage: /task &lt;desk&gt; &lt;taskID&gt;"}, nil
	}
	taskID, ok := parseID(args[1])
	if !ok {
		return Reply{Text: "Task ID must be a number."}, nil
	}
	task, err := h.tasks.GetTask(ctx, user, args[0], taskID)
	if err != nil {
		return Reply{}, err
	}
	bindings, err := h.schedules.ListBindings(ctx, user, args[0], taskID)
	if err != nil {
		return Reply{}, err
	}

	var b strings.Builder
	b.WriteString(formatTask(*task))
	b.WriteString(formatBindings(bindings))
	reply := Reply{Text: b.String()}
	if data, ok := toggleData(task.ID, args[0]); ok {
		reply.Buttons = []Button{{Label: toggleLabel(*task), Data: data}}
	}
	return reply, nil
}

func (h *Handler) deleteTask(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 2 {
		return Reply{Text: "Usage: /deltask &lt;desk&gt; &lt;taskID&gt;"}, nil
	}
	taskID, ok := parseID(args[1])
	if !ok {
		return Reply{Text: "Task ID must be a number."}, nil
	}
	if err := h.tasks.DeleteTask(ctx, user, args[0], taskID); err != nil {
		return Reply{}, err
	}
	return textReply("🗑 Task #%d deleted.", taskID), nil
}

func (h *Handler) toggleTask(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 2 {
		return Reply{Text: "Usage: /toggle &lt;desk&gt; &lt;taskID&gt;"}, nil
	}
	taskID, ok := parseID(args[1])
	if !ok {
		return Reply{Text: "Task ID must be a number."}, nil
	}
	task, err := h.tasks.ToggleTask(ctx, user, args[0], taskID)
	if err != nil {
		return Reply{}, err
	}
	if task.IsActive {
		return textReply("%s Task «%s» is due again.", iconDue, escape(normalizeTitle(task.Title))), nil
	}
	return textReply("%s Task «%s» is done.", iconDone, escape(normalizeTitle(task.Title))), nil
}

func (h *Handler) shareLink(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{Text: "Usage: /sharelink &lt;desk&gt;"}, nil
	}
	token, err := h.desks.ShareToken(ctx, user, args[0])
	if err != nil {
		return Reply{}, err
	}
	return textReply("🔗 Send this to join the desk with view access:\n<code>/join %s</code>", escape(token)), nil
}

func (h *Handler) rotateLink(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{Text: "Usage: /rotate &lt;desk&gt;"}, nil
	}
	token, err := h.desks.RefreshShareToken(ctx, user, args[0])
	if err != nil {
		return Reply{}, err
	}
	return textReply("🔄 The old link no longer works. New one:\n<code>/join %s</code>", escape(token)), nil
}

func (h *Handler) join(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{Text: "Usage: /join &lt;token&gt;"}, nil
	}
	desk, err := h.desks.AcceptShare(ctx, user, args[0])
	if err != nil {
		return Reply{}, err
	}
	return textReply("🤝 You now have access to <b>%s</b> (<code>%s</code>).", escape(desk.Name), escape(desk.Slug)), nil
}

func (h *Handler) grant(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 3 {
		return Reply{Text: "Usage: /grant &lt;desk&gt; &lt;username&gt; &lt;view|admin&gt;"}, nil
	}
	target, err := h.users.FindByUsername(ctx, strings.TrimPrefix(args[1], "@"))
	if err != nil {
		return Reply{}, err
	}
	share, err := h.desks.GrantPermission(ctx, user, args[0], target.ID, model.Permission(strings.ToLower(args[2])))
	if err != nil {
		return Reply{}, err
	}
	return textReply("✅ %s now has %s access.", escape(target.DisplayName()), permissionLabel(share.Permission)), nil
}

func (h *Handler) revoke(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 2 {
		return Reply{Text: "Usage: /revoke &lt;desk&gt; &lt;username&gt;"}, nil
	}
	target, err := h.users.FindByUsername(ctx, strings.TrimPrefix(args[1], "@"))
	if err != nil {
		return Reply{}, err
	}
	if err := h.desks.RevokeShare(ctx, user, args[0], target.ID); err != nil {
		return Reply{}, err
	}
	return textReply("🚫 %s no longer has access.", escape(target.DisplayName())), nil
}

func (h *Handler) listShares(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{Text: "Usage: /shares &lt;desk&gt;"}, nil
	}
	shares, err := h.desks.ListShares(ctx, user, args[0])
	if err != nil {
		return Reply{}, err
	}
	if len(shares) == 0 {
		return Reply{Text: "Nobody else has access. Send /sharelink to invite someone."}, nil
	}
	var b strings.Builder
	b.WriteString("👥 <b>Shared with</b>\n")
	for _, share := range shares {
		b.WriteString(formatShare(share))
	}
	return Reply{Text: b.String()}, nil
}

func (h *Handler) listTemplates(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 1 {
		return Reply{Text: "Usage: /templates &lt;desk&gt;"}, nil
	}
	templates, err := h.schedules.ListTemplates(ctx, user, args[0])
	if err != nil {
		return Reply{}, err
	}
	if len(templates) == 0 {
		return Reply{Text: "No schedules yet. Create one with /newtemplate."}, nil
	}
	var b strings.Builder
	b.WriteString("🗓 <b>Schedules</b>\n")
	for _, tpl := range templates {
		b.WriteString(formatTemplate(tpl))
	}
	return Reply{Text: b.String()}, nil
}

func (h *Handler) newTemplate(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) < 2 {
		return Reply{Text: "Usage: /newtemplate &lt;desk&gt; &lt;name&gt;"}, nil
	}
	tpl, err := h.schedules.CreateTemplate(ctx, user, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return Reply{}, err
	}
	return textReply("✅ Schedule <b>%s</b> created (#%d). Add moments with /trigger.", escape(tpl.Name), tpl.ID), nil
}

func (h *Handler) deleteTemplate(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 2 {
		return Reply{Text: "Usage: /deltemplate &lt;desk&gt; &lt;templateID&gt;"}, nil
	}
	templateID, ok := parseID(args[1])
	if !ok {
		return Reply{Text: "Template ID must be a number."}, nil
	}
	if err := h.schedules.DeleteTemplate(ctx, user, args[0], templateID); err != nil {
		return Reply{}, err
	}
	return textReply("🗑 Schedule #%d deleted. Its tasks no longer follow it.", templateID), nil
}

func (h *Handler) addTrigger(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 4 {
		return Reply{Text: "Usage: /trigger &lt;desk&gt; &lt;templateID&gt; &lt;day&gt; &lt;HH:MM&gt;"}, nil
	}
	templateID, ok := parseID(args[1])
	if !ok {
		return Reply{Text: "Template ID must be a number."}, nil
	}
	day, err := model.ParseWeekday(args[2])
	if err != nil {
		return Reply{Text: "Day must be 0..6 (Monday=0) or a day name like mon or friday."}, nil
	}
	at, err := model.ParseTimeOfDay(args[3])
	if err != nil {
		return Reply{Text: "Time must look like 09:30."}, nil
	}
	trigger, err := h.schedules.AddTrigger(ctx, user, args[0], templateID, day, at)
	if err != nil {
		return Reply{}, err
	}
	return textReply("⏰ Every %s at %s (moment #%d).", trigger.DayOfWeek, trigger.Time, trigger.ID), nil
}

func (h *Handler) removeTrigger(ctx context.Context, user *model.User, args []string) (Reply, error) {
	if len(args) != 3 {
		return Reply{Text: "Usage: /untrigger &lt;desk&gt; &lt;templateID&gt; &lt;momentID&gt;"}, nil
	}
	templateID, ok := parseID(args[1])
	if !ok {
		return Reply{Text: "Template ID must be a number."}, nil
	}
	triggerID, ok := parseID(args[2])
	if !ok {
		return Reply{Text: "Moment ID must be a number."}, nil
	}
	if err := h.schedules.RemoveTrigger(ctx, user, args[0], templateID, triggerID); err != nil {
		return Reply{}, err
	}
	return textReply("✂️ Moment #%d removed from schedule #%d.", triggerID, templateID), nil
}

func (h *Handler) bind(ctx context.Context, user *model.User, args []string) (Reply, error) {
	taskID, templateID, reply, ok := parsePair(args, "/bind")
	if !ok {
		return reply, nil
	}
	if _, err := h.schedules.BindTask(ctx, user, args[0], taskID, templateID); err != nil {
		return Reply{}, err
	}
	return textReply("🔗 Task #%d follows schedule #%d.", taskID, templateID), nil
}

func (h *Handler) unbind(ctx context.Context, user *model.User, args []string) (Reply, error) {
	taskID, templateID, reply, ok := parsePair(args, "/unbind")
	if !ok {
		return reply, nil
	}
	removed, err := h.schedules.UnbindTask(ctx, user, args[0], taskID, templateID)
	if err != nil {
		return Reply{}, err
	}
	if !removed {
		return textReply("Task #%d was not bound to schedule #%d.", taskID, templateID), nil
	}
	return textReply("✂️ Task #%d no longer follows schedule #%d.", taskID, templateID), nil
}

func parsePair(args []string, command string) (uint, uint, Reply, bool) {
	if len(args) != 3 {
		return 0, 0, textReply("Usage: %s &lt;desk&gt; &lt;taskID&gt; &lt;templateID&gt;", command), false
	}
	taskID, ok := parseID(args[1])
	if !ok {
		return 0, 0, Reply{Text: "Task ID must be a number."}, false
	}
	templateID, ok := parseID(args[2])
	if !ok {
		return 0, 0, Reply{Text: "Template ID must be a number."}, false
	}
	return taskID, templateID, Reply{}, true
}

func parseID(raw string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}

// toggleData encodes a toggle button; Telegram caps callback data at 64 bytes.
func toggleData(taskID uint, slug string) (string, bool) {
	data := fmt.Sprintf("%s%d:%s", cbTogglePrefix, taskID, slug)
	return data, len(data) <= 64
}

func parseToggleData(data string) (uint, string, bool) {
	raw := strings.TrimPrefix(data, cbTogglePrefix)
	idPart, slug, found := strings.Cut(raw, ":")
	if !found || slug == "" {
		return 0, "", false
	}
	id, ok := parseID(idPart)
	return id, slug, ok
}

// errorText maps domain errors to fixed replies. Not-found replies never say
// whether the object exists for someone else.
func errorText(err error) (string, bool) {
	if errors.Is(err, model.ErrForbidden) {
		return "⛔ You don't have permission to do that on this desk.", true
	}
	var dErr *model.Error
	if !errors.As(err, &dErr) {
		return "", false
	}
	switch dErr.Code {
	case model.ErrCodeNotFound:
		return "🔍 " + sentence(dErr.Message) + ".", true
	case model.ErrCodeForbidden:
		return "⛔ " + sentence(dErr.Message) + ".", true
	case model.ErrCodeInvalid, model.ErrCodeConflict:
		return "⚠️ " + sentence(dErr.Message) + ".", true
	default:
		return "", false
	}
}
