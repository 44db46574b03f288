package bot

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"desk-planner/internal/repository"
	"desk-planner/internal/service"
	"desk-planner/internal/testutil"
)

var (
	alice = Sender{TelegramID: 100, FirstName: "Alice", Username: "alice"}
	bob   = Sender{TelegramID: 200, FirstName: "Bob", Username: "bob"}
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zaptest.NewLogger(t)

	users := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	desks := service.NewDeskService(repository.NewDeskRepository(db), users, log)

	return NewHandler(Deps{
		Registration: service.NewRegistrationService(users, desks, log),
		Users:        users,
		Desks:        desks,
		Categories:   service.NewCategoryService(categoryRepo, desks),
		Tasks:        service.NewTaskService(taskRepo, categoryRepo, desks),
		Schedules:    service.NewScheduleService(repository.NewScheduleRepository(db), taskRepo, desks, log),
	}, log)
}

func run(t *testing.T, h *Handler, from Sender, line string) Reply {
	t.Helper()
	command, args, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	reply, err := h.Handle(context.Background(), Request{From: from, Command: command, Args: args, Text: line})
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return reply
}

func expectContains(t *testing.T, reply Reply, want string) {
	t.Helper()
	if !strings.Contains(reply.Text, want) {
		t.Fatalf("reply %q does not contain %q", reply.Text, want)
	}
}

func TestStartRegistersUserWithDefaultDesk(t *testing.T) {
	h := newTestHandler(t)

	expectContains(t, run(t, h, alice, "/start"), "Hi, Alice")
	run(t, h, alice, "/start")

	reply := run(t, h, alice, "/desks")
	expectContains(t, reply, "My Desk")
	expectContains(t, reply, "my-desk")
	if strings.Count(reply.Text, "My Desk") != 1 {
		t.Fatalf("default desk created more than once: %q", reply.Text)
	}
}

func TestStartGreetsByFirstName(t *testing.T) {
	h := newTestHandler(t)

	reply := run(t, h, alice, "/start")
	if strings.Contains(reply.Text, "@alice") {
		t.Fatalf("greeting uses the username: %q", reply.Text)
	}
	anon := Sender{TelegramID: 300, Username: "ghost"}
	expectContains(t, run(t, h, anon, "/start"), "Hi, @ghost!")
	expectContains(t, run(t, h, Sender{TelegramID: 400}, "/start"), "Hi, user!")
}

func TestMenuAliasAndUnknownText(t *testing.T) {
	h := newTestHandler(t)

	reply, err := h.Handle(context.Background(), Request{From: alice, Text: menuLabelHelp})
	if err != nil {
		t.Fatalf("alias: %v", err)
	}
	expectContains(t, reply, "/newdesk")

	reply, err = h.Handle(context.Background(), Request{From: alice, Text: "hello there"})
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	expectContains(t, reply, "/help")
}

func TestTaskFlowWithToggleButtons(t *testing.T) {
	h := newTestHandler(t)

	expectContains(t, run(t, h, alice, "/newdesk Home"), "<code>home</code>")
	expectContains(t, run(t, h, alice, "/newcategory home Chores"), "#1")
	expectContains(t, run(t, h, alice, "/newtask home 1 take out trash"), "Take out trash")
	expectContains(t, run(t, h, alice, "/newtask home x trash"), "must be a number")

	list := run(t, h, alice, "/tasks home")
	expectContains(t, list, iconIdle+" <b>#1</b> Take out trash")
	if len(list.Buttons) != 1 || list.Buttons[0].Data != "toggle:1:home" {
		t.Fatalf("buttons = %+v", list.Buttons)
	}

	reply, err := h.HandleCallback(context.Background(), alice, list.Buttons[0].Data)
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	expectContains(t, reply, "is due again")
	expectContains(t, run(t, h, alice, "/tasks home"), iconDue+" <b>#1</b>")
	expectContains(t, run(t, h, alice, "/toggle home 1"), "is done")
}

func TestForeignDeskLooksMissing(t *testing.T) {
	h := newTestHandler(t)
	run(t, h, alice, "/newdesk Secret Plans")

	foreign := run(t, h, bob, "/tasks secret-plans")
	missing := run(t, h, bob, "/tasks no-such-desk")
	if foreign.Text != missing.Text {
		t.Fatalf("foreign desk reply %q differs from missing desk reply %q", foreign.Text, missing.Text)
	}
	expectContains(t, foreign, "Desk not found")
}

func TestSharingFlow(t *testing.T) {
	h := newTestHandler(t)
	run(t, h, alice, "/newdesk Family")
	run(t, h, alice, "/newcategory family Groceries")

	link := run(t, h, alice, "/sharelink family")
	start := strings.Index(link.Text, "/join ")
	end := strings.Index(link.Text, "</code>")
	if start < 0 || end < start {
		t.Fatalf("no join command in %q", link.Text)
	}
	token := link.Text[start+len("/join ") : end]

	expectContains(t, run(t, h, bob, "/sharelink family"), "Desk not found")
	expectContains(t, run(t, h, bob, "/join "+token), "Family")
	expectContains(t, run(t, h, bob, "/tasks family"), "Groceries")
	expectContains(t, run(t, h, bob, "/newcategory family Mine"), "permission")

	expectContains(t, run(t, h, alice, "/grant family @bob admin"), "admin access")
	expectContains(t, run(t, h, bob, "/newcategory family Mine"), "created")
	expectContains(t, run(t, h, alice, "/grant family bob owner"), "Permission must be view or admin")
	expectContains(t, run(t, h, alice, "/grant family nobody view"), "User not found")

	expectContains(t, run(t, h, alice, "/rotate family"), "/join ")
	expectContains(t, run(t, h, alice, "/revoke family bob"), "no longer has access")
	expectContains(t, run(t, h, bob, "/tasks family"), "Desk not found")
	expectContains(t, run(t, h, bob, "/join "+token), "Desk not found")
}

func TestScheduleCommands(t *testing.T) {
	h := newTestHandler(t)
	run(t, h, alice, "/newdesk Home")
	run(t, h, alice, "/newcategory home Chores")
	run(t, h, alice, "/newtask home 1 water plants")

	expectContains(t, run(t, h, alice, "/newtemplate home Weekly"), "#1")
	expectContains(t, run(t, h, alice, "/trigger home 1 wed 09:00"), "Every Wednesday at 09:00")
	expectContains(t, run(t, h, alice, "/trigger home 1 2 09:00"), "already exists")
	expectContains(t, run(t, h, alice, "/trigger home 1 someday 09:00"), "Day must be")
	expectContains(t, run(t, h, alice, "/trigger home 1 mon 25:00"), "Time must look like")
	expectContains(t, run(t, h, alice, "/trigger home 9 mon 10:00"), "Schedule template not found")

	templates := run(t, h, alice, "/templates home")
	expectContains(t, templates, "Weekly")
	expectContains(t, templates, "Wednesday 09:00")

	expectContains(t, run(t, h, alice, "/bind home 1 1"), "follows schedule #1")
	expectContains(t, run(t, h, alice, "/bind home 1 1"), "follows schedule #1")
	expectContains(t, run(t, h, alice, "/unbind home 1 1"), "no longer follows")
	expectContains(t, run(t, h, alice, "/bind home 1"), "Usage: /bind")
}

func TestDeskMaintenanceCommands(t *testing.T) {
	h := newTestHandler(t)
	run(t, h, alice, "/newdesk Family")
	run(t, h, alice, "/newcategory family Groceries")
	run(t, h, alice, "/newcategory family Chores")
	run(t, h, alice, "/newtask family 1 milk")
	run(t, h, alice, "/newtask family 2 vacuum")

	expectContains(t, run(t, h, alice, "/renamedesk family Our Family"), "is now <b>Our Family</b>")
	expectContains(t, run(t, h, alice, "/desks"), "Our Family")
	expectContains(t, run(t, h, alice, "/renamedesk family"), "Usage: /renamedesk")

	expectContains(t, run(t, h, alice, "/shares family"), "Nobody else")
	link := run(t, h, alice, "/sharelink family")
	token := strings.TrimSuffix(link.Text[strings.Index(link.Text, "/join ")+len("/join "):], "</code>")
	run(t, h, bob, "/join "+token)
	expectContains(t, run(t, h, alice, "/shares family"), "@bob · view")
	expectContains(t, run(t, h, bob, "/shares family"), "permission")
	expectContains(t, run(t, h, bob, "/renamedesk family Mine"), "permission")
	expectContains(t, run(t, h, bob, "/deletedesk family"), "permission")

	task := run(t, h, bob, "/task family 2")
	expectContains(t, task, "Vacuum")
	expectContains(t, task, "follows no schedule")
	if len(task.Buttons) != 1 || task.Buttons[0].Data != "toggle:2:family" {
		t.Fatalf("task buttons = %+v", task.Buttons)
	}
	expectContains(t, run(t, h, bob, "/deltask family 2"), "permission")
	expectContains(t, run(t, h, alice, "/deltask family 2"), "Task #2 deleted")
	expectContains(t, run(t, h, alice, "/task family 2"), "Task not found")
	expectContains(t, run(t, h, alice, "/deltask family x"), "must be a number")

	expectContains(t, run(t, h, alice, "/delcategory family 1"), "Category #1 deleted")
	list := run(t, h, alice, "/tasks family")
	if strings.Contains(list.Text, "Groceries") || strings.Contains(list.Text, "Milk") {
		t.Fatalf("deleted category still listed: %q", list.Text)
	}
	expectContains(t, run(t, h, alice, "/delcategory family 1"), "Category not found")

	expectContains(t, run(t, h, alice, "/deletedesk family"), "deleted")
	expectContains(t, run(t, h, alice, "/tasks family"), "Desk not found")
	expectContains(t, run(t, h, bob, "/tasks family"), "Desk not found")
}

func TestScheduleMaintenanceCommands(t *testing.T) {
	h := newTestHandler(t)
	run(t, h, alice, "/newdesk Home")
	run(t, h, alice, "/newcategory home Chores")
	run(t, h, alice, "/newtask home 1 water plants")
	run(t, h, alice, "/newtemplate home Weekly")

	expectContains(t, run(t, h, alice, "/trigger home 1 wed 09:00"), "moment #1")
	expectContains(t, run(t, h, alice, "/trigger home 1 fri 18:30"), "moment #2")
	expectContains(t, run(t, h, alice, "/templates home"), "<i>#2</i> Friday 18:30")

	run(t, h, alice, "/bind home 1 1")
	expectContains(t, run(t, h, alice, "/task home 1"), "follows #1")

	expectContains(t, run(t, h, alice, "/untrigger home 1 2"), "Moment #2 removed")
	if templates := run(t, h, alice, "/templates home"); strings.Contains(templates.Text, "Friday") {
		t.Fatalf("removed moment still listed: %q", templates.Text)
	}
	expectContains(t, run(t, h, alice, "/untrigger home 1 2"), "Trigger not found")
	expectContains(t, run(t, h, alice, "/untrigger home 1"), "Usage: /untrigger")

	expectContains(t, run(t, h, alice, "/deltemplate home 1"), "Schedule #1 deleted")
	expectContains(t, run(t, h, alice, "/task home 1"), "follows no schedule")
	expectContains(t, run(t, h, alice, "/templates home"), "No schedules yet")
	expectContains(t, run(t, h, alice, "/deltemplate home 1"), "Schedule template not found")
}

func TestToggleDataRoundTrip(t *testing.T) {
	t.Parallel()
	data, ok := toggleData(42, "home-chores")
	if !ok {
		t.Fatalf("short data rejected")
	}
	id, slug, ok := parseToggleData(data)
	if !ok || id != 42 || slug != "home-chores" {
		t.Fatalf("parse %q = %d %q %v", data, id, slug, ok)
	}
	if _, ok := toggleData(1, strings.Repeat("x", 64)); ok {
		t.Fatalf("oversized data accepted")
	}
	if _, _, ok := parseToggleData("toggle:abc"); ok {
		t.Fatalf("malformed data accepted")
	}
}
