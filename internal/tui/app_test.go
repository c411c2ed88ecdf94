package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/crypto/bcrypt"

	"github.com/naveenspark/roster/internal/memory"
	"github.com/naveenspark/roster/internal/pubsub"
	"github.com/naveenspark/roster/internal/session"
	"github.com/naveenspark/roster/internal/workflow"
	"github.com/naveenspark/roster/pkg/domain"
)

var testNow = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	backend *memory.Backend
	session *session.Session
	svc     *workflow.Service
	feed    *workflow.Feed
	copied  []string
	opened  []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	b := memory.New(memory.WithBcryptCost(bcrypt.MinCost))
	t.Cleanup(b.Close)
	sess, err := session.Open(filepath.Join(t.TempDir(), "session.yaml"), b)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	svc := workflow.New(b, b, sess, workflow.Options{
		CacheTTL: time.Minute,
		Now:      func() time.Time { return testNow },
	})
	feed := svc.NewFeed()
	t.Cleanup(feed.Close)
	return &testEnv{backend: b, session: sess, svc: svc, feed: feed}
}

func (e *testEnv) newApp(t *testing.T) App {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a := NewApp(ctx, e.svc, e.feed, Options{
		Version:        "dev",
		HighlightColor: DefaultHighlightColor,
		CopyText: func(s string) error {
			e.copied = append(e.copied, s)
			return nil
		},
		OpenURL: func(url string) error {
			e.opened = append(e.opened, url)
			return nil
		},
		Now: func() time.Time { return testNow },
	})
	a.width = 100
	a.height = 40
	return a
}

// register creates a signed-in account with a profile.
func (e *testEnv) register(t *testing.T, email, studentID, name string, dept int) domain.StudentProfile {
	t.Helper()
	prof, err := e.svc.Register(context.Background(), domain.RegistrationInput{
		Credentials: domain.Credentials{Email: email, Password: "secret1"},
		Profile: domain.ProfileInput{
			StudentID:        studentID,
			Name:             name,
			DepartmentID:     dept,
			YearOfStudy:      "2",
			RegistrationDate: "2025-09-01",
		},
	}, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return prof
}

func (e *testEnv) seed(uid, studentID, name, date string, dept int) {
	e.backend.Put(domain.StudentProfile{UserID: uid, ProfileFields: domain.ProfileFields{
		StudentID:        studentID,
		Name:             name,
		DepartmentID:     dept,
		YearOfStudy:      "3",
		RegistrationDate: date,
	}})
}

// collect runs cmd and any batched commands, returning the messages they
// produce. Commands still blocked after a short wait (cursor blink, timers)
// are abandoned, and animation ticks are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(300 * time.Millisecond):
		return nil
	}

	switch msg := msg.(type) {
	case nil, spinner.TickMsg, shimmerTickMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// settle feeds every message cmd produces back into the app until no
// commands are left.
func settle(t *testing.T, a App, cmd tea.Cmd) App {
	t.Helper()
	queue := collect(cmd)
	for i := 0; len(queue) > 0; i++ {
		if i > 200 {
			t.Fatal("app did not settle")
		}
		msg := queue[0]
		queue = queue[1:]
		model, next := a.Update(msg)
		a = model.(App)
		queue = append(queue, collect(next)...)
	}
	return a
}

func press(t *testing.T, a App, key tea.KeyMsg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(key)
	return model.(App), cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// nextFeedEvent waits for the app's listener to deliver a directory update.
func nextFeedEvent(t *testing.T, a App) App {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- a.listener.Listen()() }()
	select {
	case msg := <-done:
		model, _ := a.Update(msg)
		return model.(App)
	case <-time.After(2 * time.Second):
		t.Fatal("no directory update")
		return a
	}
}

// nextFeedEventAfterStart starts the feed and waits for its first update.
func nextFeedEventAfterStart(t *testing.T, a App) App {
	t.Helper()
	a = settle(t, a, a.startFeed())
	return nextFeedEvent(t, a)
}

func TestAppStartsOnLoginWhenSignedOut(t *testing.T) {
	env := newTestEnv(t)
	a := env.newApp(t)
	if a.screen != screenLogin {
		t.Fatalf("expected login screen, got %s", a.screen)
	}
	if !strings.Contains(a.View(), "Log in") {
		t.Error("expected login form in view")
	}
}

func TestAppStartsOnDirectoryWhenSignedIn(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ayesha@uni.edu", "22L-1234", "Ayesha", 1)

	a := env.newApp(t)
	if a.screen != screenDirectory {
		t.Fatalf("expected directory screen, got %s", a.screen)
	}
}

func TestAppLoginShowsDirectory(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ayesha@uni.edu", "22L-1234", "Ayesha", 1)
	if err := env.svc.SignOut(context.Background()); err != nil {
		t.Fatal(err)
	}
	env.seed("u-other", "21L-0001", "Bilal", "2024-09-01", 1)
	env.seed("u-third", "21L-0002", "Sana", "2023-09-01", 4)

	a := env.newApp(t)
	a, _ = press(t, a, keyRunes("ayesha@uni.edu"))
	a, _ = press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	a, _ = press(t, a, keyRunes("secret1"))
	a, cmd := press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	if !a.login.pending {
		t.Fatal("expected login to be pending after submit")
	}

	a = settle(t, a, cmd)
	if a.screen != screenDirectory {
		t.Fatalf("expected directory screen after login, got %s (status %q)", a.screen, a.login.status)
	}
	if !env.session.LoggedIn() {
		t.Error("expected session to be logged in")
	}

	a = nextFeedEvent(t, a)
	view := a.View()
	for _, want := range []string{"Hello Ayesha", "Bilal", "Sana", "22L-1234"} {
		if !strings.Contains(view, want) {
			t.Errorf("directory view missing %q", want)
		}
	}
	entries := a.directory.dir.Entries
	if len(entries) != 2 || entries[0].Profile.Name != "Sana" {
		t.Fatalf("expected Sana first by registration date, got %+v", entries)
	}
	if entries[0].SameDepartment || !entries[1].SameDepartment {
		t.Errorf("expected only Bilal highlighted, got %v %v", entries[0].SameDepartment, entries[1].SameDepartment)
	}
}

func TestAppLoginValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	a := env.newApp(t)

	a, cmd := press(t, a, tea.KeyMsg{Type: tea.KeyCtrlS})
	a = settle(t, a, cmd)

	if a.screen != screenLogin {
		t.Fatalf("expected to stay on login, got %s", a.screen)
	}
	view := a.View()
	for _, want := range []string{"Email is required", "Password is required"} {
		if !strings.Contains(view, want) {
			t.Errorf("login view missing %q", want)
		}
	}
	if len(env.backend.Calls()) != 0 {
		t.Errorf("expected no remote calls, got %v", env.backend.Calls())
	}
}

func TestAppLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ayesha@uni.edu", "22L-1234", "Ayesha", 1)
	if err := env.svc.SignOut(context.Background()); err != nil {
		t.Fatal(err)
	}

	a := env.newApp(t)
	a, _ = press(t, a, keyRunes("ayesha@uni.edu"))
	a, _ = press(t, a, tea.KeyMsg{Type: tea.KeyTab})
	a, _ = press(t, a, keyRunes("wrong-password"))
	a, cmd := press(t, a, tea.KeyMsg{Type: tea.KeyCtrlS})
	a = settle(t, a, cmd)

	if a.screen != screenLogin {
		t.Fatalf("expected to stay on login, got %s", a.screen)
	}
	if a.login.status != "incorrect password" {
		t.Errorf("status = %q, want %q", a.login.status, "incorrect password")
	}
}

func TestAppPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ayesha@uni.edu", "22L-1234", "Ayesha", 1)
	if err := env.svc.SignOut(context.Background()); err != nil {
		t.Fatal(err)
	}

	a := env.newApp(t)
	a, _ = press(t, a, keyRunes("ayesha@uni.edu"))
	a, cmd := press(t, a, tea.KeyMsg{Type: tea.KeyCtrlR})
	a = settle(t, a, cmd)

	if got := env.backend.PasswordResets(); len(got) != 1 || got[0] != "ayesha@uni.edu" {
		t.Errorf("password resets = %v", got)
	}
	if !strings.Contains(a.View(), "Password reset email sent to ayesha@uni.edu") {
		t.Error("expected confirmation in view")
	}
}

func TestAppSignupRegistersAndShowsDirectory(t *testing.T) {
	env := newTestEnv(t)
	a := env.newApp(t)

	a, cmd := press(t, a, tea.KeyMsg{Type: tea.KeyCtrlN})
	a = settle(t, a, cmd)
	if a.screen != screenSignup {
		t.Fatalf("expected signup screen, got %s", a.screen)
	}

	fill := []tea.KeyMsg{
		keyRunes("new@uni.edu"), {Type: tea.KeyTab},
		keyRunes("secret1"), {Type: tea.KeyTab},
		keyRunes("23L-4321"), {Type: tea.KeyTab},
		keyRunes("Hamza"), {Type: tea.KeyTab},
		keyRunes("l"), keyRunes("l"), {Type: tea.KeyTab},
		keyRunes("1"), {Type: tea.KeyTab},
	}
	for _, k := range fill {
		a, _ = press(t, a, k)
	}
	if got := a.signup.form.department(domain.FieldDepartment); got != 2 {
		t.Fatalf("department = %d, want 2", got)
	}

	a, cmd = press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	if !a.signup.pending() {
		t.Fatal("expected form to lock while registering")
	}
	a = settle(t, a, cmd)

	if a.screen != screenDirectory {
		t.Fatalf("expected directory after signup, got %s (status %q)", a.screen, a.signup.status)
	}
	if !env.backend.HasAccount("new@uni.edu") {
		t.Error("expected account to exist")
	}
	prof, err := env.svc.LoadProfile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if prof.Name != "Hamza" || prof.RegistrationDate != "2026-10-17" {
		t.Errorf("unexpected profile %+v", prof)
	}
}

func TestAppSignupDuplicateStudentID(t *testing.T) {
	env := newTestEnv(t)
	env.seed("u-taken", "23L-4321", "Taken", "2024-01-01", 1)
	a := env.newApp(t)
	a.screen = screenSignup

	a.signup.form.setValue(domain.FieldEmail, "new@uni.edu")
	a.signup.form.setValue(domain.FieldPassword, "secret1")
	a.signup.form.setValue(domain.FieldStudentID, "23L-4321")
	a.signup.form.setValue(domain.FieldName, "Hamza")
	a.signup.form.setDepartment(domain.FieldDepartment, 3)
	a.signup.form.setValue(domain.FieldYearOfStudy, "1")

	a, cmd := press(t, a, tea.KeyMsg{Type: tea.KeyCtrlS})
	a = settle(t, a, cmd)

	if a.screen != screenSignup {
		t.Fatalf("expected to stay on signup, got %s", a.screen)
	}
	if a.signup.status != "23L-4321 already exists" {
		t.Errorf("status = %q", a.signup.status)
	}
	if a.signup.pending() {
		t.Error("expected form unlocked after failure")
	}
	if env.backend.HasAccount("new@uni.edu") {
		t.Error("expected no account to be created")
	}
}

func TestAppSignupShowsEveryFieldError(t *testing.T) {
	env := newTestEnv(t)
	a := env.newApp(t)
	a.screen = screenSignup
	a.signup.form.setValue(domain.FieldStudentID, "bad")
	a.signup.form.setValue(domain.FieldRegistrationDate, "17/10/2026")

	a, cmd := press(t, a, tea.KeyMsg{Type: tea.KeyCtrlS})
	a = settle(t, a, cmd)

	view := a.View()
	for _, want := range []string{
		"Email is required",
		"Password is required",
		"Student ID must be in format XXL-XXXX",
		"Name is required",
		"Please select a valid department",
		"Year of study is required",
		"Date of registration must be in format YYYY-MM-DD",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("signup view missing %q", want)
		}
	}
}

func TestAppEscFromSignupReturnsToLogin(t *testing.T) {
	env := newTestEnv(t)
	a := env.newApp(t)
	a, cmd := press(t, a, tea.KeyMsg{Type: tea.KeyCtrlN})
	a = settle(t, a, cmd)
	a, cmd = press(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	a = settle(t, a, cmd)
	if a.screen != screenLogin {
		t.Errorf("expected login screen, got %s", a.screen)
	}
}

func TestAppEditProfile(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ayesha@uni.edu", "22L-1234", "Ayesha", 1)
	a := env.newApp(t)

	a = nextFeedEventAfterStart(t, a)
	a, cmd := press(t, a, keyRunes("e"))
	a = settle(t, a, cmd)
	if a.screen != screenEdit {
		t.Fatalf("expected edit screen, got %s", a.screen)
	}
	if got := a.edit.form.value(domain.FieldName); got != "Ayesha" {
		t.Fatalf("name field = %q, want loaded profile", got)
	}

	a.edit.form.setValue(domain.FieldName, "Ayesha Khan")
	a, cmd = press(t, a, tea.KeyMsg{Type: tea.KeyCtrlS})
	a = settle(t, a, cmd)

	if a.screen != screenDirectory {
		t.Fatalf("expected directory after save, got %s (status %q)", a.screen, a.edit.status)
	}
	prof, err := env.svc.LoadProfile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if prof.Name != "Ayesha Khan" {
		t.Errorf("name = %q after edit", prof.Name)
	}
}

func TestAppEditRejectsInvalidStudentID(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ayesha@uni.edu", "22L-1234", "Ayesha", 1)
	a := env.newApp(t)

	model, cmd := a.Update(showEditMsg{})
	a = settle(t, model.(App), cmd)
	a.edit.form.setValue(domain.FieldStudentID, "1234")
	a, cmd = press(t, a, tea.KeyMsg{Type: tea.KeyCtrlS})
	a = settle(t, a, cmd)

	if a.screen != screenEdit {
		t.Fatalf("expected to stay on edit, got %s", a.screen)
	}
	if !strings.Contains(a.View(), "Student ID must be in format XXL-XXXX") {
		t.Error("expected student ID error in view")
	}
}

func TestAppSignOut(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ayesha@uni.edu", "22L-1234", "Ayesha", 1)
	a := env.newApp(t)

	a, cmd := press(t, a, keyRunes("o"))
	a = settle(t, a, cmd)

	if a.screen != screenLogin {
		t.Fatalf("expected login after sign-out, got %s", a.screen)
	}
	if env.session.LoggedIn() {
		t.Error("expected session to be signed out")
	}
	if env.feed.Running() {
		t.Error("expected feed to be stopped")
	}
}

func TestAppSignedOutElsewhere(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ayesha@uni.edu", "22L-1234", "Ayesha", 1)
	a := env.newApp(t)

	model, _ := a.Update(sessionChangedMsg{loggedIn: false})
	a = model.(App)
	if a.screen != screenLogin {
		t.Fatalf("expected login screen, got %s", a.screen)
	}
	if !strings.Contains(a.View(), "You were signed out.") {
		t.Error("expected sign-out notice")
	}
}

func TestAppSignedInElsewhere(t *testing.T) {
	env := newTestEnv(t)
	a := env.newApp(t)
	env.register(t, "ayesha@uni.edu", "22L-1234", "Ayesha", 1)

	model, cmd := a.Update(sessionChangedMsg{loggedIn: true})
	a = model.(App)
	if a.screen != screenDirectory {
		t.Fatalf("expected directory screen, got %s", a.screen)
	}
	a = settle(t, a, cmd)
	if !env.feed.Running() {
		t.Error("expected feed to be running")
	}
}

func TestAppFeedUpdatesReachDirectoryFromEdit(t *testing.T) {
	env := newTestEnv(t)
	a := env.newApp(t)
	a.screen = screenEdit

	update := pubsub.Event[workflow.DirectoryUpdate]{
		Type:    pubsub.UpdatedEvent,
		Payload: workflow.DirectoryUpdate{Directory: domain.Directory{}},
	}
	model, cmd := a.Update(update)
	a = model.(App)
	if !a.directory.loaded {
		t.Error("expected directory to receive the update")
	}
	if cmd == nil {
		t.Error("expected listener to be re-armed")
	}
}

func TestAppQuitKeys(t *testing.T) {
	env := newTestEnv(t)
	a := env.newApp(t)

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command on ctrl+c")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}

	// q is text on the login screen.
	model, _ := a.Update(keyRunes("q"))
	if got := model.(App).login.form.value(domain.FieldEmail); got != "q" {
		t.Errorf("email field = %q, want %q", got, "q")
	}

	a.screen = screenDirectory
	_, cmd = a.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("expected quit command on q in directory")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestAppVersionNotice(t *testing.T) {
	env := newTestEnv(t)
	a := env.newApp(t)
	model, _ := a.Update(versionCheckMsg{latestVersion: "v1.2.0", hasUpdate: true})
	if !strings.Contains(model.(App).View(), "update available: v1.2.0") {
		t.Error("expected update notice in header")
	}
}

func TestAppOpenReleasePage(t *testing.T) {
	env := newTestEnv(t)
	a := env.newApp(t)
	a.screen = screenDirectory

	// Without a newer release u does nothing.
	if _, cmd := a.Update(keyRunes("u")); cmd != nil {
		t.Error("expected no command for u without an update")
	}

	model, _ := a.Update(versionCheckMsg{latestVersion: "v1.2.0", hasUpdate: true})
	model, cmd := model.Update(keyRunes("u"))
	if cmd == nil {
		t.Fatal("expected open command")
	}
	model, _ = model.Update(cmd())
	if len(env.opened) != 1 || env.opened[0] != DefaultReleasePage {
		t.Errorf("opened = %v, want [%s]", env.opened, DefaultReleasePage)
	}
	if got := model.(App).directory.status; got != "opened "+DefaultReleasePage {
		t.Errorf("status = %q", got)
	}
}
