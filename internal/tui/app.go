package tui

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/roster/internal/browser"
	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/internal/pubsub"
	"github.com/naveenspark/roster/internal/workflow"
)

type screen int

const (
	screenLogin screen = iota
	screenSignup
	screenDirectory
	screenEdit
)

func (s screen) String() string {
	switch s {
	case screenLogin:
		return "login"
	case screenSignup:
		return "signup"
	case screenDirectory:
		return "directory"
	case screenEdit:
		return "edit"
	default:
		return "unknown"
	}
}

// feedStartedMsg carries the result of (re)subscribing the directory feed.
type feedStartedMsg struct{ err error }

// signedOutMsg carries the result of a sign-out.
type signedOutMsg struct{ err error }

// releaseOpenedMsg carries the result of opening the release page.
type releaseOpenedMsg struct{ err error }

// sessionChangedMsg reports the logged-in state after the session file changed
// outside this process.
type sessionChangedMsg struct{ loggedIn bool }

// Options configure the App. The zero value is usable.
type Options struct {
	// Version is the running build; "dev" disables the release check.
	Version    string
	ReleaseURL string
	// ReleasePage is opened with u when an update is available.
	ReleasePage string
	// OpenURL defaults to browser.Open.
	OpenURL func(string) error
	// HighlightColor marks students in the viewer's department.
	HighlightColor string
	// SessionChanges receives the logged-in state whenever the session file
	// changes, e.g. from session.Watch.
	SessionChanges <-chan bool
	// CopyText writes to the system clipboard. Defaults to clipboard.WriteAll.
	CopyText func(string) error
	Now      func() time.Time
}

// App is the root Bubbletea model.
type App struct {
	ctx      context.Context
	svc      *workflow.Service
	feed     *workflow.Feed
	listener *pubsub.ContinuousListener[workflow.DirectoryUpdate]
	opts     Options

	screen    screen
	login     loginModel
	signup    signupModel
	directory directoryModel
	edit      editModel

	latestVersion string
	width         int
	height        int
	frame         int // logo shimmer animation frame
}

// NewApp creates the TUI. It subscribes to feed immediately; the subscription
// is released when ctx is cancelled.
func NewApp(ctx context.Context, svc *workflow.Service, feed *workflow.Feed, opts Options) App {
	if opts.CopyText == nil {
		opts.CopyText = clipboard.WriteAll
	}
	if opts.OpenURL == nil {
		opts.OpenURL = browser.Open
	}
	if opts.ReleasePage == "" {
		opts.ReleasePage = DefaultReleasePage
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := App{
		ctx:      ctx,
		svc:      svc,
		feed:     feed,
		listener: pubsub.NewContinuousListener[workflow.DirectoryUpdate](ctx, feed),
		opts:     opts,
		login:    newLoginModel(svc),
		signup:   newSignupModel(svc),
		edit:     newEditModel(svc),
	}
	a.directory = a.newDirectory()
	if svc.Session().LoggedIn() {
		a.screen = screenDirectory
	}
	return a
}

func (a App) newDirectory() directoryModel {
	d := newDirectoryModel(a.opts.HighlightColor, a.opts.CopyText, a.opts.Now)
	d.width = a.width
	d.height = a.bodyHeight()
	return d
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		shimmerTickCmd(),
		a.listener.Listen(),
		waitSession(a.opts.SessionChanges),
		checkVersion(a.opts.Version, a.opts.ReleaseURL),
	}
	if a.screen == screenDirectory {
		cmds = append(cmds, a.startFeed())
	}
	return tea.Batch(cmds...)
}

func (a App) startFeed() tea.Cmd {
	ctx, feed := a.ctx, a.feed
	return func() tea.Msg {
		return feedStartedMsg{err: feed.Start(ctx)}
	}
}

// waitSession delivers the next session state change.
func waitSession(ch <-chan bool) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		state, ok := <-ch
		if !ok {
			return nil
		}
		return sessionChangedMsg{loggedIn: state}
	}
}

func (a App) openRelease() tea.Cmd {
	open, url := a.opts.OpenURL, a.opts.ReleasePage
	return func() tea.Msg {
		return releaseOpenedMsg{err: open(url)}
	}
}

func (a App) signOut() tea.Cmd {
	svc := a.svc
	return func() tea.Msg {
		return signedOutMsg{err: svc.SignOut(context.Background())}
	}
}

// bodyHeight is the terminal height minus header(2) and help(2).
func (a App) bodyHeight() int {
	if a.height <= 0 {
		return 0
	}
	return max(1, a.height-4)
}

func (a App) show(s screen) App {
	log.Debug(log.CatUI, "screen", "from", a.screen.String(), "to", s.String())
	a.screen = s
	return a
}

// toLogin stops the feed and resets every signed-in screen.
func (a App) toLogin() App {
	a.feed.Stop()
	a.directory = a.newDirectory()
	a.edit = newEditModel(a.svc)
	a.login = newLoginModel(a.svc)
	return a.show(screenLogin)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.directory, _ = a.directory.Update(tea.WindowSizeMsg{Width: msg.Width, Height: a.bodyHeight()})
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case versionCheckMsg:
		if msg.hasUpdate {
			a.latestVersion = msg.latestVersion
		}
		return a, nil

	case releaseOpenedMsg:
		if msg.err != nil {
			a.directory.status = "could not open browser: " + msg.err.Error()
		} else {
			a.directory.status = "opened " + a.opts.ReleasePage
		}
		return a, nil

	case pubsub.Event[workflow.DirectoryUpdate]:
		// Updates reach the directory even while another screen is shown.
		a.directory, _ = a.directory.Update(msg)
		return a, a.listener.Listen()

	case feedStartedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatUI, "directory feed failed to start", msg.err)
			a.directory.feedErr = msg.err
		}
		return a, nil

	case restartFeedMsg:
		return a, a.startFeed()

	case loggedInMsg:
		a.directory = a.newDirectory()
		a = a.show(screenDirectory)
		return a, a.startFeed()

	case showSignupMsg:
		a.signup = newSignupModel(a.svc)
		return a.show(screenSignup), nil

	case showLoginMsg:
		return a.show(screenLogin), nil

	case showEditMsg:
		a = a.show(screenEdit)
		var cmd tea.Cmd
		a.edit, cmd = newEditModel(a.svc).load()
		return a, cmd

	case showDirectoryMsg:
		return a.show(screenDirectory), nil

	case signOutMsg:
		return a, a.signOut()

	case signedOutMsg:
		a = a.toLogin()
		if msg.err != nil {
			a.login.failed = true
			a.login.status = workflow.UserMessage(msg.err)
		}
		return a, nil

	case sessionChangedMsg:
		next := waitSession(a.opts.SessionChanges)
		signedIn := a.screen == screenDirectory || a.screen == screenEdit
		switch {
		case !msg.loggedIn && signedIn:
			a = a.toLogin()
			a.login.status = "You were signed out."
			a.login.failed = true
		case msg.loggedIn && a.screen == screenLogin && !a.login.pending:
			a.directory = a.newDirectory()
			a = a.show(screenDirectory)
			return a, tea.Batch(next, a.startFeed())
		}
		return a, next

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.screen == screenDirectory {
				return a, tea.Quit
			}
		case "u":
			if a.screen == screenDirectory && a.latestVersion != "" {
				return a, a.openRelease()
			}
		}
	}

	var cmd tea.Cmd
	switch a.screen {
	case screenLogin:
		a.login, cmd = a.login.Update(msg)
	case screenSignup:
		a.signup, cmd = a.signup.Update(msg)
	case screenDirectory:
		a.directory, cmd = a.directory.Update(msg)
	case screenEdit:
		a.edit, cmd = a.edit.Update(msg)
	}
	return a, cmd
}

func (a App) View() string {
	header := center(renderShimmerLogo(a.frame), a.width)
	if a.latestVersion != "" {
		header += "\n" + center(metaStyle.Render("update available: "+a.latestVersion+" (u to open)"), a.width)
	} else {
		header += "\n"
	}

	var body, help string
	switch a.screen {
	case screenLogin:
		body, help = a.login.View(), a.login.helpKeys()
	case screenSignup:
		body, help = a.signup.View(), a.signup.helpKeys()
	case screenDirectory:
		body, help = a.directory.View(), a.directory.helpKeys()
	case screenEdit:
		body, help = a.edit.View(), a.edit.helpKeys()
	}

	body = strings.TrimRight(truncateToHeight(body, a.bodyHeight()), "\n")
	return header + "\n" + body + "\n\n" + help
}
