package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/internal/workflow"
	"github.com/naveenspark/roster/pkg/domain"
)

// loginResultMsg carries the result of a sign-in attempt.
type loginResultMsg struct {
	acct domain.Account
	err  error
}

// resetResultMsg carries the result of a password reset request.
type resetResultMsg struct {
	email string
	err   error
}

// Navigation messages emitted by screens and handled by App.
type (
	loggedInMsg   struct{}
	showSignupMsg struct{}
	showLoginMsg  struct{}
)

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

type loginModel struct {
	svc     *workflow.Service
	form    form
	spinner spinner.Model
	pending bool
	status  string
	failed  bool
}

func newLoginModel(svc *workflow.Service) loginModel {
	return loginModel{
		svc: svc,
		form: newForm(
			newField(domain.FieldEmail, "Email", "you@university.edu", kindText),
			newField(domain.FieldPassword, "Password", "", kindSecret),
		),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.pending = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.status = ""
		m.form.setValue(domain.FieldPassword, "")
		return m, emit(loggedInMsg{})

	case resetResultMsg:
		m.pending = false
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.failed = false
		m.status = "Password reset email sent to " + msg.email
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.pending {
			return m, nil
		}
		switch msg.String() {
		case "enter":
			if m.form.onLast() {
				return m.submit()
			}
			cmd := m.form.setFocus(m.form.focus + 1)
			return m, cmd
		case "ctrl+s":
			return m.submit()
		case "ctrl+r":
			return m.resetPassword()
		case "ctrl+n":
			return m, emit(showSignupMsg{})
		}
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m *loginModel) setError(err error) {
	m.failed = true
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		m.form.errs = verrs
		m.status = ""
		return
	}
	m.form.errs = nil
	m.status = workflow.UserMessage(err)
	log.Debug(log.CatUI, "login screen error", "error", err)
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	in := domain.SignInInput{
		Email:    m.form.value(domain.FieldEmail),
		Password: m.form.value(domain.FieldPassword),
	}
	m.form.errs = nil
	m.status = ""
	m.pending = true
	svc := m.svc
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		acct, err := svc.SignIn(context.Background(), in)
		return loginResultMsg{acct: acct, err: err}
	})
}

func (m loginModel) resetPassword() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.form.value(domain.FieldEmail))
	m.form.errs = nil
	m.status = ""
	m.pending = true
	svc := m.svc
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		err := svc.ResetPassword(context.Background(), email)
		return resetResultMsg{email: email, err: err}
	})
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + titleStyle.Render("Log in") + "\n\n")
	b.WriteString(m.form.view())
	b.WriteString("\n")
	switch {
	case m.pending:
		b.WriteString(" " + m.spinner.View() + dimStyle.Render(" contacting server..."))
	case m.status != "" && m.failed:
		b.WriteString(" " + errorStyle.Render(m.status))
	case m.status != "":
		b.WriteString(" " + successStyle.Render(m.status))
	}
	b.WriteString("\n\n " + dimStyle.Render("No account yet? Press ctrl+n to sign up."))
	return b.String()
}

func (m loginModel) helpKeys() string {
	return helpBar("tab", "next", "enter", "log in", "ctrl+r", "reset password", "ctrl+n", "sign up", "ctrl+c", "quit")
}
