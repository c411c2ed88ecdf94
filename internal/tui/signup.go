package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/roster/internal/workflow"
	"github.com/naveenspark/roster/pkg/domain"
)

// registerStageMsg reports a registration stage transition.
type registerStageMsg struct {
	stage  workflow.Stage
	stages <-chan workflow.Stage
}

// registerResultMsg carries the result of a registration.
type registerResultMsg struct {
	profile domain.StudentProfile
	err     error
	stages  <-chan workflow.Stage
}

type signupModel struct {
	svc     *workflow.Service
	form    form
	spinner spinner.Model
	stage   workflow.Stage
	run     <-chan workflow.Stage
	status  string
}

func newSignupModel(svc *workflow.Service) signupModel {
	return signupModel{
		svc: svc,
		form: newForm(
			newField(domain.FieldEmail, "Email", "you@university.edu", kindText),
			newField(domain.FieldPassword, "Password", "at least 6 characters", kindSecret),
			newField(domain.FieldStudentID, "Student ID", "22L-1234", kindText),
			newField(domain.FieldName, "Name", "", kindText),
			newField(domain.FieldDepartment, "Department", "", kindDepartment),
			newField(domain.FieldYearOfStudy, "Year of study", "e.g. 2", kindText),
			newField(domain.FieldRegistrationDate, "Registered on", "YYYY-MM-DD (default today)", kindText),
		),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
	}
}

func (m signupModel) pending() bool {
	return m.stage.Busy()
}

func (m signupModel) Update(msg tea.Msg) (signupModel, tea.Cmd) {
	switch msg := msg.(type) {
	case registerStageMsg:
		// Stages that arrive after the result belong to a finished run.
		if msg.stages == m.run {
			m.stage = msg.stage
		}
		return m, waitStage(msg.stages)

	case registerResultMsg:
		if msg.stages != m.run {
			return m, nil
		}
		m.run = nil
		if msg.err != nil {
			m.stage = workflow.StageIdle
			var verrs domain.ValidationErrors
			if errors.As(msg.err, &verrs) {
				m.form.errs = verrs
				m.status = ""
			} else {
				m.form.errs = nil
				m.status = workflow.UserMessage(msg.err)
			}
			return m, nil
		}
		m.stage = workflow.StageDone
		return m, emit(loggedInMsg{})

	case spinner.TickMsg:
		if !m.pending() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.pending() {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+s":
			return m.submit()
		case "enter":
			if m.form.onLast() {
				return m.submit()
			}
			cmd := m.form.setFocus(m.form.focus + 1)
			return m, cmd
		case "esc":
			return m, emit(showLoginMsg{})
		}
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m signupModel) submit() (signupModel, tea.Cmd) {
	in := domain.RegistrationInput{
		Credentials: domain.Credentials{
			Email:    m.form.value(domain.FieldEmail),
			Password: m.form.value(domain.FieldPassword),
		},
		Profile: m.form.profileInput(),
	}
	m.form.errs = nil
	m.status = ""
	m.stage = workflow.StageValidating

	// Buffered for every stage of one run so the observer never blocks.
	stages := make(chan workflow.Stage, int(workflow.StageDone)+2)
	m.run = stages
	svc := m.svc
	run := func() tea.Msg {
		prof, err := svc.Register(context.Background(), in, func(s workflow.Stage) {
			stages <- s
		})
		close(stages)
		return registerResultMsg{profile: prof, err: err, stages: stages}
	}
	return m, tea.Batch(run, waitStage(stages), m.spinner.Tick)
}

// waitStage delivers the next stage transition.
func waitStage(stages <-chan workflow.Stage) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-stages
		if !ok {
			return nil
		}
		return registerStageMsg{stage: s, stages: stages}
	}
}

func stageLabel(s workflow.Stage) string {
	switch s {
	case workflow.StageValidating:
		return "checking the form..."
	case workflow.StageCheckingUniqueness:
		return "checking student ID..."
	case workflow.StageCreatingAccount:
		return "creating account..."
	case workflow.StageSavingProfile:
		return "saving profile..."
	default:
		return ""
	}
}

func (m signupModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + titleStyle.Render("Sign up") + "\n\n")
	b.WriteString(m.form.view())
	b.WriteString("\n")
	switch {
	case m.pending():
		b.WriteString(" " + m.spinner.View() + " " + dimStyle.Render(stageLabel(m.stage)))
	case m.status != "":
		b.WriteString(" " + errorStyle.Render(m.status))
	}
	return b.String()
}

func (m signupModel) helpKeys() string {
	if m.form.focused().kind == kindDepartment {
		return helpBar("h/l", "department", "tab", "next", "ctrl+s", "sign up", "esc", "log in")
	}
	return helpBar("tab", "next", "shift+tab", "prev", "ctrl+s", "sign up", "esc", "log in")
}
