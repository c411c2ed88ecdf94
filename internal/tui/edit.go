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

type profileLoadedMsg struct {
	profile domain.StudentProfile
	err     error
}

type profileSavedMsg struct {
	profile domain.StudentProfile
	err     error
}

// showDirectoryMsg returns to the directory screen.
type showDirectoryMsg struct{}

type editModel struct {
	svc     *workflow.Service
	form    form
	spinner spinner.Model
	loading bool
	saving  bool
	loadErr error
	status  string
}

func newEditModel(svc *workflow.Service) editModel {
	return editModel{
		svc: svc,
		form: newForm(
			newField(domain.FieldStudentID, "Student ID", "22L-1234", kindText),
			newField(domain.FieldName, "Name", "", kindText),
			newField(domain.FieldDepartment, "Department", "", kindDepartment),
			newField(domain.FieldYearOfStudy, "Year of study", "e.g. 2", kindText),
			newField(domain.FieldRegistrationDate, "Registered on", "YYYY-MM-DD (default today)", kindText),
		),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
	}
}

// load fetches the profile and fills the form.
func (m editModel) load() (editModel, tea.Cmd) {
	m.loading = true
	m.loadErr = nil
	m.status = ""
	m.form.errs = nil
	svc := m.svc
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		prof, err := svc.LoadProfile(context.Background())
		return profileLoadedMsg{profile: prof, err: err}
	})
}

func (m editModel) busy() bool {
	return m.loading || m.saving
}

func (m editModel) Update(msg tea.Msg) (editModel, tea.Cmd) {
	switch msg := msg.(type) {
	case profileLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.loadErr = msg.err
			return m, nil
		}
		p := msg.profile
		m.form.setValue(domain.FieldStudentID, p.StudentID)
		m.form.setValue(domain.FieldName, p.Name)
		m.form.setDepartment(domain.FieldDepartment, p.DepartmentID)
		m.form.setValue(domain.FieldYearOfStudy, p.YearOfStudy)
		m.form.setValue(domain.FieldRegistrationDate, p.RegistrationDate)
		cmd := m.form.setFocus(0)
		return m, cmd

	case profileSavedMsg:
		m.saving = false
		if msg.err != nil {
			var verrs domain.ValidationErrors
			if errors.As(msg.err, &verrs) {
				m.form.errs = verrs
				return m, nil
			}
			m.status = workflow.UserMessage(msg.err)
			return m, nil
		}
		return m, emit(showDirectoryMsg{})

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.busy() {
			return m, nil
		}
		switch msg.String() {
		case "esc":
			return m, emit(showDirectoryMsg{})
		case "r":
			if m.loadErr != nil {
				return m.load()
			}
		}
		if m.loadErr != nil {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+s":
			return m.save()
		case "enter":
			if m.form.onLast() {
				return m.save()
			}
			cmd := m.form.setFocus(m.form.focus + 1)
			return m, cmd
		}
	}

	if m.busy() || m.loadErr != nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m editModel) save() (editModel, tea.Cmd) {
	in := m.form.profileInput()
	m.form.errs = nil
	m.status = ""
	m.saving = true
	svc := m.svc
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		prof, err := svc.UpdateProfile(context.Background(), in)
		return profileSavedMsg{profile: prof, err: err}
	})
}

func (m editModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + titleStyle.Render("Edit profile") + "\n\n")
	switch {
	case m.loading:
		b.WriteString(" " + m.spinner.View() + dimStyle.Render(" loading profile..."))
		return b.String()
	case m.loadErr != nil:
		b.WriteString(" " + errorStyle.Render(workflow.UserMessage(m.loadErr)))
		b.WriteString("\n " + dimStyle.Render("press r to retry or esc to go back"))
		return b.String()
	}
	b.WriteString(m.form.view())
	b.WriteString("\n")
	switch {
	case m.saving:
		b.WriteString(" " + m.spinner.View() + dimStyle.Render(" saving..."))
	case m.status != "":
		b.WriteString(" " + errorStyle.Render(m.status))
	}
	return b.String()
}

func (m editModel) helpKeys() string {
	if m.loadErr != nil {
		return helpBar("r", "retry", "esc", "back")
	}
	if m.form.focused().kind == kindDepartment {
		return helpBar("h/l", "department", "tab", "next", "ctrl+s", "save", "esc", "cancel")
	}
	return helpBar("tab", "next", "shift+tab", "prev", "ctrl+s", "save", "esc", "cancel")
}
