package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/roster/internal/pubsub"
	"github.com/naveenspark/roster/internal/workflow"
	"github.com/naveenspark/roster/pkg/domain"
)

type copyResultMsg struct {
	studentID string
	err       error
}

// Requests from the directory screen, handled by App.
type (
	showEditMsg    struct{}
	signOutMsg     struct{}
	restartFeedMsg struct{}
)

// Column widths of the directory table.
const (
	colStudentID  = 10
	colName       = 22
	colDepartment = 24
	colYear       = 5
)

type directoryModel struct {
	dir       domain.Directory
	loaded    bool
	feedErr   error
	cursor    int
	offset    int
	width     int
	height    int
	highlight lipgloss.Style
	copyText  func(string) error
	now       func() time.Time
	status    string
}

func newDirectoryModel(highlightColor string, copyText func(string) error, now func() time.Time) directoryModel {
	return directoryModel{
		highlight: highlightStyle(highlightColor),
		copyText:  copyText,
		now:       now,
	}
}

func (m directoryModel) Update(msg tea.Msg) (directoryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case pubsub.Event[workflow.DirectoryUpdate]:
		if msg.Type == pubsub.FailedEvent {
			m.feedErr = msg.Payload.Err
			return m, nil
		}
		m.feedErr = nil
		m.loaded = true
		m.dir = msg.Payload.Directory
		if m.cursor >= len(m.dir.Entries) {
			m.cursor = max(0, len(m.dir.Entries)-1)
		}
		m.clampScroll()
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.status = "copied " + msg.studentID
		}
		return m, nil

	case tea.KeyMsg:
		m.status = ""
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.dir.Entries)-1 {
				m.cursor++
				m.clampScroll()
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
				m.clampScroll()
			}
		case "g", "home":
			m.cursor = 0
			m.clampScroll()
		case "G", "end":
			m.cursor = max(0, len(m.dir.Entries)-1)
			m.clampScroll()
		case "c":
			return m, m.copySelected()
		case "e":
			if m.dir.Own != nil {
				return m, emit(showEditMsg{})
			}
			m.status = "no profile to edit"
		case "o":
			return m, emit(signOutMsg{})
		case "r":
			if m.feedErr != nil {
				m.feedErr = nil
				return m, emit(restartFeedMsg{})
			}
		}
	}
	return m, nil
}

func (m directoryModel) copySelected() tea.Cmd {
	if len(m.dir.Entries) == 0 || m.copyText == nil {
		return nil
	}
	id := m.dir.Entries[m.cursor].Profile.StudentID
	copyText := m.copyText
	return func() tea.Msg {
		return copyResultMsg{studentID: id, err: copyText(id)}
	}
}

// rowsVisible is the number of table rows that fit below the own-profile panel.
func (m directoryModel) rowsVisible() int {
	if m.height <= 0 {
		return len(m.dir.Entries)
	}
	// greeting(2) + panel(5 or 1) + header(2) + status(2)
	chrome := 7
	if m.dir.Own != nil {
		chrome += 5
	} else {
		chrome++
	}
	return max(1, m.height-chrome)
}

func (m *directoryModel) clampScroll() {
	rows := m.rowsVisible()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m directoryModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + titleStyle.Render(m.dir.Greeting()) + "\n")

	if !m.loaded {
		if m.feedErr != nil {
			b.WriteString("\n " + errorStyle.Render(workflow.UserMessage(m.feedErr)))
			b.WriteString("\n " + dimStyle.Render("press r to reconnect"))
			return b.String()
		}
		b.WriteString("\n " + dimStyle.Render("loading directory..."))
		return b.String()
	}

	b.WriteString(m.ownPanel())
	b.WriteString("\n")

	if len(m.dir.Entries) == 0 {
		b.WriteString(" " + dimStyle.Render("No other students have registered yet.") + "\n")
	} else {
		header := fmt.Sprintf("   %s %s %s %s %s",
			padRight("ID", colStudentID), padRight("Name", colName),
			padRight("Department", colDepartment), padRight("Year", colYear), "Registered")
		b.WriteString(metaStyle.Render(header) + "\n")

		end := min(len(m.dir.Entries), m.offset+m.rowsVisible())
		for i := m.offset; i < end; i++ {
			b.WriteString(m.row(i) + "\n")
		}
	}

	switch {
	case m.feedErr != nil:
		b.WriteString("\n " + errorStyle.Render(workflow.UserMessage(m.feedErr)) + dimStyle.Render("  press r to reconnect"))
	case m.status != "":
		b.WriteString("\n " + successStyle.Render(m.status))
	}
	return b.String()
}

func (m directoryModel) ownPanel() string {
	own := m.dir.Own
	if own == nil {
		return "\n " + dimStyle.Render("No profile saved for this account.") + "\n"
	}
	lines := []string{
		metaStyle.Render("Student ID  ") + normalStyle.Render(own.StudentID),
		metaStyle.Render("Department  ") + m.highlight.Render(own.DepartmentName()),
		metaStyle.Render("Year        ") + normalStyle.Render(own.YearOfStudy),
		metaStyle.Render("Registered  ") + normalStyle.Render(own.RegistrationDate),
	}
	width := 44
	if m.width > 0 {
		width = min(width, m.width-4)
	}
	return panelStyle.Width(width).Render(strings.Join(lines, "\n")) + "\n"
}

func (m directoryModel) row(i int) string {
	e := m.dir.Entries[i]
	p := e.Profile
	line := fmt.Sprintf("%s %s %s %s %s",
		padRight(p.StudentID, colStudentID), padRight(p.Name, colName),
		padRight(p.DepartmentName(), colDepartment), padRight(p.YearOfStudy, colYear),
		formatRegistered(e, m.now()))

	style := normalStyle
	if e.SameDepartment {
		style = m.highlight
	}
	cursor := "  "
	if i == m.cursor {
		cursor = accentStyle.Render("> ")
		style = style.Inherit(selectedRowBg)
	}
	return " " + cursor + style.Render(line)
}

func (m directoryModel) helpKeys() string {
	if m.feedErr != nil {
		return helpBar("r", "reconnect", "o", "sign out", "q", "quit")
	}
	return helpBar("j/k", "nav", "c", "copy id", "e", "edit profile", "o", "sign out", "q", "quit")
}
