package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/roster/pkg/domain"
)

// maxInputLen is the maximum number of runes allowed in a form input.
const maxInputLen = 120

type fieldKind int

const (
	kindText fieldKind = iota
	kindSecret
	kindDepartment
)

// formField is one row of a form. Department rows have no text input and are
// cycled with h/l instead.
type formField struct {
	key   string
	label string
	kind  fieldKind
	input textinput.Model
	dept  int
}

func newField(key, label, placeholder string, kind fieldKind) formField {
	f := formField{key: key, label: label, kind: kind}
	if kind == kindDepartment {
		return f
	}
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = maxInputLen
	ti.Width = 36
	if kind == kindSecret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	f.input = ti
	return f
}

// form is a vertical list of fields with one focused row.
type form struct {
	fields []formField
	focus  int
	errs   domain.ValidationErrors
}

func newForm(fields ...formField) form {
	f := form{fields: fields}
	f.setFocus(0)
	return f
}

func (f *form) setFocus(i int) tea.Cmd {
	n := len(f.fields)
	if n == 0 {
		return nil
	}
	f.focus = (i%n + n) % n
	var cmd tea.Cmd
	for j := range f.fields {
		if f.fields[j].kind == kindDepartment {
			continue
		}
		if j == f.focus {
			cmd = f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
	return cmd
}

// update moves focus, cycles departments, or edits the focused input.
func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			cmd := f.setFocus(f.focus + 1)
			return f, cmd
		case "shift+tab", "up":
			cmd := f.setFocus(f.focus - 1)
			return f, cmd
		}
		if f.focused().kind == kindDepartment {
			switch key.String() {
			case "l", "right", " ":
				f.fields[f.focus].dept = cycleDepartment(f.fields[f.focus].dept, 1)
			case "h", "left":
				f.fields[f.focus].dept = cycleDepartment(f.fields[f.focus].dept, -1)
			}
			return f, nil
		}
	}
	if f.focused().kind == kindDepartment {
		return f, nil
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return f, cmd
}

func (f form) focused() formField {
	return f.fields[f.focus]
}

// onLast reports whether the last field has focus.
func (f form) onLast() bool {
	return f.focus == len(f.fields)-1
}

func (f form) index(key string) int {
	for i, fld := range f.fields {
		if fld.key == key {
			return i
		}
	}
	return -1
}

func (f form) value(key string) string {
	if i := f.index(key); i >= 0 {
		return f.fields[i].input.Value()
	}
	return ""
}

func (f *form) setValue(key, v string) {
	if i := f.index(key); i >= 0 {
		f.fields[i].input.SetValue(v)
	}
}

func (f form) department(key string) int {
	if i := f.index(key); i >= 0 {
		return f.fields[i].dept
	}
	return domain.NoDepartment
}

func (f *form) setDepartment(key string, id int) {
	if i := f.index(key); i >= 0 {
		f.fields[i].dept = id
	}
}

// profileInput reads the profile rows shared by sign-up and edit.
func (f form) profileInput() domain.ProfileInput {
	return domain.ProfileInput{
		StudentID:        f.value(domain.FieldStudentID),
		Name:             f.value(domain.FieldName),
		DepartmentID:     f.department(domain.FieldDepartment),
		YearOfStudy:      f.value(domain.FieldYearOfStudy),
		RegistrationDate: f.value(domain.FieldRegistrationDate),
	}
}

func (f form) view() string {
	var b strings.Builder
	for i, fld := range f.fields {
		cursor := " "
		label := metaStyle.Render(fmt.Sprintf("%-16s", fld.label))
		if i == f.focus {
			cursor = accentStyle.Render(">")
			label = selectedStyle.Render(fmt.Sprintf("%-16s", fld.label))
		}

		var value string
		if fld.kind == kindDepartment {
			value = departmentLabel(fld.dept, i == f.focus)
		} else {
			value = fld.input.View()
		}
		fmt.Fprintf(&b, " %s %s %s\n", cursor, label, value)

		if msg := f.errs.For(fld.key); msg != "" {
			fmt.Fprintf(&b, "   %s %s\n", strings.Repeat(" ", 16), fieldErrorStyle.Render(msg))
		}
	}
	return b.String()
}

func departmentLabel(id int, focused bool) string {
	if id == domain.NoDepartment {
		hint := "select a department"
		if focused {
			hint += "  (h/l to cycle)"
		}
		return metaStyle.Render(hint)
	}
	name := normalStyle.Render(domain.DepartmentName(id))
	if focused {
		return accentStyle.Render("‹ ") + name + accentStyle.Render(" ›")
	}
	return name
}

// cycleDepartment steps through the catalog. From no selection, forward picks
// the first entry and backward the last.
func cycleDepartment(id, step int) int {
	n := len(domain.Departments)
	idx := -1
	for i, d := range domain.Departments {
		if d.ID == id {
			idx = i
			break
		}
	}
	switch {
	case idx < 0 && step > 0:
		idx = 0
	case idx < 0:
		idx = n - 1
	default:
		idx = (idx + step + n) % n
	}
	return domain.Departments[idx].ID
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}
