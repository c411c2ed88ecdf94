package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/roster/pkg/domain"
)

func testForm() form {
	return newForm(
		newField(domain.FieldStudentID, "Student ID", "", kindText),
		newField(domain.FieldName, "Name", "", kindText),
		newField(domain.FieldDepartment, "Department", "", kindDepartment),
		newField(domain.FieldYearOfStudy, "Year", "", kindText),
		newField(domain.FieldRegistrationDate, "Registered", "", kindText),
	)
}

func TestFormFocusWraps(t *testing.T) {
	f := testForm()
	if f.focus != 0 {
		t.Fatalf("initial focus = %d, want 0", f.focus)
	}

	f, _ = f.update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if f.focus != 4 {
		t.Errorf("shift+tab from first: focus = %d, want 4", f.focus)
	}
	if !f.onLast() {
		t.Error("expected onLast after wrapping backwards")
	}

	f, _ = f.update(tea.KeyMsg{Type: tea.KeyTab})
	if f.focus != 0 {
		t.Errorf("tab from last: focus = %d, want 0", f.focus)
	}

	f, _ = f.update(tea.KeyMsg{Type: tea.KeyDown})
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyDown})
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyUp})
	if f.focus != 1 {
		t.Errorf("down, down, up: focus = %d, want 1", f.focus)
	}
}

func TestFormTypingGoesToFocusedField(t *testing.T) {
	f := testForm()
	f, _ = f.update(keyRunes("22L-1234"))
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyTab})
	f, _ = f.update(keyRunes("Ayesha"))

	if got := f.value(domain.FieldStudentID); got != "22L-1234" {
		t.Errorf("student id = %q", got)
	}
	if got := f.value(domain.FieldName); got != "Ayesha" {
		t.Errorf("name = %q", got)
	}

	f, _ = f.update(tea.KeyMsg{Type: tea.KeyBackspace})
	if got := f.value(domain.FieldName); got != "Ayesh" {
		t.Errorf("after backspace name = %q", got)
	}
}

func TestFormDepartmentCycling(t *testing.T) {
	f := testForm()
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyTab})
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyTab})
	if f.focused().kind != kindDepartment {
		t.Fatal("expected department row focused")
	}

	f, _ = f.update(keyRunes("l"))
	if got := f.department(domain.FieldDepartment); got != domain.Departments[0].ID {
		t.Errorf("after l: department = %d, want %d", got, domain.Departments[0].ID)
	}
	f, _ = f.update(tea.KeyMsg{Type: tea.KeyRight})
	if got := f.department(domain.FieldDepartment); got != domain.Departments[1].ID {
		t.Errorf("after right: department = %d, want %d", got, domain.Departments[1].ID)
	}
	f, _ = f.update(keyRunes("h"))
	f, _ = f.update(keyRunes("h"))
	last := domain.Departments[len(domain.Departments)-1].ID
	if got := f.department(domain.FieldDepartment); got != last {
		t.Errorf("h past the first: department = %d, want %d", got, last)
	}

	// Other runes do not leak into text fields.
	f, _ = f.update(keyRunes("x"))
	if f.value(domain.FieldName) != "" || f.value(domain.FieldStudentID) != "" {
		t.Error("rune on department row changed a text field")
	}
}

func TestCycleDepartment(t *testing.T) {
	n := len(domain.Departments)
	tests := []struct {
		name string
		id   int
		step int
		want int
	}{
		{"none forward", domain.NoDepartment, 1, domain.Departments[0].ID},
		{"none backward", domain.NoDepartment, -1, domain.Departments[n-1].ID},
		{"first backward wraps", domain.Departments[0].ID, -1, domain.Departments[n-1].ID},
		{"last forward wraps", domain.Departments[n-1].ID, 1, domain.Departments[0].ID},
		{"unknown id forward", 999, 1, domain.Departments[0].ID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cycleDepartment(tc.id, tc.step); got != tc.want {
				t.Errorf("cycleDepartment(%d, %d) = %d, want %d", tc.id, tc.step, got, tc.want)
			}
		})
	}
}

func TestFormProfileInput(t *testing.T) {
	f := testForm()
	f.setValue(domain.FieldStudentID, "22L-1234")
	f.setValue(domain.FieldName, "Ayesha")
	f.setDepartment(domain.FieldDepartment, 3)
	f.setValue(domain.FieldYearOfStudy, "2")
	f.setValue(domain.FieldRegistrationDate, "2025-09-01")

	got := f.profileInput()
	want := domain.ProfileInput{
		StudentID:        "22L-1234",
		Name:             "Ayesha",
		DepartmentID:     3,
		YearOfStudy:      "2",
		RegistrationDate: "2025-09-01",
	}
	if got != want {
		t.Errorf("profileInput() = %+v, want %+v", got, want)
	}

	// Unknown keys are ignored.
	f.setValue("missing", "x")
	if f.value("missing") != "" {
		t.Error("expected empty value for unknown key")
	}
}

func TestFormViewShowsFieldErrors(t *testing.T) {
	f := testForm()
	f.errs = domain.ValidationErrors{
		{Field: domain.FieldName, Message: "Name is required"},
		{Field: domain.FieldDepartment, Message: "Please select a valid department"},
	}
	view := f.view()
	for _, want := range []string{"Student ID", "Name is required", "Please select a valid department", "select a department"} {
		if !strings.Contains(view, want) {
			t.Errorf("form view missing %q", want)
		}
	}
	if strings.Contains(view, "Student ID is required") {
		t.Error("unexpected error for a valid field")
	}
}

func TestSecretFieldIsMasked(t *testing.T) {
	f := newForm(newField(domain.FieldPassword, "Password", "", kindSecret))
	f, _ = f.update(keyRunes("hunter2"))
	if got := f.value(domain.FieldPassword); got != "hunter2" {
		t.Fatalf("value = %q", got)
	}
	if strings.Contains(f.view(), "hunter2") {
		t.Error("password rendered in clear text")
	}
}

func TestInputCharLimit(t *testing.T) {
	f := newForm(newField(domain.FieldName, "Name", "", kindText))
	f, _ = f.update(keyRunes(strings.Repeat("a", maxInputLen+10)))
	if got := len(f.value(domain.FieldName)); got != maxInputLen {
		t.Errorf("len = %d, want %d", got, maxInputLen)
	}
}

func TestTruncStr(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"under limit", "hello", 10, "hello"},
		{"at limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hell…"},
		{"empty string", "", 5, ""},
		{"zero width", "hello", 0, ""},
		{"single char over", "ab", 1, "…"},
		{"CJK chars", "你好世界", 3, "你好…"},
		{"multi-byte at boundary", "cafés are nice", 5, "café…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncStr(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncStr(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight short = %q", got)
	}
	if got := padRight("abcdef", 4); got != "abc…" {
		t.Errorf("padRight long = %q", got)
	}
}

func TestTruncateToHeight(t *testing.T) {
	s := "a\nb\nc\nd\n"
	if got := truncateToHeight(s, 2); got != "a\nb\n" {
		t.Errorf("truncateToHeight(2) = %q", got)
	}
	if got := truncateToHeight(s, 0); got != s {
		t.Errorf("truncateToHeight(0) = %q, want original", got)
	}
	if got := truncateToHeight(s, 10); got != s {
		t.Errorf("truncateToHeight(10) = %q, want original", got)
	}
}

func TestFormatAge(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-day, "upcoming"},
		{time.Hour, "today"},
		{3 * day, "3d ago"},
		{45 * day, "1mo ago"},
		{400 * day, "1y ago"},
		{3 * 365 * day, "3y ago"},
	}
	for _, tc := range tests {
		if got := formatAge(tc.d); got != tc.want {
			t.Errorf("formatAge(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFormatRegistered(t *testing.T) {
	dated := domain.AssembleDirectory([]domain.StudentProfile{profile("a", "22L-0001", "A", "2026-10-10", 1)}, "").Entries[0]
	if got := formatRegistered(dated, testNow); got != "2026-10-10 (7d ago)" {
		t.Errorf("dated = %q", got)
	}
	undated := domain.AssembleDirectory([]domain.StudentProfile{profile("a", "22L-0001", "A", "soon", 1)}, "").Entries[0]
	if got := formatRegistered(undated, testNow); got != "soon (?)" {
		t.Errorf("undated = %q", got)
	}
	blank := domain.AssembleDirectory([]domain.StudentProfile{profile("a", "22L-0001", "A", "", 1)}, "").Entries[0]
	if got := formatRegistered(blank, testNow); got != "no date" {
		t.Errorf("blank = %q", got)
	}
}
