package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/roster/internal/pubsub"
	"github.com/naveenspark/roster/internal/workflow"
	"github.com/naveenspark/roster/pkg/domain"
)

func profile(uid, studentID, name, date string, dept int) domain.StudentProfile {
	return domain.StudentProfile{UserID: uid, ProfileFields: domain.ProfileFields{
		StudentID:        studentID,
		Name:             name,
		DepartmentID:     dept,
		YearOfStudy:      "2",
		RegistrationDate: date,
	}}
}

func directoryUpdate(records []domain.StudentProfile, viewer string) pubsub.Event[workflow.DirectoryUpdate] {
	return pubsub.Event[workflow.DirectoryUpdate]{
		Type:    pubsub.UpdatedEvent,
		Payload: workflow.DirectoryUpdate{Directory: domain.AssembleDirectory(records, viewer)},
	}
}

func newTestDirectory(copied *[]string, copyErr error) directoryModel {
	m := newDirectoryModel("", func(s string) error {
		*copied = append(*copied, s)
		return copyErr
	}, func() time.Time { return testNow })
	m.width = 100
	m.height = 30
	return m
}

func loadedDirectory(t *testing.T, copied *[]string, copyErr error) directoryModel {
	t.Helper()
	m := newTestDirectory(copied, copyErr)
	m, _ = m.Update(directoryUpdate([]domain.StudentProfile{
		profile("me", "22L-1234", "Ayesha", "2025-09-01", 1),
		profile("b", "21L-0001", "Bilal", "2024-09-01", 1),
		profile("c", "21L-0002", "Sana", "2023-09-01", 4),
		profile("d", "20L-0003", "Umar", "not a date", 2),
	}, "me"))
	return m
}

func TestDirectoryLoadingAndEmpty(t *testing.T) {
	var copied []string
	m := newTestDirectory(&copied, nil)
	if !strings.Contains(m.View(), "loading directory...") {
		t.Error("expected loading placeholder before the first update")
	}

	m, _ = m.Update(directoryUpdate(nil, "me"))
	view := m.View()
	if !strings.Contains(view, "Hello") {
		t.Error("expected plain greeting without own profile")
	}
	if !strings.Contains(view, "No other students have registered yet.") {
		t.Error("expected empty-state message")
	}
	if !strings.Contains(view, "No profile saved for this account.") {
		t.Error("expected missing-profile notice")
	}
}

func TestDirectoryViewOrdersAndHighlights(t *testing.T) {
	var copied []string
	m := loadedDirectory(t, &copied, nil)

	view := m.View()
	if !strings.Contains(view, "Hello Ayesha") {
		t.Error("expected personalised greeting")
	}
	umar := strings.Index(view, "Umar")
	sana := strings.Index(view, "Sana")
	bilal := strings.Index(view, "Bilal")
	if umar < 0 || sana < 0 || bilal < 0 {
		t.Fatalf("expected all entries in view:\n%s", view)
	}
	if !(umar < sana && sana < bilal) {
		t.Errorf("expected undated Umar, then Sana, then Bilal; got offsets %d %d %d", umar, sana, bilal)
	}
	if !strings.Contains(view, "not a date (?)") {
		t.Error("expected raw date for undated entry")
	}
	if !strings.Contains(view, "2023-09-01 (3y ago)") {
		t.Error("expected age next to registration date")
	}

	var same []string
	for _, e := range m.dir.Entries {
		if e.SameDepartment {
			same = append(same, e.Profile.Name)
		}
	}
	if len(same) != 1 || same[0] != "Bilal" {
		t.Errorf("same-department entries = %v, want [Bilal]", same)
	}
}

func TestDirectoryCursorAndCopy(t *testing.T) {
	var copied []string
	m := loadedDirectory(t, &copied, nil)

	m, _ = m.Update(keyRunes("j"))
	m, _ = m.Update(keyRunes("j"))
	m, _ = m.Update(keyRunes("j")) // clamps at the last row
	if m.cursor != 2 {
		t.Fatalf("cursor = %d, want 2", m.cursor)
	}
	m, _ = m.Update(keyRunes("k"))

	m, cmd := m.Update(keyRunes("c"))
	if cmd == nil {
		t.Fatal("expected copy command")
	}
	m, _ = m.Update(cmd())
	if len(copied) != 1 || copied[0] != "21L-0002" {
		t.Errorf("copied = %v, want [21L-0002]", copied)
	}
	if !strings.Contains(m.View(), "copied 21L-0002") {
		t.Error("expected copy confirmation")
	}

	m, _ = m.Update(keyRunes("G"))
	if m.cursor != 2 {
		t.Errorf("G: cursor = %d, want 2", m.cursor)
	}
	m, _ = m.Update(keyRunes("g"))
	if m.cursor != 0 {
		t.Errorf("g: cursor = %d, want 0", m.cursor)
	}
}

func TestDirectoryCopyFailure(t *testing.T) {
	var copied []string
	m := loadedDirectory(t, &copied, errors.New("no clipboard"))
	m, cmd := m.Update(keyRunes("c"))
	m, _ = m.Update(cmd())
	if !strings.Contains(m.View(), "copy failed: no clipboard") {
		t.Error("expected copy failure status")
	}
}

func TestDirectoryCursorClampsWhenEntriesShrink(t *testing.T) {
	var copied []string
	m := loadedDirectory(t, &copied, nil)
	m, _ = m.Update(keyRunes("G"))

	m, _ = m.Update(directoryUpdate([]domain.StudentProfile{
		profile("me", "22L-1234", "Ayesha", "2025-09-01", 1),
		profile("b", "21L-0001", "Bilal", "2024-09-01", 1),
	}, "me"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0 after shrink", m.cursor)
	}
}

func TestDirectoryScrollKeepsCursorVisible(t *testing.T) {
	var copied []string
	m := newTestDirectory(&copied, nil)
	m.height = 16

	records := []domain.StudentProfile{profile("me", "22L-1234", "Ayesha", "2025-09-01", 1)}
	for i := 0; i < 20; i++ {
		records = append(records, profile(
			"u"+string(rune('a'+i)), "21L-00"+string(rune('a'+i)), "Student "+string(rune('A'+i)),
			"2024-01-01", 2))
	}
	m, _ = m.Update(directoryUpdate(records, "me"))

	for i := 0; i < 19; i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if m.offset == 0 {
		t.Fatal("expected list to scroll")
	}
	if m.cursor < m.offset || m.cursor >= m.offset+m.rowsVisible() {
		t.Errorf("cursor %d outside window [%d,%d)", m.cursor, m.offset, m.offset+m.rowsVisible())
	}
	if !strings.Contains(m.View(), "Student T") {
		t.Error("expected last row to be rendered")
	}
}

func TestDirectoryFeedFailureAndRestart(t *testing.T) {
	var copied []string
	m := loadedDirectory(t, &copied, nil)

	m, _ = m.Update(pubsub.Event[workflow.DirectoryUpdate]{
		Type:    pubsub.FailedEvent,
		Payload: workflow.DirectoryUpdate{Err: &domain.RemoteError{Op: "subscribe", Message: "Permission denied"}},
	})
	view := m.View()
	if !strings.Contains(view, "Permission denied") || !strings.Contains(view, "press r to reconnect") {
		t.Errorf("expected failure notice, got:\n%s", view)
	}
	if !strings.Contains(view, "Bilal") {
		t.Error("expected last directory to stay visible after a failure")
	}

	m, cmd := m.Update(keyRunes("r"))
	if cmd == nil {
		t.Fatal("expected restart request")
	}
	if _, ok := cmd().(restartFeedMsg); !ok {
		t.Error("expected restartFeedMsg")
	}
	if m.feedErr != nil {
		t.Error("expected failure cleared on restart")
	}

	// r does nothing while the feed is healthy.
	_, cmd = m.Update(keyRunes("r"))
	if cmd != nil {
		t.Error("expected no command for r without a failure")
	}
}

func TestDirectoryEditRequiresOwnProfile(t *testing.T) {
	var copied []string
	m := newTestDirectory(&copied, nil)
	m, _ = m.Update(directoryUpdate([]domain.StudentProfile{profile("b", "21L-0001", "Bilal", "2024-09-01", 1)}, "me"))

	m, cmd := m.Update(keyRunes("e"))
	if cmd != nil {
		t.Error("expected no edit request without a profile")
	}
	if m.status != "no profile to edit" {
		t.Errorf("status = %q", m.status)
	}

	m = loadedDirectory(t, &copied, nil)
	_, cmd = m.Update(keyRunes("e"))
	if cmd == nil {
		t.Fatal("expected edit request")
	}
	if _, ok := cmd().(showEditMsg); !ok {
		t.Error("expected showEditMsg")
	}
}

func TestDirectorySignOutRequest(t *testing.T) {
	var copied []string
	m := loadedDirectory(t, &copied, nil)
	_, cmd := m.Update(keyRunes("o"))
	if cmd == nil {
		t.Fatal("expected sign-out request")
	}
	if _, ok := cmd().(signOutMsg); !ok {
		t.Error("expected signOutMsg")
	}
}
