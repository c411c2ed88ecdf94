package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/roster/pkg/domain"
)

var signedOutGreetings = [...]string{
	"The directory is open. You just aren't in it yet.",
	"Everyone else already filled in their year of study.",
	"Your classmates registered. The list is waiting for one more row.",
	"No session found. Even the freshers managed this part.",
	"The roster keeps a seat for you. It keeps it empty, but still.",
	"Sign in and find out who else picked your department.",
	"A student ID is a terrible thing to waste.",
	"Somebody registered in 2019 and still checks the list. Be like them.",
	"Seven departments, one login form.",
	"You can't browse the directory from the outside. We checked.",
}

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle = lipgloss.NewStyle().Bold(true)
)

func printSignedOutGreeting(w io.Writer) {
	msg := signedOutGreetings[rand.IntN(len(signedOutGreetings))]
	quote := mutedStyle.Italic(true).Render(msg)
	hint := mutedStyle.Render("To sign in: roster login --email you@university.edu")
	fmt.Fprintf(w, "\n%s\n\n%s\n\n%s\n\n", titleStyle.Render("ROSTER"), quote, hint) //nolint:errcheck
}

func printProfile(w io.Writer, p domain.StudentProfile) {
	rows := []struct{ label, value string }{
		{"Student ID", p.StudentID},
		{"Name", p.Name},
		{"Department", domain.DepartmentName(p.DepartmentID)},
		{"Year", p.YearOfStudy},
		{"Registered", p.RegistrationDate},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s\n", labelStyle.Render(fmt.Sprintf("%-11s", r.label)), r.value) //nolint:errcheck
	}
}

// printDirectory writes the greeting and one line per entry. Rows sharing the
// viewer's department are marked with * and rendered in the highlight color.
func printDirectory(w io.Writer, dir domain.Directory, highlight string) {
	fmt.Fprintln(w, titleStyle.Render(dir.Greeting())) //nolint:errcheck
	if dir.Own == nil {
		fmt.Fprintln(w, mutedStyle.Render("No profile saved for this account.")) //nolint:errcheck
	}
	if len(dir.Entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No other students have registered yet.")) //nolint:errcheck
		return
	}

	hl := lipgloss.NewStyle()
	if highlight != "" {
		hl = hl.Foreground(lipgloss.Color(highlight)).Bold(true)
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %-12s %-24s %-24s %-5s %s", "ID", "NAME", "DEPARTMENT", "YEAR", "REGISTERED"))) //nolint:errcheck
	for _, e := range dir.Entries {
		p := e.Profile
		mark := " "
		if e.SameDepartment {
			mark = "*"
		}
		date := p.RegistrationDate
		if !e.HasDate && date != "" {
			date += " (?)"
		}
		line := fmt.Sprintf("%s %-12s %-24s %-24s %-5s %s", mark,
			clip(p.StudentID, 12), clip(p.Name, 24), clip(domain.DepartmentName(p.DepartmentID), 24),
			clip(p.YearOfStudy, 5), date)
		if e.SameDepartment {
			line = hl.Render(line)
		}
		fmt.Fprintln(w, line) //nolint:errcheck
	}
}

func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
