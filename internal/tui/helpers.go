package tui

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/naveenspark/roster/pkg/domain"
)

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// padRight truncates or pads s to exactly width runes.
func padRight(s string, width int) string {
	s = truncStr(s, width)
	return fmt.Sprintf("%-*s", width, s)
}

// formatRegistered renders an entry's registration date with its age, e.g.
// "2024-09-01 (2y ago)". Undated entries show the raw stored text.
func formatRegistered(e domain.DirectoryEntry, now time.Time) string {
	if !e.HasDate {
		if e.Profile.RegistrationDate == "" {
			return "no date"
		}
		return e.Profile.RegistrationDate + " (?)"
	}
	return domain.FormatDate(e.RegisteredOn) + " (" + formatAge(now.Sub(e.RegisteredOn)) + ")"
}

// formatAge renders a coarse relative duration.
func formatAge(d time.Duration) string {
	days := int(d.Hours() / 24)
	switch {
	case d < 0:
		return "upcoming"
	case days < 1:
		return "today"
	case days < 31:
		return fmt.Sprintf("%dd ago", days)
	case days < 365:
		return fmt.Sprintf("%dmo ago", days/30)
	default:
		return fmt.Sprintf("%dy ago", days/365)
	}
}
