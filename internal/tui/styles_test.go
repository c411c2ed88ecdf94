package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestRenderShimmerLogoContainsLetters(t *testing.T) {
	for _, frame := range []int{0, 1, 57, 1000} {
		out := renderShimmerLogo(frame)
		for _, r := range "ROSTER" {
			if !strings.ContainsRune(out, r) {
				t.Errorf("frame %d: logo missing %q", frame, r)
			}
		}
	}
}

func TestClampByte(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{127.9, 127},
		{255, 255},
		{300, 255},
	}
	for _, tc := range tests {
		if got := clampByte(tc.in); got != tc.want {
			t.Errorf("clampByte(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestHelpBar(t *testing.T) {
	got := helpBar("j/k", "nav", "q", "quit")
	for _, want := range []string{"j/k", "nav", "q", "quit"} {
		if !strings.Contains(got, want) {
			t.Errorf("helpBar missing %q in %q", want, got)
		}
	}
	if !strings.HasPrefix(got, " ") {
		t.Error("expected leading space")
	}
	// A dangling key without a label is dropped.
	if strings.Contains(helpBar("a", "b", "orphan"), "orphan") {
		t.Error("expected odd trailing key to be ignored")
	}
}

func TestCenter(t *testing.T) {
	if got := center("abcd", 10); got != "   abcd" {
		t.Errorf("center = %q", got)
	}
	if got := center("abcd", 2); got != "abcd" {
		t.Errorf("center narrower than text = %q", got)
	}
}

func TestHighlightStyleDefaultsColor(t *testing.T) {
	want := lipgloss.Color(DefaultHighlightColor)
	if got := highlightStyle("").GetForeground(); got != want {
		t.Errorf("foreground = %v, want %v", got, want)
	}
	if got := highlightStyle("#ff0000").GetForeground(); got != lipgloss.Color("#ff0000") {
		t.Errorf("foreground = %v, want #ff0000", got)
	}
}
