package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/roster/internal/log"
)

// DefaultReleaseURL is the GitHub endpoint polled for the latest release.
const DefaultReleaseURL = "https://api.github.com/repos/naveenspark/roster/releases/latest"

// DefaultReleasePage is where the update notice points the browser.
const DefaultReleasePage = "https://github.com/naveenspark/roster/releases/latest"

// versionCheckMsg carries the result of a background release check.
type versionCheckMsg struct {
	latestVersion string
	hasUpdate     bool
}

// checkVersion fires a non-blocking HTTP request to see if a newer release
// exists. Returns nil when version is "dev" or no URL is configured.
func checkVersion(current, releaseURL string) tea.Cmd {
	if current == "" || current == "dev" || releaseURL == "" {
		return nil
	}
	return func() tea.Msg {
		latest, err := LatestRelease(context.Background(), releaseURL)
		if err != nil {
			log.Debug(log.CatUI, "release check failed", "error", err)
			return versionCheckMsg{}
		}
		if IsNewerVersion(latest, current) {
			return versionCheckMsg{latestVersion: "v" + strings.TrimPrefix(latest, "v"), hasUpdate: true}
		}
		return versionCheckMsg{}
	}
}

// LatestRelease returns the tag name of the latest release at releaseURL.
func LatestRelease(ctx context.Context, releaseURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return "", &releaseStatusError{code: resp.StatusCode}
	}
	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	return strings.TrimPrefix(release.TagName, "v"), nil
}

type releaseStatusError struct{ code int }

func (e *releaseStatusError) Error() string {
	return "release check: HTTP " + strconv.Itoa(e.code)
}

// IsNewerVersion returns true if latest is a newer semver than current.
func IsNewerVersion(latest, current string) bool {
	parse := func(v string) (int, int, int) {
		v = strings.TrimPrefix(v, "v")
		parts := strings.SplitN(v, ".", 3)
		atoi := func(s string) int {
			n, _ := strconv.Atoi(s) //nolint:errcheck
			return n
		}
		var maj, min, patch int
		if len(parts) > 0 {
			maj = atoi(parts[0])
		}
		if len(parts) > 1 {
			min = atoi(parts[1])
		}
		if len(parts) > 2 {
			patch = atoi(parts[2])
		}
		return maj, min, patch
	}
	lMaj, lMin, lPatch := parse(latest)
	cMaj, cMin, cPatch := parse(current)
	if lMaj != cMaj {
		return lMaj > cMaj
	}
	if lMin != cMin {
		return lMin > cMin
	}
	return lPatch > cPatch
}
