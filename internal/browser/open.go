// Package browser hands URLs to the desktop's default handler.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Open launches the default browser on url without waiting for it to exit.
func Open(url string) error {
	cmd, err := command(runtime.GOOS, url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("browser.Open: %w", err)
	}
	go cmd.Wait() //nolint:errcheck
	return nil
}

func command(goos, url string) (*exec.Cmd, error) {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return nil, fmt.Errorf("browser.Open: refusing non-http url %q", url)
	}
	switch goos {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("browser.Open: unsupported OS %s", goos)
	}
}
