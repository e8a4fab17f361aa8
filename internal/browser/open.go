package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Opener opens a URL for the user. Tests substitute a recorder.
type Opener func(rawURL string) error

// Open opens an http(s) URL in the user's default browser.
func Open(rawURL string) error {
	if err := checkURL(rawURL); err != nil {
		return err
	}
	name, args := command(runtime.GOOS, rawURL)
	if name == "" {
		return fmt.Errorf("browser.Open: unsupported OS: %s", runtime.GOOS)
	}
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("browser.Open: %w", err)
	}
	return nil
}

func command(goos, rawURL string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{rawURL}
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{rawURL}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", rawURL}
	default:
		return "", nil
	}
}

func checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("browser.Open: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("browser.Open: refusing to open %q: scheme must be http or https", u.Scheme)
	}
	return nil
}
