package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const versionCheckTimeout = 5 * time.Second

// releaseURL answers with the newest published release of the client.
var releaseURL = "https://api.github.com/repos/naveenspark/household/releases/latest"

type versionCheckMsg struct {
	latestVersion string
	hasUpdate     bool
}

// checkVersion looks up the newest release in the background. Any failure
// yields an empty message; a missed notice is not worth an error. Dev builds
// skip the check.
func checkVersion(current string) tea.Cmd {
	if current == "" || current == "dev" {
		return nil
	}
	url := releaseURL
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), versionCheckTimeout)
		defer cancel()
		latest, err := latestRelease(ctx, url)
		if err != nil || !IsNewerVersion(latest, current) {
			return versionCheckMsg{}
		}
		return versionCheckMsg{latestVersion: "v" + strings.TrimPrefix(latest, "v"), hasUpdate: true}
	}
}

func latestRelease(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return "", &versionStatusError{status: resp.StatusCode}
	}
	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	return release.TagName, nil
}

type versionStatusError struct{ status int }

func (e *versionStatusError) Error() string {
	return "release lookup: " + http.StatusText(e.status)
}

// semver is major.minor.patch; pre-release and build suffixes are ignored.
type semver [3]int

func parseSemver(v string) semver {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	var s semver
	for i, part := range strings.SplitN(v, ".", 3) {
		n, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		s[i] = n
	}
	return s
}

// IsNewerVersion reports whether latest is a newer release than current.
func IsNewerVersion(latest, current string) bool {
	l, c := parseSemver(latest), parseSemver(current)
	for i := range l {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}
