package tui

import (
	"strings"
	"testing"
)

func TestEditRuneAddCharacters(t *testing.T) {
	tests := []struct {
		name  string
		start string
		key   string
		want  string
	}{
		{"append to empty", "", "a", "a"},
		{"append digit", "12", "5", "125"},
		{"append comma", "1", ",", "1,"},
		{"append space", "rent", " ", "rent "},
		{"append accented", "caf", "é", "café"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := editRune(tc.start, tc.key)
			if got != tc.want {
				t.Errorf("editRune(%q, %q) = %q, want %q", tc.start, tc.key, got, tc.want)
			}
		})
	}
}

func TestEditRuneBackspace(t *testing.T) {
	tests := []struct {
		name  string
		start string
		want  string
	}{
		{"single char", "a", ""},
		{"longer string", "salary", "salar"},
		{"empty does nothing", "", ""},
		{"multi-byte rune", "café", "caf"},
		{"emoji", "gift\U0001f381", "gift"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := editRune(tc.start, "backspace")
			if got != tc.want {
				t.Errorf("editRune(%q, backspace) = %q, want %q", tc.start, got, tc.want)
			}
		})
	}
}

func TestEditRuneIgnoresNamedKeys(t *testing.T) {
	for _, key := range []string{"enter", "esc", "up", "down", "tab", "shift+tab", "ctrl+c", "ctrl+s", "pgup"} {
		t.Run(key, func(t *testing.T) {
			if got := editRune("memo", key); got != "memo" {
				t.Errorf("editRune(memo, %q) = %q, want unchanged", key, got)
			}
		})
	}
}

func TestEditRuneMaxInputLen(t *testing.T) {
	atLimit := strings.Repeat("a", maxInputLen)
	below := strings.Repeat("a", maxInputLen-1)

	if got := editRune(atLimit, "b"); got != atLimit {
		t.Error("at limit accepted a new rune")
	}
	if got := editRune(below, "b"); got != below+"b" {
		t.Error("below limit rejected a new rune")
	}
	if got := editRune(atLimit, "backspace"); len(got) != maxInputLen-1 {
		t.Error("backspace at limit did not shrink the text")
	}
}

func TestTruncStr(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"groceries", 20, "groceries"},
		{"groceries", 9, "groceries"},
		{"household supplies", 5, "hous…"},
		{"", 5, ""},
		{"cafés and bars", 5, "café…"},
	}
	for _, tt := range tests {
		if got := truncStr(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("truncStr(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncateToHeight(t *testing.T) {
	input := "line1\nline2\nline3\nline4\nline5\n"

	got := truncateToHeight(input, 3)
	if strings.Count(got, "\n") > 3 || strings.Contains(got, "line4") || !strings.Contains(got, "line1") {
		t.Errorf("truncateToHeight(5 lines, 3) = %q", got)
	}
	for _, n := range []int{0, -1, 10} {
		if got := truncateToHeight(input, n); got != input {
			t.Errorf("truncateToHeight(input, %d) changed the input", n)
		}
	}
}
