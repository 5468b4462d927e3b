package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractText_RejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(path, []byte("plain text, not a pdf"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := ExtractText(path, 0); err == nil {
		t.Error("expected error for non-PDF input")
	}
}

func TestExtractText_MissingFile(t *testing.T) {
	if _, err := ExtractText(filepath.Join(t.TempDir(), "absent.pdf"), 0); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short text untouched", "Spirometry within normal limits", 100, "Spirometry within normal limits"},
		{"whitespace collapsed", "FEV1:\n\n  82%   predicted", 100, "FEV1: 82% predicted"},
		{"zero max keeps everything", "abc def", 0, "abc def"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Summarize(tc.in, tc.max); got != tc.want {
				t.Errorf("Summarize = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSummarize_CutsAtWordBoundary(t *testing.T) {
	in := strings.Repeat("finding ", 40) // 320 runes

	got := Summarize(in, 50)
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("truncated summary missing ellipsis: %q", got)
	}
	body := strings.TrimSuffix(got, "…")
	if strings.HasSuffix(body, " ") {
		t.Errorf("summary ends in whitespace: %q", got)
	}
	if len([]rune(body)) > 50 {
		t.Errorf("summary too long: %d runes", len([]rune(body)))
	}
	// No split words.
	for _, w := range strings.Fields(body) {
		if w != "finding" {
			t.Errorf("word %q was split", w)
		}
	}
}
