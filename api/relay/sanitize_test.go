package relay

import (
	"regexp"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Already safe", "annual-report_2020.pdf", "annual-report_2020.pdf"},
		{"Spaces and symbols", "Annual Report (2020) & Notes.pdf", "Annual_Report__2020____Notes.pdf"},
		{"Non-ASCII", "résumé.pdf", "r_sum_.pdf"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFileName(tt.in); got != tt.want {
				t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFileName_Properties(t *testing.T) {
	allowed := regexp.MustCompile(`^[a-zA-Z0-9_.-]*$`)
	inputs := []string{
		strings.Repeat("a", 300) + ".pdf",
		strings.Repeat("日本語", 200),
		"../../etc/passwd",
		"a/b\\c:d*e?f\"g<h>i|j",
	}
	for _, in := range inputs {
		got := SanitizeFileName(in)
		if len(got) > MaxFileNameLength {
			t.Errorf("len(SanitizeFileName()) = %d, want <= %d", len(got), MaxFileNameLength)
		}
		if !allowed.MatchString(got) {
			t.Errorf("SanitizeFileName(%q) = %q contains disallowed characters", in, got)
		}
	}
}

func TestEncodeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.org/a.pdf", "https://example.org/a.pdf"},
		{"https://example.org/upload/Annual Report.pdf", "https://example.org/upload/Annual%20Report.pdf"},
		{"http://127.0.0.1:8080/x~y/a_b-c.pdf", "http://127.0.0.1:8080/x~y/a_b-c.pdf"},
		{"https://example.org/a&b.pdf", "https://example.org/a%26b.pdf"},
		{"https://example.org/ü.pdf", "https://example.org/%C3%BC.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := EncodeURL(tt.in); got != tt.want {
				t.Errorf("EncodeURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	got := NormalizeURL(` https://example.org/upload\investors\a.pdf `)
	if want := "https://example.org/upload/investors/a.pdf"; got != want {
		t.Errorf("NormalizeURL() = %q, want %q", got, want)
	}
}

func TestUploadName(t *testing.T) {
	tests := []struct {
		url, display, want string
	}{
		{"https://example.org/upload/a.pdf", "Report", "a.pdf"},
		{"https://example.org/upload/a.pdf?v=2", "Report", "a.pdf"},
		{"https://example.org/upload/", "Report", "Report"},
		{"https://example.org/upload/", "", "file"},
	}
	for _, tt := range tests {
		if got := uploadName(tt.url, tt.display); got != tt.want {
			t.Errorf("uploadName(%q, %q) = %q, want %q", tt.url, tt.display, got, tt.want)
		}
	}
}

func TestMatchContentType(t *testing.T) {
	tests := []struct {
		header, expected string
		want             bool
	}{
		{"application/pdf", "application/pdf", true},
		{"Application/PDF; charset=binary", "application/pdf", true},
		{"text/html; charset=utf-8", "application/pdf", false},
		{"", "application/pdf", false},
		{"text/html", "", true},
	}
	for _, tt := range tests {
		if got := MatchContentType(tt.header, tt.expected); got != tt.want {
			t.Errorf("MatchContentType(%q, %q) = %v, want %v", tt.header, tt.expected, got, tt.want)
		}
	}
}
