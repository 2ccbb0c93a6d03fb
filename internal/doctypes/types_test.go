package doctypes

import "testing"

func TestNormalizeExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"pdf", ".pdf"},
		{".PDF", ".pdf"},
		{"  .Md ", ".md"},
		{"..txt", ".txt"},
		{"", ""},
		{".", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeExtension(tt.input); got != tt.want {
				t.Errorf("NormalizeExtension(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtensionOf(t *testing.T) {
	if got := ExtensionOf("Report.DOCX"); got != ".docx" {
		t.Errorf("Expected .docx, got %q", got)
	}
	if got := ExtensionOf("README"); got != "" {
		t.Errorf("Expected empty extension, got %q", got)
	}
}

func TestKindFor(t *testing.T) {
	if KindFor(".xlsx") != KindSpreadsheet {
		t.Errorf("Expected spreadsheet for .xlsx")
	}
	if KindFor(".exe") != KindOther {
		t.Errorf("Expected other for .exe")
	}
}

func TestMimeType(t *testing.T) {
	if MimeType(".md") != "text/markdown" {
		t.Errorf("Expected text/markdown, got %s", MimeType(".md"))
	}
	if MimeType(".zzz") != "application/octet-stream" {
		t.Errorf("Expected octet-stream fallback, got %s", MimeType(".zzz"))
	}
}

func TestExtensionSet(t *testing.T) {
	set := ExtensionSet([]string{"PDF", ".md", ""})
	if !set[".pdf"] || !set[".md"] {
		t.Errorf("Expected .pdf and .md in set, got %v", set)
	}
	if len(set) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(set))
	}
}

func TestDefaultsAreNormalized(t *testing.T) {
	for _, ext := range DefaultExtensions {
		if NormalizeExtension(ext) != ext {
			t.Errorf("Default extension %q is not normalized", ext)
		}
	}
}
