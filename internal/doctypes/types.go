package doctypes

import (
	"path"
	"strings"
)

// Kind is a coarse document category derived from the extension.
type Kind string

const (
	KindDocument    Kind = "document"
	KindSpreadsheet Kind = "spreadsheet"
	KindPDF         Kind = "pdf"
	KindDiagram     Kind = "diagram"
	KindText        Kind = "text"
	KindData        Kind = "data"
	KindOther       Kind = "other"
)

// DefaultExtensions is the allow-list used when configuration supplies none.
var DefaultExtensions = []string{".md", ".docx", ".xlsx", ".pdf", ".vsdx", ".txt", ".csv"}

// DefaultSkipPatterns are editor lock files and OS metadata that never belong
// in the index.
var DefaultSkipPatterns = []string{"~$*", "*.tmp", "Thumbs.db", ".DS_Store"}

var kinds = map[string]Kind{
	".md":   KindText,
	".txt":  KindText,
	".rst":  KindText,
	".doc":  KindDocument,
	".docx": KindDocument,
	".odt":  KindDocument,
	".rtf":  KindDocument,
	".xls":  KindSpreadsheet,
	".xlsx": KindSpreadsheet,
	".ods":  KindSpreadsheet,
	".pdf":  KindPDF,
	".vsd":  KindDiagram,
	".vsdx": KindDiagram,
	".csv":  KindData,
	".json": KindData,
	".yaml": KindData,
	".yml":  KindData,
}

var mimeTypes = map[string]string{
	".md":   "text/markdown",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".json": "application/json",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".vsdx": "application/vnd.ms-visio.drawing",
}

// NormalizeExtension lower-cases ext and ensures a leading dot.
// An empty or dot-only input yields "".
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = strings.TrimLeft(ext, ".")
	if ext == "" {
		return ""
	}
	return "." + ext
}

// ExtensionOf returns the normalized extension of a file name.
func ExtensionOf(name string) string {
	return NormalizeExtension(path.Ext(name))
}

// KindFor returns the Kind for a normalized extension.
func KindFor(ext string) Kind {
	if k, ok := kinds[ext]; ok {
		return k
	}
	return KindOther
}

// MimeType returns the MIME type for a normalized extension, falling back to
// application/octet-stream.
func MimeType(ext string) string {
	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

// ExtensionSet builds a lookup set from a list of extensions, normalizing each.
func ExtensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		if n := NormalizeExtension(e); n != "" {
			set[n] = true
		}
	}
	return set
}
