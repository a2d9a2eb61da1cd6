// Package language maps file names to the language tags the chat backend expects.
package language

import (
	"path/filepath"
	"strings"
)

var byExtension = map[string]string{
	".c":      "c",
	".h":      "cpp",
	".cc":     "cpp",
	".cpp":    "cpp",
	".cxx":    "cpp",
	".hpp":    "cpp",
	".hh":     "cpp",
	".go":     "go",
	".py":     "python",
	".java":   "java",
	".kt":     "kotlin",
	".js":     "javascript",
	".mjs":    "javascript",
	".ts":     "typescript",
	".rs":     "rust",
	".sh":     "shell",
	".bash":   "shell",
	".json":   "json",
	".yaml":   "yaml",
	".yml":    "yaml",
	".xml":    "xml",
	".md":     "markdown",
	".cmake":  "cmake",
	".gradle": "groovy",
	".qml":    "qml",
	".sql":    "sql",
	".lua":    "lua",
	".rb":     "ruby",
	".php":    "php",
}

var byName = map[string]string{
	"cmakelists.txt": "cmake",
	"makefile":       "makefile",
	"dockerfile":     "dockerfile",
}

// ID returns the language tag for path, or "" when the file type is unknown.
func ID(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if id, ok := byName[base]; ok {
		return id
	}
	return byExtension[strings.ToLower(filepath.Ext(base))]
}

// Known reports whether path has a recognised language.
func Known(path string) bool {
	return ID(path) != ""
}
