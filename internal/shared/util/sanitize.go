package util

import (
	"errors"
	"path"
	"strings"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// ArtifactBaseName reduces an original upload name to the stem used in
// debug-artifact keys: extension stripped, spaces and path separators
// replaced with underscores. Unusable names fall back to "upload".
func ArtifactBaseName(name string) string {
	s, err := SanitizeFileName(name)
	if err != nil {
		return "upload"
	}
	s = strings.TrimSuffix(s, path.Ext(s))
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "upload"
	}
	return s
}
