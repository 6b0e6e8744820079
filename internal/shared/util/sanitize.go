package util

import (
	"errors"
	"path/filepath"
	"strings"
)

// SanitizeFileName strips directories from an uploaded file name and rejects empty names.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	s = filepath.Base(s)
	if s == "" || s == "." || s == "/" || s == ".." {
		return "", errors.New("invalid file name")
	}
	return s, nil
}
