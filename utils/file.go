package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// RemoveIfExists removes the file at path. A file that is already gone is not an error.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// JoinWithin joins name onto dir and fails if the result is not strictly inside dir.
func JoinWithin(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", errors.Wrapf(err, "joining %q onto %q", name, dir)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("%q escapes %q", name, dir)
	}
	return path, nil
}
