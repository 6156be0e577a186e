package vfs

import (
	"fmt"
	"strings"
)

// ParsePath splits "[volume]name" into its parts. name may be empty,
// which addresses the volume's root directory.
func ParsePath(path string) (volume, name string, err error) {
	if !strings.HasPrefix(path, "[") {
		return "", "", fmt.Errorf("%w: %q has no volume", ErrBadPath, path)
	}
	end := strings.IndexByte(path, ']')
	if end < 0 {
		return "", "", fmt.Errorf("%w: %q has an unterminated volume", ErrBadPath, path)
	}
	volume = path[1:end]
	if volume == "" {
		return "", "", fmt.Errorf("%w: %q has an empty volume", ErrBadPath, path)
	}
	return volume, path[end+1:], nil
}

// JoinPath is the inverse of ParsePath.
func JoinPath(volume, name string) string {
	return "[" + volume + "]" + name
}
