// Package fileval checks that a file is worth quoting in a diagnostic snippet
// before it is read into memory.
package fileval

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// DefaultMaxFileSize bounds source files quoted in snippets.
const DefaultMaxFileSize int64 = 4 << 20

// FileTooLargeError is returned when a file exceeds the configured maximum size.
type FileTooLargeError struct {
	Path    string
	Size    int64
	MaxSize int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf(
		"%s: file too large (%d > %d bytes); raise [snippet] max-file-size to quote it",
		e.Path, e.Size, e.MaxSize,
	)
}

// NotRegularError is returned for directories, devices and other non-files.
type NotRegularError struct {
	Path string
}

func (e *NotRegularError) Error() string {
	return e.Path + ": not a regular file"
}

// NotUTF8Error is returned when a file does not appear to be valid UTF-8 text.
type NotUTF8Error struct {
	Path string
}

func (e *NotUTF8Error) Error() string {
	return e.Path + ": file does not appear to be valid UTF-8 text"
}

// ReadFile returns the content of path after checking, in order, that it is
// a regular file, that it is no larger than maxSize (when maxSize > 0) and
// that the bytes read are valid UTF-8. The file is read once. Stat and read
// errors are returned unwrapped so callers can test them with errors.Is.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, &NotRegularError{Path: path}
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, &FileTooLargeError{Path: path, Size: info.Size(), MaxSize: maxSize}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// The file may have grown since the stat.
	if maxSize > 0 && int64(len(content)) > maxSize {
		return nil, &FileTooLargeError{Path: path, Size: int64(len(content)), MaxSize: maxSize}
	}
	if !utf8.Valid(content) {
		return nil, &NotUTF8Error{Path: path}
	}
	return content, nil
}
