// Package validation checks user-supplied paths and sniffs the content
// type of corpus files.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 4096

// HeaderSize is the number of leading bytes DetectFileType inspects.
const HeaderSize = 16

// Common validation errors.
var (
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrTypeMismatch     = errors.New("file type mismatch")
	ErrBinaryContent    = errors.New("binary content")
)

// ValidatePath rejects empty or overlong paths and paths containing
// control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// FileType is a detected file type.
type FileType string

const (
	FileTypeText    FileType = "text"
	FileTypeGzip    FileType = "gzip"
	FileTypeXZ      FileType = "xz"
	FileTypeZip     FileType = "zip"
	FileTypeSQLite  FileType = "sqlite"
	FileTypeUnknown FileType = "unknown"
)

var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeGzip, []byte{0x1f, 0x8b}},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeZip, []byte{0x50, 0x4b, 0x03, 0x04}},
	{FileTypeSQLite, []byte("SQLite format 3\x00")},
}

// DetectFileType identifies header by its magic bytes. Headers without a
// known signature are text unless they contain NUL bytes.
func DetectFileType(header []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(header, sig.magic) {
			return sig.fileType
		}
	}
	if bytes.IndexByte(header, 0) >= 0 {
		return FileTypeUnknown
	}
	return FileTypeText
}

// FileTypeFromName returns the type implied by the extension of name.
// Names without a known extension imply text.
func FileTypeFromName(name string) FileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".tgz":
		return FileTypeGzip
	case ".xz", ".txz":
		return FileTypeXZ
	case ".zip":
		return FileTypeZip
	case ".db", ".sqlite", ".sqlite3":
		return FileTypeSQLite
	}
	return FileTypeText
}

// CheckFileType reconciles the content of a file with its name. A name
// without a known extension accepts whatever the content is; a known
// extension must match the content.
func CheckFileType(header []byte, name string) (FileType, error) {
	detected := DetectFileType(header)
	expected := FileTypeFromName(name)

	if detected == FileTypeUnknown {
		return FileTypeUnknown, ErrBinaryContent
	}
	if expected == FileTypeText || detected == expected {
		return detected, nil
	}
	return FileTypeUnknown, fmt.Errorf("%w: extension suggests %s but content is %s",
		ErrTypeMismatch, expected, detected)
}
