// Package errors provides a hierarchical error system for accession remapping.
// It implements typed errors that can be inspected and handled differently
// based on their category, so the CLI can tell fatal I/O and table problems
// apart from per-record warnings.
package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// ErrorType represents the category of error for classification and handling.
type ErrorType string

// Error type constants define the categories of errors that can occur while
// loading a conversion table and remapping an annotation file.
const (
	ErrTypeFile     ErrorType = "file"
	ErrTypeConfig   ErrorType = "config"
	ErrTypeFormat   ErrorType = "format"
	ErrTypeBackup   ErrorType = "backup"
	ErrTypeUnmapped ErrorType = "unmapped"
)

// RemapError is the base error type that provides structured error information.
// Specific error types embed it, so errors.Is with a bare *RemapError matches
// any error of the same category.
type RemapError struct {
	Type    ErrorType
	Path    string
	Message string
	Cause   error
}

func (e *RemapError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error for %s: %s", e.Type, e.Path, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *RemapError) Unwrap() error {
	return e.Cause
}

// Is implements error identity checking by category.
func (e *RemapError) Is(target error) bool {
	t, ok := target.(*RemapError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// FileError represents file system operation errors. Every FileError is
// fatal for a run.
type FileError struct {
	*RemapError
}

// NewFileError creates a file operation error with context.
func NewFileError(path, message string, cause error) *FileError {
	return &FileError{
		RemapError: &RemapError{
			Type:    ErrTypeFile,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// FileNotFoundError represents errors when files cannot be located.
type FileNotFoundError struct {
	*FileError
}

// NewFileNotFoundError creates a file not found error.
func NewFileNotFoundError(path string, cause error) *FileNotFoundError {
	return &FileNotFoundError{
		FileError: NewFileError(path, "file not found", cause),
	}
}

// FileNotWritableError represents errors when files cannot be written to.
type FileNotWritableError struct {
	*FileError
}

// NewFileNotWritableError creates a file write error.
func NewFileNotWritableError(path string, cause error) *FileNotWritableError {
	return &FileNotWritableError{
		FileError: NewFileError(path, "file not writable", cause),
	}
}

// FileNotReadableError represents errors when files cannot be read from.
type FileNotReadableError struct {
	*FileError
}

// NewFileNotReadableError creates a file read error.
func NewFileNotReadableError(path string, cause error) *FileNotReadableError {
	return &FileNotReadableError{
		FileError: NewFileError(path, "file not readable", cause),
	}
}

// ConfigError represents command-line usage and configuration validation
// errors. They are reported before any file is touched.
type ConfigError struct {
	*RemapError
}

// NewConfigError creates a configuration error without path context.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		RemapError: &RemapError{
			Type:    ErrTypeConfig,
			Message: message,
			Cause:   cause,
		},
	}
}

// NewConfigErrorWithPath creates a configuration error that refers to a
// specific path given on the command line.
func NewConfigErrorWithPath(path, message string, cause error) *ConfigError {
	return &ConfigError{
		RemapError: &RemapError{
			Type:    ErrTypeConfig,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// FormatError reports a conversion table that does not match the expected
// assembly report layout. Line is the 1-based physical line number in the
// table file, or 0 when the problem is not tied to a single line.
type FormatError struct {
	*RemapError
	Line int
}

// NewFormatError creates a format error for the given table line.
func NewFormatError(path string, line int, message string, cause error) *FormatError {
	if line > 0 {
		message = fmt.Sprintf("line %d: %s", line, message)
	}
	return &FormatError{
		RemapError: &RemapError{
			Type:    ErrTypeFormat,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
		Line: line,
	}
}

// BackupError represents errors while copying an existing output file aside.
type BackupError struct {
	*RemapError
}

// NewBackupError creates a backup operation error.
func NewBackupError(path, message string, cause error) *BackupError {
	return &BackupError{
		RemapError: &RemapError{
			Type:    ErrTypeBackup,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// UnmappedAccessionWarning describes an annotation record whose seqid has no
// entry in the conversion table. It satisfies error so it can travel through
// the same reporting paths, but it never aborts a run.
type UnmappedAccessionWarning struct {
	*RemapError
	Line      int
	Accession string
	Row       string
}

// NewUnmappedAccessionWarning creates a warning for the record at line.
func NewUnmappedAccessionWarning(path string, line int, accession, row string) *UnmappedAccessionWarning {
	return &UnmappedAccessionWarning{
		RemapError: &RemapError{
			Type:    ErrTypeUnmapped,
			Path:    path,
			Message: fmt.Sprintf("line %d: unmapped accession %q", line, accession),
		},
		Line:      line,
		Accession: accession,
		Row:       row,
	}
}

// IsWarning reports whether err only carries an unmapped accession warning.
func IsWarning(err error) bool {
	var w *UnmappedAccessionWarning
	return stderrors.As(err, &w)
}

// WrapFileError converts an error from opening or reading path into a typed
// file error.
func WrapFileError(path string, err error) error {
	if err == nil {
		return nil
	}

	absPath := displayPath(path)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return NewFileNotFoundError(absPath, err)
	case stderrors.Is(err, fs.ErrPermission):
		return NewFileNotReadableError(absPath, err)
	default:
		return NewFileError(absPath, "file operation failed", err)
	}
}

// WrapWriteError converts an error from creating or writing path into a typed
// file error.
func WrapWriteError(path string, err error) error {
	if err == nil {
		return nil
	}

	absPath := displayPath(path)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return NewFileNotFoundError(absPath, err)
	default:
		return NewFileNotWritableError(absPath, err)
	}
}

func displayPath(path string) string {
	if path == "" || path == "-" {
		return path
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
