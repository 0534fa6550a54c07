package service

import "errors"

var (
	ErrSessionNotFound       = errors.New("reading session not found")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrDocumentUnavailable   = errors.New("document unavailable")
	ErrInvalidDocument       = errors.New("invalid document")
	ErrChoiceNotFound        = errors.New("no choice on line")
	ErrAlternativeOutOfRange = errors.New("alternative index out of range")
	ErrExportNotFound        = errors.New("export job not found")
	ErrExportNotReady        = errors.New("export job not completed")
	ErrJobCreationFailed     = errors.New("failed to create export job")
)
