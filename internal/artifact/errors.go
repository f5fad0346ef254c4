package artifact

import "errors"

var (
	// ErrNotFound is returned when a reference, version or file does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidRef is returned for malformed artifact references.
	ErrInvalidRef = errors.New("invalid artifact reference")
	// ErrInvalidArtifact is returned when a publish request is incomplete.
	ErrInvalidArtifact = errors.New("invalid artifact")
	// ErrNoFiles is returned when resolving an artifact that holds no files.
	ErrNoFiles = errors.New("artifact has no files")
	// ErrMultipleFiles is returned when a reference without a file component
	// resolves to an artifact holding more than one file.
	ErrMultipleFiles = errors.New("artifact has multiple files; name one with name:alias/file")
	// ErrDigestMismatch is returned when stored content does not match its recorded digest.
	ErrDigestMismatch = errors.New("artifact digest mismatch")
)
