package wobsite

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for classifying front matter failures. These are wrapped
// with the offending path at the call site, so callers should test them with
// errors.Is.
var (
	// ErrNoFrontMatter indicates a document does not start with a front
	// matter delimiter line.
	ErrNoFrontMatter = errors.New("wobsite: document does not start with a front matter block")

	// ErrMissingClosingDelimiter indicates a front matter block was opened
	// but never closed.
	ErrMissingClosingDelimiter = errors.New("wobsite: front matter closing delimiter is missing")

	// ErrInvalidFrontMatter indicates the front matter block is not a valid
	// JSON object.
	ErrInvalidFrontMatter = errors.New("wobsite: front matter is not a valid JSON object")
)

// FrontMatterKeyError indicates a front matter key is missing or has a value
// of the wrong type.
type FrontMatterKeyError struct {
	Key string
}

func (e *FrontMatterKeyError) Error() string {
	return fmt.Sprintf("wobsite: front matter key %q is missing or invalid", e.Key)
}

// BuildError describes the failure of a single build job. Path is the output
// path the job was producing when it failed.
type BuildError struct {
	Path    string
	Message string
}

// Errors is the aggregate failure report of a build: one entry per failed
// job, in the order the failures were observed. A build that produces no
// failures reports nil instead of an empty Errors.
type Errors []BuildError

func (e Errors) Error() string {
	entries := make([]string, len(e))

	for i, err := range e {
		entries[i] = fmt.Sprintf("%s\nerror: %s", err.Path, err.Message)
	}

	return strings.Join(entries, "\n\n")
}
