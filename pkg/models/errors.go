package models

import (
	"fmt"
	"strings"
)

// RemoteAPIError is returned when the analytics API answers with a cause/errors
// payload or a non-success status.
type RemoteAPIError struct {
	Method       string
	URL          string
	Status       int
	RequestBody  string
	ResponseBody string
	Cause        string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.URL, e.Status, e.Cause)
}

// NotFoundError reports an entity missing where a mapping said it would be.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// SchemaMismatchError reports a table or field that cannot be matched by name.
type SchemaMismatchError struct {
	Kind     string
	SourceID string
	Name     string
	Side     string
}

func (e *SchemaMismatchError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s (%s) not found in %s schema", e.Kind, e.Name, e.SourceID, e.Side)
	}
	return fmt.Sprintf("%s %s not found in %s schema", e.Kind, e.SourceID, e.Side)
}

// MissingDependencyError reports a card referenced by a template tag that has
// no counterpart at the destination (or no longer exists at the source).
type MissingDependencyError struct {
	DisplayName string
	Host        string
	AtSource    bool
}

func (e *MissingDependencyError) Error() string {
	if e.AtSource {
		return fmt.Sprintf("failed to find needed dependency %s at source %s; make sure the referenced card exists in the source collection", e.DisplayName, e.Host)
	}
	return fmt.Sprintf("failed to find needed dependency %s in %s; sync the card first", e.DisplayName, e.Host)
}

// ConfigurationError collects every pre-flight problem found before a run.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + strings.Join(e.Problems, "; ")
}

// Add records a problem.
func (e *ConfigurationError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// OrNil returns e when it holds problems, nil otherwise.
func (e *ConfigurationError) OrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
