// Package faults holds the pipeline's error taxonomy and the batch finding
// collector used by every validation step. Validation collects all findings for a
// batch of records before anything is raised, so the operator sees the complete
// picture in one pass.
package faults

import (
	"fmt"
	"strings"
)

// Severity ranks a finding. Only Error blocks automatic continuation.
type Severity int

const (
	// Note marks information that is expected and normal (e.g. a deliberate
	// many-to-one speaker merge).
	Note Severity = iota
	// Warning marks a recoverable oddity (stale map entry, embedding shortfall).
	Warning
	// Error marks a finding that aborts the run unless the operator forces
	// continuation.
	Error
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Finding is one validation observation.
type Finding struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Set accumulates findings across a validation batch.
type Set struct {
	all []Finding
}

func (s *Set) Notef(format string, args ...any) {
	s.all = append(s.all, Finding{Note, fmt.Sprintf(format, args...)})
}

func (s *Set) Warnf(format string, args ...any) {
	s.all = append(s.all, Finding{Warning, fmt.Sprintf(format, args...)})
}

func (s *Set) Errorf(format string, args ...any) {
	s.all = append(s.all, Finding{Error, fmt.Sprintf(format, args...)})
}

// Merge appends every finding of o.
func (s *Set) Merge(o *Set) {
	if o != nil {
		s.all = append(s.all, o.all...)
	}
}

// All returns the findings in insertion order.
func (s *Set) All() []Finding { return s.all }

func (s *Set) bySeverity(sev Severity) []Finding {
	var out []Finding
	for _, f := range s.all {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

func (s *Set) Notes() []Finding    { return s.bySeverity(Note) }
func (s *Set) Warnings() []Finding { return s.bySeverity(Warning) }
func (s *Set) Errors() []Finding   { return s.bySeverity(Error) }

func (s *Set) HasErrors() bool { return len(s.Errors()) > 0 }

// Empty reports whether nothing was recorded at any severity.
func (s *Set) Empty() bool { return len(s.all) == 0 }

// Err promotes the collected errors to a *ValidationError, or nil when no
// finding reached Error severity.
func (s *Set) Err() error {
	if !s.HasErrors() {
		return nil
	}
	return &ValidationError{Findings: s.Errors()}
}

// ValidationError carries the error-severity findings of a completed batch.
// It is fatal by default; the operator may force continuation past unmapped
// speakers and map parse errors.
type ValidationError struct {
	Findings []Finding
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		msgs[i] = f.Message
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// ConfigError marks an invalid configuration (bad thresholds, conflicting
// algebra rules, cyclic merges). Always fatal, never force-continuable.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

func Configf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// CollaboratorError wraps a failed diarization or transcription call. Fatal for
// the current run; the core never retries.
type CollaboratorError struct {
	Op    string
	Cause error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Op, e.Cause)
}

func (e *CollaboratorError) Unwrap() error { return e.Cause }
