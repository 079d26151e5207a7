package models

import (
	"errors"
	"fmt"
	"strings"
)

// Selection failures. Every one of them aborts the current search; none is retried.
var (
	ErrEmptyCandidateSet    = errors.New("empty candidate set")
	ErrSchemaMismatch       = errors.New("schema mismatch")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrNoCandidateEvaluated = errors.New("no candidate evaluated")
)

// SchemaMismatchError reports that two partitions do not share a feature schema.
type SchemaMismatchError struct {
	Training        []string
	Validation      []string
	TrainingLabel   string
	ValidationLabel string
}

func (e *SchemaMismatchError) Error() string {
	if e.TrainingLabel != e.ValidationLabel {
		return fmt.Sprintf("schema mismatch: training label %q, validation label %q", e.TrainingLabel, e.ValidationLabel)
	}
	return fmt.Sprintf("schema mismatch: training features [%s], validation features [%s]",
		strings.Join(e.Training, ", "), strings.Join(e.Validation, ", "))
}

func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// InvalidConfigurationError is returned when a candidate cannot be fit.
type InvalidConfigurationError struct {
	Candidate CandidateConfig
	Err       error
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Candidate, e.Err)
}

func (e *InvalidConfigurationError) Unwrap() error {
	return e.Err
}

func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// InvalidConfiguration is a shorthand for building an *InvalidConfigurationError.
func InvalidConfiguration(c CandidateConfig, format string, args ...any) error {
	return &InvalidConfigurationError{Candidate: c, Err: fmt.Errorf(format, args...)}
}
