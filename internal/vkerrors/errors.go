// Package vkerrors defines the error taxonomy shared across the analysis
// pipeline. Every kind maps to one of the handling policies in the
// component design: some are fatal before any stage runs, some are
// recorded as warnings and attached to the result, some are recovered
// internally and never surface.
package vkerrors

import (
	"fmt"
	"time"
)

// Kind identifies which handling policy an error is subject to.
type Kind string

const (
	// KindIo covers file read, directory walk, and cache persistence failures.
	KindIo Kind = "io"
	// KindParse covers grammar rejection or invalid encoding for a single file.
	KindParse Kind = "parse"
	// KindValidation covers configuration or input invariant violations.
	// Fatal: raised before any pipeline stage runs.
	KindValidation Kind = "validation"
	// KindMath covers degenerate statistics. Never surfaces to callers;
	// recovered internally by Bayesian fallbacks or neutral defaults.
	KindMath Kind = "math"
	// KindCache covers stop-motif cache corruption.
	KindCache Kind = "cache"
	// KindPipeline covers a stage raising an unexpected condition.
	KindPipeline Kind = "pipeline"
	// KindResourceExhaustion covers per-file or total timeout.
	KindResourceExhaustion Kind = "resource_exhaustion"
	// KindFeatureUnavailable covers an optional dependency being absent.
	KindFeatureUnavailable Kind = "feature_unavailable"
)

// Error is the single error type used across the core. It carries enough
// context for the orchestrator to decide whether to skip a file, abort a
// run, or silently recover, and enough detail for a warning record.
type Error struct {
	Kind       Kind
	Stage      string // pipeline stage name, set for KindPipeline
	Language   string // set for KindParse
	Component  string // e.g. "astcache", "clone/phase2"
	Operation  string
	Path       string
	Underlying error
	Timestamp  time.Time

	// Recoverable marks whether the orchestrator may continue the run.
	// KindValidation is never recoverable; KindMath is always recovered
	// before an Error of that kind would even be constructed.
	Recoverable bool
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{
		Kind:        kind,
		Operation:   op,
		Underlying:  err,
		Timestamp:   time.Now(),
		Recoverable: true,
	}
}

// Io constructs a KindIo error.
func Io(op string, err error) *Error { return newError(KindIo, op, err) }

// Parse constructs a KindParse error tagged with the offending language.
func Parse(language, reason string) *Error {
	e := newError(KindParse, "parse", fmt.Errorf("%s", reason))
	e.Language = language
	return e
}

// Validation constructs a fatal KindValidation error.
func Validation(op string, err error) *Error {
	e := newError(KindValidation, op, err)
	e.Recoverable = false
	return e
}

// Cache constructs a KindCache error; callers always treat it as a miss.
func Cache(op string, err error) *Error { return newError(KindCache, op, err) }

// Pipeline constructs a KindPipeline error tagged with the stage name.
func Pipeline(stage, op string, err error) *Error {
	e := newError(KindPipeline, op, err)
	e.Stage = stage
	return e
}

// ResourceExhaustion constructs a timeout error for a file or a whole run.
func ResourceExhaustion(op, path string) *Error {
	e := newError(KindResourceExhaustion, op, fmt.Errorf("exceeded budget"))
	e.Path = path
	return e
}

// FeatureUnavailable constructs an error recorded when an optional input
// (coverage, live-reach) was requested but not supplied.
func FeatureUnavailable(component string) *Error {
	e := newError(KindFeatureUnavailable, "join", fmt.Errorf("%s not supplied", component))
	e.Component = component
	return e
}

// WithPath attaches the file path under analysis.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithComponent attaches the originating component name.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Operation, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Operation)
}

func (e *Error) Unwrap() error { return e.Underlying }

// Warning renders the error as a human-readable warning string suitable
// for AnalysisResults.Warnings. Only ever called on recoverable errors.
func (e *Error) Warning() string {
	switch e.Kind {
	case KindParse:
		return fmt.Sprintf("skipped %s: parse error (%s): %v", e.Path, e.Language, e.Underlying)
	case KindIo:
		return fmt.Sprintf("io error during %s (%s): %v", e.Operation, e.Path, e.Underlying)
	case KindResourceExhaustion:
		return fmt.Sprintf("%s exceeded budget and was aborted", e.Path)
	case KindPipeline:
		return fmt.Sprintf("stage %q produced no output: %v", e.Stage, e.Underlying)
	case KindCache:
		return fmt.Sprintf("stop-motif cache miss (%s): %v", e.Operation, e.Underlying)
	case KindFeatureUnavailable:
		return fmt.Sprintf("%s unavailable, using neutral default", e.Component)
	default:
		return e.Error()
	}
}

// IsFatal reports whether an error must abort the run before any stage
// executes.
func IsFatal(err error) bool {
	e, ok := err.(*Error)
	return ok && !e.Recoverable
}
