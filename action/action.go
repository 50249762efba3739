// Package action implements the closed set of side-effecting operations the
// model may request during a turn: typed definitions, schema validation that
// reports every offending field, and dispatch to registered executors with
// uniform error handling.
//
// An executor is never invoked with arguments that failed validation, and a
// failed execution is never retried.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateAction is returned when registering a name twice.
	ErrDuplicateAction = errors.New("duplicate action")
	// ErrInvalidDefinition is returned for malformed action definitions.
	ErrInvalidDefinition = errors.New("invalid action definition")
	// ErrUnknownAction is returned by Restrict for names that were never registered.
	ErrUnknownAction = errors.New("unknown action")
)

// Type is the primitive type of an action parameter.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
)

// Field describes a single named, typed action parameter.
type Field struct {
	Name        string
	Type        Type
	Description string
	Required    bool
	// Enum restricts string values to a fixed set.
	Enum []string
	// Default is applied to optional fields the caller omitted.
	Default any
	// MaxLength bounds string values in runes. Zero means unbounded.
	MaxLength int
}

// Definition is the model-facing description of an action.
type Definition struct {
	Name        string
	Description string
	Parameters  []Field
}

// Arguments are validated, normalised action arguments. Integers are int,
// numbers float64, strings string and booleans bool.
type Arguments map[string]any

// String returns the string argument name or "".
func (a Arguments) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns the integer argument name or 0.
func (a Arguments) Int(name string) int {
	i, _ := a[name].(int)
	return i
}

// Float returns the number argument name or 0.
func (a Arguments) Float(name string) float64 {
	f, _ := a[name].(float64)
	return f
}

// Bool returns the boolean argument name or false.
func (a Arguments) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Executor performs an action with validated arguments.
type Executor func(ctx context.Context, args Arguments) (any, error)

// Outcome classifies a dispatch.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeValidationError Outcome = "validation_error"
	OutcomeExecutionError  Outcome = "execution_error"
)

// Result reports a dispatch. Err is a *ValidationError or *ExecutionError when
// Outcome is not OutcomeSuccess.
type Result struct {
	Action    string
	Arguments Arguments
	Outcome   Outcome
	Payload   any
	Err       error
}

// Succeeded reports whether the executor ran and returned no error.
func (r Result) Succeeded() bool { return r.Outcome == OutcomeSuccess }

// ModelContent renders the result as the JSON text handed back to the model.
func (r Result) ModelContent() string {
	var v any
	switch {
	case r.Outcome == OutcomeSuccess:
		v = r.Payload
	default:
		body := map[string]any{"status": string(r.Outcome), "error": errorMessage(r.Err)}
		var verr *ValidationError
		if errors.As(r.Err, &verr) && len(verr.Fields) > 0 {
			body["fields"] = verr.Fields
		}
		v = body
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ValidationKind distinguishes validation failures.
type ValidationKind string

const (
	UnknownAction      ValidationKind = "unknown_action"
	InvalidArguments   ValidationKind = "invalid_arguments"
	MalformedArguments ValidationKind = "malformed_arguments"
)

// FieldError describes one offending argument.
type FieldError struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
	Value   any    `json:"value,omitempty"`
}

// ValidationError reports arguments that do not satisfy an action's schema.
// It enumerates every offending field, not just the first.
type ValidationError struct {
	Action string
	Kind   ValidationKind
	Fields []FieldError
	// Err carries the decode error for MalformedArguments.
	Err error
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case UnknownAction:
		return fmt.Sprintf("unknown action %q", e.Action)
	case MalformedArguments:
		return fmt.Sprintf("malformed arguments for %s: %v", e.Action, e.Err)
	}
	problems := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		problems[i] = fmt.Sprintf("%s: %s", f.Field, f.Problem)
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Action, strings.Join(problems, "; "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExecutionError reports an executor failure, including a recovered panic.
type ExecutionError struct {
	Action string
	Err    error
	Panic  bool
}

func (e *ExecutionError) Error() string {
	if e.Panic {
		return fmt.Sprintf("action %s panicked: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("action %s failed: %v", e.Action, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
