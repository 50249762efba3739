package action

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/ragdesk/logging"
)

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

type entry struct {
	def     Definition
	exec    Executor
	enabled bool
}

// Registry maps action names to definitions and executors. Registration is
// expected at startup; dispatch is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Registry{entries: make(map[string]*entry), logger: opts.Logger}
}

// Register adds an enabled action. Duplicate names and malformed definitions
// are configuration errors.
func (r *Registry) Register(def Definition, exec Executor) error {
	if err := def.check(); err != nil {
		return err
	}
	if exec == nil {
		return fmt.Errorf("%w: %s has no executor", ErrInvalidDefinition, def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, def.Name)
	}
	def.Parameters = append([]Field(nil), def.Parameters...)
	r.entries[def.Name] = &entry{def: def, exec: exec, enabled: true}
	return nil
}

// Restrict enables or disables registered actions. Actions absent from the
// map keep their state. Naming an unregistered action is an error.
func (r *Registry) Restrict(enabled map[string]bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var unknown []string
	for name := range enabled {
		if _, ok := r.entries[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownAction, strings.Join(unknown, ", "))
	}
	for name, on := range enabled {
		r.entries[name].enabled = on
	}
	return nil
}

// Lookup returns the definition of an enabled action.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok || !e.enabled {
		return Definition{}, false
	}
	return e.def, true
}

// Definitions returns the enabled definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.entries))
	for _, e := range r.entries {
		if e.enabled {
			defs = append(defs, e.def)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// ExecuteJSON decodes raw JSON arguments and dispatches. Empty input means no
// arguments.
func (r *Registry) ExecuteJSON(ctx context.Context, name, raw string) Result {
	args := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			verr := &ValidationError{Action: name, Kind: MalformedArguments, Err: err}
			r.logger.Warn("action.execute.malformed_arguments", "action", name, "error", err)
			return Result{Action: name, Outcome: OutcomeValidationError, Err: verr}
		}
		if args == nil {
			args = map[string]any{}
		}
	}
	return r.Execute(ctx, name, args)
}

// Execute validates args and, only if they are valid, invokes the executor
// exactly once.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Result {
	r.mu.RLock()
	e, ok := r.entries[name]
	if ok && !e.enabled {
		ok = false
	}
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("action.execute.unknown", "action", name)
		return Result{
			Action:    name,
			Arguments: Arguments(args),
			Outcome:   OutcomeValidationError,
			Err:       &ValidationError{Action: name, Kind: UnknownAction},
		}
	}

	validated, problems := e.def.validate(args)
	if len(problems) > 0 {
		verr := &ValidationError{Action: name, Kind: InvalidArguments, Fields: problems}
		r.logger.Warn("action.execute.validation_failed", "action", name, "error", verr.Error())
		return Result{Action: name, Arguments: Arguments(args), Outcome: OutcomeValidationError, Err: verr}
	}

	start := time.Now()
	r.logger.Debug("action.execute.start", "action", name)

	payload, err := invoke(ctx, name, e.exec, validated)
	if err != nil {
		r.logger.Error("action.execute.error", "action", name, "error", err.Error())
		return Result{Action: name, Arguments: validated, Outcome: OutcomeExecutionError, Err: err}
	}

	r.logger.Info("action.execute.success", "action", name, "duration_ms", time.Since(start).Milliseconds())
	return Result{Action: name, Arguments: validated, Outcome: OutcomeSuccess, Payload: payload}
}

func invoke(ctx context.Context, name string, exec Executor, args Arguments) (payload any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			payload = nil
			err = &ExecutionError{Action: name, Err: fmt.Errorf("%v", rec), Panic: true}
		}
	}()
	payload, err = exec(ctx, args)
	if err != nil {
		if eerr, ok := err.(*ExecutionError); ok {
			return nil, eerr
		}
		return nil, &ExecutionError{Action: name, Err: err}
	}
	return payload, nil
}
