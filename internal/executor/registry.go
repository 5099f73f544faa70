package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps executor names to implementations. Registration happens
// once at startup, before the graph is compiled against the declared
// result types.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
	providers map[string]ContextProvider
	effects   map[string]Effect
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register adds an executor. Duplicate names are rejected so a config
// executor cannot silently shadow a builtin.
func (r *Registry) Register(e Executor) error {
	if e == nil {
		return fmt.Errorf("cannot register nil executor")
	}
	name := e.Name()
	if name == "" {
		return fmt.Errorf("cannot register executor with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[name]; exists {
		return fmt.Errorf("executor %q already registered", name)
	}
	r.executors[name] = e
	return nil
}

// Get returns the named executor.
func (r *Registry) Get(name string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.executors[name]
	if !ok {
		return nil, fmt.Errorf("unknown executor %q", name)
	}
	return e, nil
}

// Names returns the registered executor names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeclaredResultTypes returns the result-type declaration per executor,
// the shape graph compilation validates edges against.
func (r *Registry) DeclaredResultTypes() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	declared := make(map[string][]string, len(r.executors))
	for name, e := range r.executors {
		declared[name] = append([]string(nil), e.ResultTypes()...)
	}
	return declared
}

// ContextProvider computes extra context for an executor before it runs,
// from live state the scheduler alone cannot see.
type ContextProvider func(ctx context.Context, run *Run, ec *Context) (map[string]any, error)

// RegisterProvider attaches a context provider to an executor name.
func (r *Registry) RegisterProvider(executorName string, p ContextProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.providers == nil {
		r.providers = make(map[string]ContextProvider)
	}
	r.providers[executorName] = p
}

// Provider returns the context provider for an executor, if any.
func (r *Registry) Provider(executorName string) (ContextProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[executorName]
	return p, ok
}

// Effect is a non-essential side effect fired after a result's events
// commit. Effect failures are logged, never retried, and never affect
// run state.
type Effect func(ctx context.Context, run *Run, result *Result, ec *Context) error

// EffectKey builds the registry key for an executor/result pair.
func EffectKey(executorName, resultType string) string {
	return executorName + ":" + resultType
}

// RegisterEffect attaches an effect to an executor/result pair.
func (r *Registry) RegisterEffect(executorName, resultType string, effect Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.effects == nil {
		r.effects = make(map[string]Effect)
	}
	r.effects[EffectKey(executorName, resultType)] = effect
}

// EffectFor returns the effect registered for an executor/result pair,
// if any.
func (r *Registry) EffectFor(executorName, resultType string) (Effect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	effect, ok := r.effects[EffectKey(executorName, resultType)]
	return effect, ok
}
