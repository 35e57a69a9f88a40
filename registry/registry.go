package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Factory constructs one action instance. It is called exactly once per
// entry, at registry construction.
type Factory func() core.Action

// Entry pairs a registered name with the factory of its action.
type Entry struct {
	Name string
	New  Factory
}

// Registry holds one action instance per name and fans out the one-time
// Init call.
//
// The set of names is fixed at construction: there is no dynamic add or
// remove. Lookups are safe for concurrent use; InitAll is serialized.
//
// Lookup semantics:
//   - Lookup returns the instance for any registered name, initialized or not
//   - Get additionally requires the action to be initialized and
//     distinguishes ErrActionNotFound from ErrActionNotInitialized
//
// Example:
//
//	reg, err := registry.New(logger,
//	    registry.Entry{Name: "move", New: func() core.Action { return actions.NewMove(deps) }},
//	    registry.Entry{Name: "speak", New: func() core.Action { return actions.NewSpeak(deps) }},
//	)
//	if err != nil {
//	    return err
//	}
//	if err := reg.InitAll(ctx); err != nil {
//	    return err // startup-fatal
//	}
//	move, err := reg.Get("move")
type Registry struct {
	logger  logging.Logger
	order   []string
	actions map[string]core.Action

	mu          sync.RWMutex    // Protects initialized
	initialized map[string]bool // Names whose Init completed

	initMu sync.Mutex // Serializes InitAll
}

// New instantiates every entry once, in order, and verifies each instance.
// It fails with a *core.ContractError for an empty name, a nil factory, a
// nil instance or an instance shared between names, and with
// core.ErrDuplicateAction when two entries share a name.
func New(logger logging.Logger, entries ...Entry) (*Registry, error) {
	r := &Registry{
		logger:      logging.OrNoOp(logger),
		order:       make([]string, 0, len(entries)),
		actions:     make(map[string]core.Action, len(entries)),
		initialized: make(map[string]bool, len(entries)),
	}
	owners := make(map[core.Action]string, len(entries))

	for _, e := range entries {
		if e.Name == "" {
			return nil, &core.ContractError{Reason: "entry without a name"}
		}
		if _, dup := r.actions[e.Name]; dup {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateAction, e.Name)
		}
		if e.New == nil {
			return nil, &core.ContractError{Action: e.Name, Reason: "nil factory"}
		}
		a := e.New()
		if isNil(a) {
			return nil, &core.ContractError{Action: e.Name, Reason: "factory returned a nil instance"}
		}
		if reflect.ValueOf(a).Kind() == reflect.Pointer {
			if other, shared := owners[a]; shared {
				return nil, &core.ContractError{Action: e.Name, Reason: "instance already registered as " + other}
			}
			owners[a] = e.Name
		}
		r.actions[e.Name] = a
		r.order = append(r.order, e.Name)
		r.logger.Debug("registry.registered", "action", e.Name, "type", fmt.Sprintf("%T", a))
	}
	return r, nil
}

// NewFromMap builds a registry from a name to factory mapping. Go maps carry
// no order, so entries are registered (and later initialized) in name
// order.
func NewFromMap(logger logging.Logger, factories map[string]Factory) (*Registry, error) {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{Name: name, New: factories[name]})
	}
	return New(logger, entries...)
}

// Lookup returns the instance registered under name. The same instance is
// returned on every call.
func (r *Registry) Lookup(name string) (core.Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// Get returns the initialized action registered under name. It fails with
// core.ErrActionNotFound for an unknown name and with
// core.ErrActionNotInitialized for a registered action whose Init has not
// completed.
func (r *Registry) Get(name string) (core.Action, error) {
	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrActionNotFound, name)
	}
	if !r.IsInitialized(name) {
		return nil, fmt.Errorf("%w: %s", core.ErrActionNotInitialized, name)
	}
	return a, nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered actions.
func (r *Registry) Len() int { return len(r.order) }

// IsInitialized reports whether Init completed for name.
func (r *Registry) IsInitialized(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized[name]
}

// Ready reports whether every registered action is initialized.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if !r.initialized[name] {
			return false
		}
	}
	return true
}

// InitAll calls Init on every registered action in registration order. The
// first failure stops the fan-out and is returned as a *core.InitError naming
// the action; the registry is then not ready. Actions that already completed
// Init are skipped, so a second InitAll after success is a no-op.
func (r *Registry) InitAll(ctx context.Context) error {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	for _, name := range r.order {
		if r.IsInitialized(name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return &core.InitError{Action: name, Err: err}
		}
		r.logger.Info("registry.init", "action", name)
		if err := r.actions[name].Init(ctx, name); err != nil && !errors.Is(err, core.ErrAlreadyInitialized) {
			r.logger.Error("registry.init.failed", "action", name, "error", err.Error())
			return &core.InitError{Action: name, Err: err}
		}
		r.mu.Lock()
		r.initialized[name] = true
		r.mu.Unlock()
	}
	r.logger.Info("registry.ready", "actions", len(r.order))
	return nil
}

func isNil(a core.Action) bool {
	if a == nil {
		return true
	}
	v := reflect.ValueOf(a)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
