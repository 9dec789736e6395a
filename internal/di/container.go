// Package di implements a minimal dependency-injection container: register
// a factory under a type identifier with a lifetime, resolve a type to get
// a shared (or fresh) handle, and validate the registered dependency graph
// for cycles before anything is built. The composition root pattern it
// supports generalizes explicit constructor wiring into something reusable
// instead of repeated by hand at every call site.
package di

import "fmt"

// Lifetime controls whether Resolve returns a memoized instance or builds
// a fresh one on every call.
type Lifetime int

const (
	// Singleton instances are built once and memoized.
	Singleton Lifetime = iota
	// Transient instances are built fresh on every Resolve.
	Transient
)

// Factory builds one instance of a registered type, given the container
// so it can resolve its own dependencies lazily.
type Factory func(c *Container) (any, error)

type registration struct {
	lifetime Lifetime
	factory  Factory
	deps     []string
	instance any
	built    bool
}

// Container holds factory registrations keyed by an arbitrary string type
// identifier (conventionally a package-qualified name, e.g.
// "tier.Engine"). It is not an ambient service locator: callers pass the
// container explicitly to factories that need it, and everything else
// receives its dependencies as constructor arguments.
type Container struct {
	registrations map[string]*registration
	resolving     map[string]bool
}

// New creates an empty Container.
func New() *Container {
	return &Container{
		registrations: make(map[string]*registration),
		resolving:     make(map[string]bool),
	}
}

// Register adds a factory under id with the given lifetime. deps lists the
// identifiers this factory's Resolve calls are expected to reach; Validate
// uses it to detect cycles before any factory runs. Registering the same
// id twice overwrites the prior registration.
func (c *Container) Register(id string, lifetime Lifetime, deps []string, factory Factory) {
	c.registrations[id] = &registration{lifetime: lifetime, factory: factory, deps: deps}
}

// Resolve returns the instance registered under id, building it (and
// memoizing it, for Singleton) if this is the first call. It detects
// runtime cycles — a factory that resolves its own id, directly or
// transitively, during its own construction — independently of Validate,
// since Validate only catches cycles declared via Register's deps.
func (c *Container) Resolve(id string) (any, error) {
	reg, ok := c.registrations[id]
	if !ok {
		return nil, fmt.Errorf("di: %q is not registered", id)
	}
	if reg.lifetime == Singleton && reg.built {
		return reg.instance, nil
	}
	if c.resolving[id] {
		return nil, fmt.Errorf("di: cycle detected resolving %q", id)
	}
	c.resolving[id] = true
	defer delete(c.resolving, id)

	instance, err := reg.factory(c)
	if err != nil {
		return nil, fmt.Errorf("di: build %q: %w", id, err)
	}
	if reg.lifetime == Singleton {
		reg.instance = instance
		reg.built = true
	}
	return instance, nil
}

// Resolve resolves id and type-asserts it to T, the generic counterpart to
// Container.Resolve for callers that want a typed handle instead of any.
func Resolve[T any](c *Container, id string) (T, error) {
	var zero T
	v, err := c.Resolve(id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("di: %q resolved to %T, not %T", id, v, zero)
	}
	return t, nil
}

// Cycle is one dependency cycle found by Validate, listing the
// participating identifiers in edge order.
type Cycle struct {
	Path []string
}

// Validate walks the dependency edges declared via Register's deps
// argument and returns every cycle found. It does not build any instance.
func (c *Container) Validate() []Cycle {
	var cycles []Cycle
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		if onStack[id] {
			cycles = append(cycles, Cycle{Path: cyclePath(stack, id)})
			return
		}
		if visited[id] {
			return
		}
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		if reg, ok := c.registrations[id]; ok {
			for _, dep := range reg.deps {
				visit(dep)
			}
		}

		stack = stack[:len(stack)-1]
		onStack[id] = false
	}

	for id := range c.registrations {
		visit(id)
	}
	return cycles
}

// cyclePath trims stack down to the segment that starts at the repeated
// id and appends id again to close the loop visually.
func cyclePath(stack []string, id string) []string {
	for i, s := range stack {
		if s == id {
			path := append([]string{}, stack[i:]...)
			return append(path, id)
		}
	}
	return []string{id}
}
