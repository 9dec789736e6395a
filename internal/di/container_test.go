package di

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{ n int }

func TestContainer_ResolveBuildsRegisteredSingleton(t *testing.T) {
	// Given: a container with a singleton widget factory
	c := New()
	builds := 0
	c.Register("widget", Singleton, nil, func(c *Container) (any, error) {
		builds++
		return &widget{n: builds}, nil
	})

	// When: it is resolved twice
	first, err := Resolve[*widget](c, "widget")
	require.NoError(t, err)
	second, err := Resolve[*widget](c, "widget")
	require.NoError(t, err)

	// Then: the factory ran once and both resolves share the same instance
	assert.Equal(t, 1, builds)
	assert.Same(t, first, second)
}

func TestContainer_ResolveBuildsFreshTransient(t *testing.T) {
	// Given: a container with a transient widget factory
	c := New()
	builds := 0
	c.Register("widget", Transient, nil, func(c *Container) (any, error) {
		builds++
		return &widget{n: builds}, nil
	})

	// When: it is resolved twice
	first, err := Resolve[*widget](c, "widget")
	require.NoError(t, err)
	second, err := Resolve[*widget](c, "widget")
	require.NoError(t, err)

	// Then: each resolve built a distinct instance
	assert.Equal(t, 2, builds)
	assert.NotSame(t, first, second)
}

func TestContainer_ResolveUnregisteredErrors(t *testing.T) {
	// Given: an empty container
	c := New()

	// When/Then: resolving an unknown id errors instead of panicking
	_, err := c.Resolve("missing")
	assert.Error(t, err)
}

func TestResolve_TypeMismatchErrors(t *testing.T) {
	// Given: a container whose factory returns a string
	c := New()
	c.Register("name", Singleton, nil, func(c *Container) (any, error) {
		return "hello", nil
	})

	// When: it is resolved as the wrong generic type
	_, err := Resolve[*widget](c, "name")

	// Then: the type mismatch is reported as an error
	assert.Error(t, err)
}

func TestContainer_ResolveWrapsFactoryError(t *testing.T) {
	// Given: a factory that always fails
	c := New()
	c.Register("broken", Singleton, nil, func(c *Container) (any, error) {
		return nil, fmt.Errorf("construction failed")
	})

	// When: it is resolved
	_, err := c.Resolve("broken")

	// Then: the error is surfaced, wrapped with the id
	assert.ErrorContains(t, err, "broken")
	assert.ErrorContains(t, err, "construction failed")
}

func TestContainer_ResolveLazilyChainsDependencies(t *testing.T) {
	// Given: a widget factory that resolves another registered dependency
	c := New()
	c.Register("base", Singleton, nil, func(c *Container) (any, error) {
		return 7, nil
	})
	c.Register("widget", Singleton, []string{"base"}, func(c *Container) (any, error) {
		base, err := Resolve[int](c, "base")
		if err != nil {
			return nil, err
		}
		return &widget{n: base}, nil
	})

	// When: the dependent is resolved
	w, err := Resolve[*widget](c, "widget")

	// Then: its dependency was resolved transitively
	require.NoError(t, err)
	assert.Equal(t, 7, w.n)
}

func TestContainer_ValidateFindsNoFalsePositiveOnAcyclicGraph(t *testing.T) {
	// Given: a container with a linear a->b->c dependency chain
	c := New()
	c.Register("a", Singleton, []string{"b"}, nil)
	c.Register("b", Singleton, []string{"c"}, nil)
	c.Register("c", Singleton, nil, nil)

	// When: it is validated
	cycles := c.Validate()

	// Then: no cycles are reported
	assert.Empty(t, cycles)
}

func TestContainer_ValidateDetectsDirectCycle(t *testing.T) {
	// Given: a container where a depends on b and b depends back on a
	c := New()
	c.Register("a", Singleton, []string{"b"}, nil)
	c.Register("b", Singleton, []string{"a"}, nil)

	// When: it is validated
	cycles := c.Validate()

	// Then: the cycle is reported
	require.NotEmpty(t, cycles)
}

func TestContainer_ValidateDetectsIndirectCycle(t *testing.T) {
	// Given: a->b->c->a
	c := New()
	c.Register("a", Singleton, []string{"b"}, nil)
	c.Register("b", Singleton, []string{"c"}, nil)
	c.Register("c", Singleton, []string{"a"}, nil)

	// When: it is validated
	cycles := c.Validate()

	// Then: the cycle is reported
	require.NotEmpty(t, cycles)
}

func TestContainer_ResolveDetectsRuntimeSelfReferencingCycle(t *testing.T) {
	// Given: a factory that resolves its own id during construction,
	// undeclared in Register's deps
	c := New()
	c.Register("loop", Singleton, nil, func(c *Container) (any, error) {
		return c.Resolve("loop")
	})

	// When: it is resolved
	_, err := c.Resolve("loop")

	// Then: the runtime cycle is caught instead of recursing forever
	assert.ErrorContains(t, err, "cycle")
}
