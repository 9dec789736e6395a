package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magray-run/agentcore/internal/config"
	"github.com/magray-run/agentcore/internal/tool"
)

type fakeInvoker struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]bool
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, _ string, _ map[string]any) (*tool.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if f.fail[name] {
		return nil, fmt.Errorf("fake failure for %s", name)
	}
	return &tool.Result{Success: true, Output: "ok:" + name}, nil
}

func TestExecutor_RunsStepsInDependencyOrderAndSucceeds(t *testing.T) {
	// Given: a two-step plan where b depends on a
	plan, err := BuildPlan("intent-1", []*Step{
		{ID: "a", ToolHint: "tool_a"},
		{ID: "b", ToolHint: "tool_b", Deps: []string{"a"}},
	})
	require.NoError(t, err)

	invoker := &fakeInvoker{fail: map[string]bool{}}
	exec := NewExecutor(invoker, config.DefaultOrchestratorConfig())

	// When: the plan is run
	result, err := exec.Run(context.Background(), plan)

	// Then: both steps succeed
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, StepSucceeded, result.Steps["a"].State)
	assert.Equal(t, StepSucceeded, result.Steps["b"].State)
}

func TestExecutor_SkipsDependentsOfAFailedStep(t *testing.T) {
	// Given: b depends on a, and a fails
	plan, err := BuildPlan("intent-1", []*Step{
		{ID: "a", ToolHint: "tool_a"},
		{ID: "b", ToolHint: "tool_b", Deps: []string{"a"}},
	})
	require.NoError(t, err)

	invoker := &fakeInvoker{fail: map[string]bool{"tool_a": true}}
	exec := NewExecutor(invoker, config.DefaultOrchestratorConfig())

	// When: the plan is run
	result, err := exec.Run(context.Background(), plan)

	// Then: a fails and b is skipped, not invoked
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, StepFailed, result.Steps["a"].State)
	assert.Equal(t, StepSkipped, result.Steps["b"].State)
	assert.NotContains(t, invoker.calls, "tool_b")
}

func TestExecutor_IndependentBranchesStillRunWhenOneFails(t *testing.T) {
	// Given: two independent steps, one of which fails
	plan, err := BuildPlan("intent-1", []*Step{
		{ID: "a", ToolHint: "tool_a"},
		{ID: "b", ToolHint: "tool_b"},
	})
	require.NoError(t, err)

	invoker := &fakeInvoker{fail: map[string]bool{"tool_a": true}}
	exec := NewExecutor(invoker, config.DefaultOrchestratorConfig())

	// When: the plan is run
	result, err := exec.Run(context.Background(), plan)

	// Then: b still ran and succeeded despite a's failure
	require.NoError(t, err)
	assert.Equal(t, StepFailed, result.Steps["a"].State)
	assert.Equal(t, StepSucceeded, result.Steps["b"].State)
}
