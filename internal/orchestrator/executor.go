package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/magray-run/agentcore/internal/config"
	"github.com/magray-run/agentcore/internal/tool"
)

// Invoker is the subset of tool.Registry the executor depends on, narrowed
// to keep this package's dependency on internal/tool one-directional and
// mockable in tests.
type Invoker interface {
	Invoke(ctx context.Context, name string, requestedAction string, args map[string]any) (*tool.Result, error)
}

// Executor runs a Plan's steps in dependency order with a bounded number of
// steps running concurrently at once. A step whose dependency failed or was
// skipped is itself marked skipped; independent branches of the DAG keep
// running regardless.
type Executor struct {
	invoker Invoker
	sem     *semaphore.Weighted
	cfg     config.OrchestratorConfig
}

// NewExecutor builds an executor bounded by cfg.MaxConcurrentTools.
func NewExecutor(invoker Invoker, cfg config.OrchestratorConfig) *Executor {
	if cfg.MaxConcurrentTools <= 0 {
		cfg.MaxConcurrentTools = config.DefaultOrchestratorConfig().MaxConcurrentTools
	}
	return &Executor{
		invoker: invoker,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrentTools)),
		cfg:     cfg,
	}
}

// Run executes every step of plan, blocking until all steps have reached a
// terminal state.
func (e *Executor) Run(ctx context.Context, plan *Plan) (*PlanResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("orchestrator: plan is required")
	}

	results := &PlanResult{
		IntentID: plan.IntentID,
		Steps:    make(map[string]*StepResult, len(plan.Steps)),
		Success:  true,
	}
	var mu sync.Mutex
	done := make(map[string]chan struct{}, len(plan.Steps))
	for _, s := range plan.Steps {
		done[s.ID] = make(chan struct{})
	}

	var wg sync.WaitGroup
	wg.Add(len(plan.Steps))
	for _, s := range plan.Steps {
		go func(s *Step) {
			defer wg.Done()
			defer close(done[s.ID])

			skip := false
			for _, dep := range s.Deps {
				<-done[dep]
				mu.Lock()
				depResult := results.Steps[dep]
				mu.Unlock()
				if depResult == nil || depResult.State != StepSucceeded {
					skip = true
				}
			}

			if skip {
				e.record(&mu, results, &StepResult{StepID: s.ID, State: StepSkipped})
				return
			}

			if err := e.sem.Acquire(ctx, 1); err != nil {
				e.record(&mu, results, &StepResult{StepID: s.ID, State: StepSkipped, Error: err.Error()})
				return
			}
			defer e.sem.Release(1)

			runCtx, cancel := context.WithTimeout(ctx, e.stepTimeout())
			defer cancel()

			out, err := e.invoker.Invoke(runCtx, s.ToolHint, s.RequestedAction, s.Args)
			if err != nil {
				slog.Warn("orchestrator: step failed", slog.String("step", s.ID), slog.String("tool", s.ToolHint), slog.String("error", err.Error()))
				e.record(&mu, results, &StepResult{StepID: s.ID, State: StepFailed, Error: err.Error()})
				return
			}

			state := StepSucceeded
			if out != nil && !out.Success {
				state = StepFailed
			}
			var output string
			if out != nil {
				output = out.Output
			}
			e.record(&mu, results, &StepResult{StepID: s.ID, State: state, Output: output})
		}(s)
	}
	wg.Wait()

	return results, nil
}

func (e *Executor) record(mu *sync.Mutex, results *PlanResult, r *StepResult) {
	mu.Lock()
	defer mu.Unlock()
	results.Steps[r.StepID] = r
	if r.State != StepSucceeded {
		results.Success = false
	}
}

func (e *Executor) stepTimeout() time.Duration {
	if e.cfg.StepTimeout > 0 {
		return e.cfg.StepTimeout
	}
	return config.DefaultOrchestratorConfig().StepTimeout
}
