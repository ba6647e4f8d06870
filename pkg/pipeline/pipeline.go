// Package pipeline implements the staged request-processing pipeline that
// wraps every TelaMentis core operation.
//
// A request flows through three ordered stages — pre-operation, operation,
// post-operation — each holding an ordered list of plugins. A plugin receives
// the mutable RequestContext and decides whether the request Continues, Halts,
// or Halts with an error. A halt observed in stage k skips every subsequent
// stage: a pre-operation tenant check that fails means the operation never
// runs and the post-operation trail is never written.
//
// Example Usage:
//
//	runner := pipeline.NewRunner()
//	runner.Register(pipeline.StagePre, pipeline.NewRequestLoggingPlugin(logger), pipeline.PluginConfig{})
//	runner.Register(pipeline.StagePre, pipeline.NewTenantValidationPlugin(), pipeline.PluginConfig{})
//	runner.Register(pipeline.StagePost, pipeline.NewAuditTrailPlugin(logger), pipeline.PluginConfig{})
//
//	ctx := pipeline.NewRequestContext("POST", "/v1/graph/acme/nodes")
//	ctx.Tenant = "acme"
//	result, err := runner.Execute(context.Background(), ctx)
//
// ELI12:
//
// Think of the pipeline like airport security for every request: first the
// checkpoints before the gate (pre-operation: "do you have a ticket?" = is a
// tenant set?), then boarding the plane (the operation itself), then the
// arrival formalities (post-operation: the audit log stamp). If you fail a
// checkpoint, you never board — and you obviously never land.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Stage identifies one of the three ordered pipeline stages.
type Stage int

const (
	// StagePre runs before the core operation (validation, logging).
	StagePre Stage = iota
	// StageOperation is where the core business logic executes.
	StageOperation
	// StagePost runs after the operation (audit, response shaping).
	StagePost
)

func (s Stage) String() string {
	switch s {
	case StagePre:
		return "pre-operation"
	case StageOperation:
		return "operation"
	case StagePost:
		return "post-operation"
	default:
		return "unknown"
	}
}

// Outcome is a plugin's verdict on the request.
type Outcome struct {
	halt bool
	err  error
}

// Continue proceeds to the next plugin.
func Continue() Outcome { return Outcome{} }

// Halt stops the request: no further plugin in this stage runs and every
// subsequent stage is skipped. The current context becomes the response.
func Halt() Outcome { return Outcome{halt: true} }

// HaltWithError halts and records err on the context for the caller to
// surface. The error is never wrapped by the runner.
func HaltWithError(err error) Outcome { return Outcome{halt: true, err: err} }

// Halted reports whether this outcome stops the pipeline.
func (o Outcome) Halted() bool { return o.halt }

// Err returns the error carried by a HaltWithError outcome, or nil.
func (o Outcome) Err() error { return o.err }

// PluginConfig is passed to a plugin's Init exactly once, at registration.
type PluginConfig struct {
	Enabled bool
	Config  map[string]any
}

// DefaultPluginConfig returns an enabled config with no settings.
func DefaultPluginConfig() PluginConfig {
	return PluginConfig{Enabled: true, Config: map[string]any{}}
}

// Plugin is a named unit of pre/operation/post logic sharing the mutable
// request context. Implementations must be safe for concurrent Call — one
// plugin instance serves every in-flight request.
type Plugin interface {
	// Name uniquely identifies the plugin.
	Name() string
	// Init is called exactly once when the plugin is registered.
	Init(config PluginConfig) error
	// Call executes the plugin's logic for one request.
	Call(ctx context.Context, rc *RequestContext) Outcome
	// Teardown is called once at graceful shutdown.
	Teardown() error
}

// Runner executes registered plugins stage by stage.
//
// The registry is append-only while wiring and must not be mutated after the
// first Execute: register every plugin up front, then serve. Execution order
// within a stage is registration order.
type Runner struct {
	plugins map[Stage][]Plugin
	logger  *slog.Logger
}

// NewRunner creates an empty runner logging through slog.Default().
func NewRunner() *Runner {
	return NewRunnerWithLogger(slog.Default())
}

// NewRunnerWithLogger creates an empty runner with an explicit logger.
func NewRunnerWithLogger(logger *slog.Logger) *Runner {
	return &Runner{
		plugins: map[Stage][]Plugin{},
		logger:  logger,
	}
}

// Register appends a plugin to a stage and runs its Init exactly once.
func (r *Runner) Register(stage Stage, plugin Plugin, config PluginConfig) error {
	if err := plugin.Init(config); err != nil {
		return fmt.Errorf("initializing plugin %s: %w", plugin.Name(), err)
	}
	r.plugins[stage] = append(r.plugins[stage], plugin)
	return nil
}

// PluginCount returns how many plugins a stage holds.
func (r *Runner) PluginCount(stage Stage) int {
	return len(r.plugins[stage])
}

// Execute runs the request through all three stages.
//
// A halt in any stage returns the context as-is with later stages skipped.
// The returned error is reserved for runner-internal failures; plugin errors
// travel on RequestContext.Err.
func (r *Runner) Execute(ctx context.Context, rc *RequestContext) (*RequestContext, error) {
	r.logger.Debug("pipeline start", "request_id", rc.RequestID, "method", rc.Method, "path", rc.Path)

	for _, stage := range []Stage{StagePre, StageOperation, StagePost} {
		halted := r.executeStage(ctx, stage, rc)
		if halted {
			return rc, nil
		}
	}

	r.logger.Debug("pipeline complete",
		"request_id", rc.RequestID, "elapsed", rc.Elapsed())
	return rc, nil
}

func (r *Runner) executeStage(ctx context.Context, stage Stage, rc *RequestContext) (halted bool) {
	for _, plugin := range r.plugins[stage] {
		outcome := plugin.Call(ctx, rc)
		if !outcome.Halted() {
			continue
		}
		if err := outcome.Err(); err != nil {
			r.logger.Error("plugin halted with error",
				"plugin", plugin.Name(), "stage", stage.String(), "request_id", rc.RequestID, "err", err)
			rc.Err = err
		} else {
			r.logger.Info("plugin halted pipeline",
				"plugin", plugin.Name(), "stage", stage.String(), "request_id", rc.RequestID)
		}
		return true
	}
	return false
}

// Run executes a request with a core operation spliced between the
// operation-stage plugins and the post-operation stage.
//
// Flow: pre-operation plugins → operation-stage plugins → op →
// post-operation plugins. A halt anywhere short-circuits the remainder, so
// a pre-stage halt means op never runs. An error returned by op is recorded
// on the context unwrapped and skips the post-operation stage.
func (r *Runner) Run(ctx context.Context, rc *RequestContext, op func(context.Context, *RequestContext) error) (*RequestContext, error) {
	if r.executeStage(ctx, StagePre, rc) {
		return rc, nil
	}
	if r.executeStage(ctx, StageOperation, rc) {
		return rc, nil
	}

	if err := op(ctx, rc); err != nil {
		rc.Err = err
		return rc, nil
	}

	r.executeStage(ctx, StagePost, rc)
	return rc, nil
}

// Shutdown tears down every registered plugin. The first teardown failure
// is returned; remaining plugins are still torn down.
func (r *Runner) Shutdown() error {
	var firstErr error
	for _, stage := range []Stage{StagePre, StageOperation, StagePost} {
		for _, plugin := range r.plugins[stage] {
			if err := plugin.Teardown(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("tearing down plugin %s: %w", plugin.Name(), err)
			}
		}
	}
	return firstErr
}
