package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/cfn"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/o11y"
	"go.opentelemetry.io/otel/attribute"
)

// Re-invocation delays requested from CloudFormation, in seconds.
const (
	delayEnvironmentBoot = 180
	delayInstanceState   = 180
	delayCommandDispatch = 180
	delayCommandPoll     = 120
)

// StepFunc performs one unit of provisioning work. It returns the progress
// event to hand back to CloudFormation; an error means the step failed in a
// way the caller must translate into a FAILED event.
type StepFunc func(ctx context.Context, clients *Clients, req *cfn.Request, cbctx cfn.CallbackContext) (*cfn.ProgressEvent, error)

// Options tunes the bounded IAM waits performed inside VALIDATE_IAM.
type Options struct {
	IAMWaitAttempts int
	IAMWaitInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.IAMWaitAttempts <= 0 {
		o.IAMWaitAttempts = 60
	}
	if o.IAMWaitInterval <= 0 {
		o.IAMWaitInterval = time.Second
	}
}

// Machine maps each Step to the function implementing it. The mapping is built
// once by NewMachine and never modified afterwards.
type Machine struct {
	opts     Options
	handlers map[Step]StepFunc
}

// NewMachine builds the create workflow.
func NewMachine(opts Options) *Machine {
	opts.applyDefaults()
	m := &Machine{opts: opts}
	m.handlers = map[Step]StepFunc{
		StepValidateIAM: m.validateIAM,
		StepResizeEBS:   m.resizeEBS,
		StepRunSSM:      m.runSSM,
		StepCleanUp:     m.cleanUp,
	}
	return m
}

// Handler returns the function registered for step.
func (m *Machine) Handler(step Step) (StepFunc, bool) {
	fn, ok := m.handlers[step]
	return fn, ok
}

// Dispatch resolves the current step from the callback context and runs it.
func (m *Machine) Dispatch(ctx context.Context, clients *Clients, req *cfn.Request, cbctx cfn.CallbackContext) (*cfn.ProgressEvent, error) {
	step, err := ResolveStep(cbctx)
	if err != nil {
		return nil, err
	}
	fn, ok := m.Handler(step)
	if !ok {
		return nil, fmt.Errorf("%w: no handler registered for %s", ErrInvalidStep, step)
	}
	if req == nil || req.Desired == nil {
		return nil, errNoDesiredState
	}

	ctx, span := o11y.Start(ctx, "step "+step.String(), attribute.String(o11y.AttrStep, step.String()))
	log := clog.FromContext(ctx).With(o11y.AttrStep, step)
	ctx = clog.WithLogger(ctx, log)

	log.Info("running step")
	event, err := fn(ctx, clients, req, cbctx.Clone())
	o11y.End(span, err)
	if err != nil {
		log.Error("step failed", "error", err)
		return nil, err
	}
	log.Info("step finished", "status", event.Status, "delay_seconds", event.CallbackDelaySeconds)
	return event, nil
}

// advance moves the workflow to next, optionally asking to be re-invoked after
// delay seconds.
func advance(event *cfn.ProgressEvent, next Step, delay int) *cfn.ProgressEvent {
	event.CallbackContext.SetStep(next.String())
	event.CallbackDelaySeconds = delay
	return event
}

// retry keeps the workflow on current and asks to be re-invoked after delay
// seconds.
func retry(event *cfn.ProgressEvent, current Step, delay int) *cfn.ProgressEvent {
	event.CallbackContext.SetStep(current.String())
	event.CallbackDelaySeconds = delay
	return event
}
