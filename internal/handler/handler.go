// Package handler routes CloudFormation lifecycle actions for
// Richard::Cloud9::EnvironmentSSM to the create workflow or to the simple
// read, update, delete and list responses.
package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/cfn"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/log"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/model"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/o11y"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/provision"
	"go.opentelemetry.io/otel/attribute"
)

// Handler serves provider invocations. It is safe to reuse across
// invocations; it keeps no per-operation state.
type Handler struct {
	machine    *provision.Machine
	newClients ClientFactory
	region     string
	logDir     string
}

// Option configures a Handler.
type Option func(*Handler)

// WithClientFactory overrides how AWS clients are built for an invocation.
func WithClientFactory(f ClientFactory) Option {
	return func(h *Handler) { h.newClients = f }
}

// WithRegion sets the region used when a request does not carry one.
func WithRegion(region string) Option {
	return func(h *Handler) { h.region = region }
}

// WithLogDirectory enables per-resource log files under dir.
func WithLogDirectory(dir string) Option {
	return func(h *Handler) { h.logDir = dir }
}

// New returns a Handler running create operations on machine.
func New(machine *provision.Machine, opts ...Option) *Handler {
	h := &Handler{
		machine:    machine,
		newClients: NewAWSClients,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Invoke decodes a raw invocation payload and handles it. The returned error
// is always nil; failures are reported as FAILED progress events.
func (h *Handler) Invoke(ctx context.Context, raw json.RawMessage) (*cfn.ProgressEvent, error) {
	inv, err := cfn.Decode(raw)
	if err != nil {
		clog.FromContext(ctx).Error("rejecting malformed request", "error", err)
		return cfn.Failed(cfn.ErrorCodeInternalFailure, err.Error()), nil
	}
	return h.Handle(ctx, inv), nil
}

// Handle routes a decoded invocation and always returns an event.
func (h *Handler) Handle(ctx context.Context, inv *cfn.Invocation) (event *cfn.ProgressEvent) {
	ctx, span := o11y.Start(ctx, "action "+string(inv.Action),
		attribute.String(o11y.AttrAction, string(inv.Action)),
		attribute.String(o11y.AttrLogicalID, inv.Request.LogicalResourceID),
	)
	ctx = log.With(ctx, o11y.AttrAction, inv.Action, o11y.AttrLogicalID, inv.Request.LogicalResourceID)
	ctx, closeLog := log.SetupFileLogging(ctx, h.logDir, inv.Request.LogicalResourceID, string(inv.Action))
	defer closeLog()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			event = cfn.Failed(cfn.ErrorCodeInternalFailure, err.Error())
		}
		o11y.End(span, err)
	}()

	event, err = h.route(ctx, inv)
	if err != nil {
		log.Error(ctx, "operation failed", "error", err)
		return failed(err)
	}
	log.Info(ctx, "operation returned", "status", event.Status, "message", event.Message)
	return event
}

func (h *Handler) route(ctx context.Context, inv *cfn.Invocation) (*cfn.ProgressEvent, error) {
	switch inv.Action {
	case cfn.ActionCreate:
		return h.create(ctx, inv)
	case cfn.ActionUpdate:
		return h.update(ctx, inv)
	case cfn.ActionRead:
		return h.read(ctx, inv)
	case cfn.ActionDelete:
		return h.delete(ctx, inv)
	case cfn.ActionList:
		return h.list(ctx, inv)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", cfn.ErrInvalidRequest, inv.Action)
	}
}

func (h *Handler) create(ctx context.Context, inv *cfn.Invocation) (*cfn.ProgressEvent, error) {
	clients, err := h.clients(ctx, inv)
	if err != nil {
		return nil, err
	}
	return h.machine.Dispatch(ctx, clients, inv.Request, inv.Context)
}

// update has no update semantics of its own.
func (h *Handler) update(ctx context.Context, inv *cfn.Invocation) (*cfn.ProgressEvent, error) {
	return h.read(ctx, inv)
}

// read reports the desired model back without a live lookup.
func (h *Handler) read(_ context.Context, inv *cfn.Invocation) (*cfn.ProgressEvent, error) {
	return cfn.Success(inv.Request.Desired), nil
}

func (h *Handler) list(_ context.Context, _ *cfn.Invocation) (*cfn.ProgressEvent, error) {
	event := cfn.Success(nil)
	event.ResourceModels = []*model.ResourceModel{}
	return event, nil
}

// delete removes the environment. An environment that is already gone, or
// was never created, counts as deleted.
func (h *Handler) delete(ctx context.Context, inv *cfn.Invocation) (*cfn.ProgressEvent, error) {
	desired := inv.Request.Desired
	if desired == nil || desired.EnvironmentId == "" {
		log.Info(ctx, "no environment recorded, nothing to delete")
		return cfn.Success(nil), nil
	}

	clients, err := h.clients(ctx, inv)
	if err != nil {
		return nil, err
	}

	err = provision.DeleteEnvironment(ctx, clients.Cloud9, desired.EnvironmentId)
	switch {
	case provision.IsNotFound(err):
		log.Info(ctx, "environment already deleted", o11y.AttrEnvironmentID, desired.EnvironmentId)
		return cfn.Success(nil), nil
	case err != nil:
		log.Error(ctx, "failed to delete environment", o11y.AttrEnvironmentID, desired.EnvironmentId, "error", err)
		return cfn.Failed(errorCode(err), err.Error()), nil
	}
	return cfn.Success(nil), nil
}

func (h *Handler) clients(ctx context.Context, inv *cfn.Invocation) (*provision.Clients, error) {
	region := inv.Request.Region
	if region == "" {
		region = h.region
	}
	return h.newClients(ctx, region, inv.Credentials)
}
