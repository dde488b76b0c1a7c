package provision

import (
	"context"

	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/cfn"
)

const msgCommandFailed = "Command failed to complete successfully"

// cleanUp polls the bootstrap command until it reaches a terminal status.
func (m *Machine) cleanUp(ctx context.Context, clients *Clients, req *cfn.Request, cbctx cfn.CallbackContext) (*cfn.ProgressEvent, error) {
	log := clog.FromContext(ctx)
	model := req.Desired.Clone()

	commandID, ok := cbctx.CommandID()
	if !ok || commandID == "" || commandID == noCommandID {
		log.Debug("no bootstrap command to wait for")
		return cfn.Success(model), nil
	}
	log = log.With("command_id", commandID, "instance_id", model.InstanceId)

	status, err := commandStatus(ctx, clients.SSM, commandID, model.InstanceId)
	if err != nil {
		return nil, err
	}

	switch status {
	case ssmtypes.CommandInvocationStatusPending,
		ssmtypes.CommandInvocationStatusInProgress,
		ssmtypes.CommandInvocationStatusDelayed:
		log.Info("bootstrap command still running", "status", status)
		return retry(cfn.InProgress(model, cbctx), StepCleanUp, delayCommandPoll), nil

	case ssmtypes.CommandInvocationStatusCancelled,
		ssmtypes.CommandInvocationStatusTimedOut,
		ssmtypes.CommandInvocationStatusFailed,
		ssmtypes.CommandInvocationStatusCancelling:
		log.Warn("bootstrap command did not succeed", "status", status)
		event := cfn.Failed(cfn.ErrorCodeNotStabilized, msgCommandFailed)
		event.ResourceModel = model
		return event, nil

	default:
		log.Info("bootstrap command finished", "status", status)
		return cfn.Success(model), nil
	}
}
