package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/cfn"
	"github.com/kballard/go-shellquote"
)

// runSSM dispatches the bootstrap commands to the environment instance. The
// command is not awaited here; CLEAN_UP polls it.
func (m *Machine) runSSM(ctx context.Context, clients *Clients, req *cfn.Request, cbctx cfn.CallbackContext) (*cfn.ProgressEvent, error) {
	log := clog.FromContext(ctx)
	model := req.Desired.Clone()
	event := cfn.InProgress(model, cbctx)

	if len(model.BootstrapCommands) == 0 {
		log.Debug("no bootstrap commands, skipping")
		event.CallbackContext.SetCommandID(noCommandID)
		return advance(event, StepCleanUp, 0), nil
	}

	// The instance id is only discovered by RESIZE_EBS when a resize was
	// requested.
	if model.InstanceId == "" {
		if model.EnvironmentId == "" {
			return nil, ErrNoEnvironmentID
		}
		instance, found, err := instanceByEnvironment(ctx, clients.EC2, model.EnvironmentId)
		if err != nil {
			return nil, err
		}
		if !found {
			log.Info("environment instance not visible yet, waiting", "environment_id", model.EnvironmentId)
			return retry(event, StepRunSSM, delayCommandDispatch), nil
		}
		model.InstanceId = aws.ToString(instance.InstanceId)
	}

	// Lines are joined into one script remotely, so a line that does not lex
	// on its own (heredoc bodies, quoted comments) is still sent unchanged.
	for i, c := range model.BootstrapCommands {
		if _, err := shellquote.Split(c); err != nil {
			log.Warn("bootstrap command does not lex as a standalone line", "index", i, "error", err)
		}
	}

	commandID, err := commandSend(ctx, clients.SSM, model.InstanceId, model.BootstrapCommands)
	if apiErrorIs(err, codeSSMInvalidInstanceID) {
		log.Info("instance not registered with SSM yet, waiting", "instance_id", model.InstanceId)
		return retry(event, StepRunSSM, delayCommandDispatch), nil
	}
	if err != nil {
		return nil, err
	}

	event.CallbackContext.SetCommandID(commandID)
	event.Message = fmt.Sprintf("Sent Command: %s", commandID)
	return advance(event, StepCleanUp, delayCommandDispatch), nil
}
