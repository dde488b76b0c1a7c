package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/cfn"
)

// resizeEBS grows the environment instance's root volume to EbsVolumeSize.
// The instance has to be running for the modification; other states are
// waited out across invocations.
func (m *Machine) resizeEBS(ctx context.Context, clients *Clients, req *cfn.Request, cbctx cfn.CallbackContext) (*cfn.ProgressEvent, error) {
	log := clog.FromContext(ctx)
	model := req.Desired.Clone()
	event := cfn.InProgress(model, cbctx)

	if model.EbsVolumeSize <= 0 {
		log.Debug("no volume size requested, skipping resize")
		return advance(event, StepRunSSM, 0), nil
	}
	if model.EnvironmentId == "" {
		return nil, ErrNoEnvironmentID
	}

	instance, found, err := instanceByEnvironment(ctx, clients.EC2, model.EnvironmentId)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Info("environment instance not visible yet, waiting", "environment_id", model.EnvironmentId)
		return retry(event, StepResizeEBS, delayInstanceState), nil
	}

	instanceID := aws.ToString(instance.InstanceId)
	model.InstanceId = instanceID
	log = log.With("instance_id", instanceID)

	switch state := instance.State.Name; state {
	case ec2types.InstanceStateNameRunning:
		volumeID, err := instanceRootVolumeID(instance)
		if err != nil {
			return nil, err
		}
		if err := volumeModify(ctx, clients.EC2, volumeID, model.EbsVolumeSize); err != nil {
			return nil, err
		}
		event.Message = fmt.Sprintf("resized volume (%s) to %d", volumeID, model.EbsVolumeSize)
		return advance(event, StepRunSSM, 0), nil

	case ec2types.InstanceStateNamePending,
		ec2types.InstanceStateNameStopping,
		ec2types.InstanceStateNameShuttingDown:
		log.Info("instance is transitioning, waiting", "state", state)
		return retry(event, StepResizeEBS, delayInstanceState), nil

	case ec2types.InstanceStateNameStopped:
		if err := instanceStart(ctx, clients.EC2, instanceID); err != nil {
			return nil, err
		}
		return retry(event, StepResizeEBS, delayInstanceState), nil

	default:
		return nil, fmt.Errorf("%w: instance %s is %s", ErrUnsupportedInstanceState, instanceID, state)
	}
}
