package provision

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/cfn"
)

// validateIAM makes sure the SSM access role and instance profile exist, then
// creates the Cloud9 environment.
//
// Re-entering this step after the environment was created creates a second
// environment; CloudFormation only re-enters it when the previous invocation
// did not return.
func (m *Machine) validateIAM(ctx context.Context, clients *Clients, req *cfn.Request, cbctx cfn.CallbackContext) (*cfn.ProgressEvent, error) {
	log := clog.FromContext(ctx)
	model := req.Desired.Clone()

	exists, err := iamRoleExists(ctx, clients.IAM, accessRoleName)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Debug("IAM access role already exists", "role_name", accessRoleName)
	} else {
		if err := bootstrapAccessRole(ctx, clients.IAM, m.opts); err != nil {
			return nil, err
		}
	}

	if model.InstancePolicyArn != "" {
		if err := iamRoleAttachPolicy(ctx, clients.IAM, accessRoleName, model.InstancePolicyArn); err != nil {
			return nil, err
		}
	}

	imageID, err := imageIDForOS(model.OperatingSystem)
	if err != nil {
		return nil, err
	}

	environmentID, err := environmentCreate(ctx, clients.Cloud9, model, imageID)
	if err != nil {
		return nil, err
	}
	model.EnvironmentId = environmentID
	log.Info("created Cloud9 environment", "environment_id", environmentID)

	event := cfn.InProgress(model, cbctx)
	event.Message = fmt.Sprintf("Created Environment %s", environmentID)
	return advance(event, StepResizeEBS, delayEnvironmentBoot), nil
}
