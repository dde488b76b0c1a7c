package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/clog"
)

// tagCloud9Environment is stamped by Cloud9 on the instance backing an
// environment.
const tagCloud9Environment = "aws:cloud9:environment"

var (
	errInstanceDescribe = errors.New("failed to describe environment instance")
	errInstanceStateNil = errors.New("describe instances call produced no " +
		"errors, but the returned instance state was nil")
	errVolumeModify  = errors.New("failed to modify EBS volume")
	errInstanceStart = errors.New("failed to start EC2 instance")
)

// instanceByEnvironment finds the instance Cloud9 launched for an environment.
// found is false while the instance is not visible yet.
func instanceByEnvironment(ctx context.Context, client EC2Client, environmentID string) (instance *ec2types.Instance, found bool, err error) {
	result, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("tag:" + tagCloud9Environment),
				Values: []string{environmentID},
			},
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", errInstanceDescribe, err)
	}
	for _, reservation := range result.Reservations {
		if len(reservation.Instances) == 0 {
			continue
		}
		inst := reservation.Instances[0]
		if inst.State == nil {
			return nil, false, errInstanceStateNil
		}
		return &inst, true, nil
	}
	return nil, false, nil
}

// instanceRootVolumeID returns the EBS volume mounted at the instance's root
// device, falling back to its first block device mapping.
func instanceRootVolumeID(instance *ec2types.Instance) (string, error) {
	rootDevice := aws.ToString(instance.RootDeviceName)
	var first string
	for _, mapping := range instance.BlockDeviceMappings {
		if mapping.Ebs == nil || mapping.Ebs.VolumeId == nil {
			continue
		}
		if first == "" {
			first = *mapping.Ebs.VolumeId
		}
		if rootDevice != "" && aws.ToString(mapping.DeviceName) == rootDevice {
			return *mapping.Ebs.VolumeId, nil
		}
	}
	if first == "" {
		return "", fmt.Errorf("%w: %s", ErrInstanceNoRootVolume, aws.ToString(instance.InstanceId))
	}
	return first, nil
}

// volumeModify requests a new size for an EBS volume. The modification
// completes asynchronously and is not awaited.
func volumeModify(ctx context.Context, client EC2Client, volumeID string, size int32) error {
	log := clog.FromContext(ctx)

	log.Info("modifying EBS volume", "volume_id", volumeID, "size_gib", size)
	_, err := client.ModifyVolume(ctx, &ec2.ModifyVolumeInput{
		VolumeId: aws.String(volumeID),
		Size:     aws.Int32(size),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errVolumeModify, err)
	}
	return nil
}

func instanceStart(ctx context.Context, client EC2Client, instanceID string) error {
	log := clog.FromContext(ctx)

	log.Info("starting EC2 instance", "instance_id", instanceID)
	_, err := client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errInstanceStart, err)
	}
	return nil
}
