package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloud9"
	cloud9types "github.com/aws/aws-sdk-go-v2/service/cloud9/types"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/model"
)

const (
	// environmentAutoStopMinutes is how long an idle environment keeps its
	// instance running.
	environmentAutoStopMinutes = 60

	osAmazonLinux  = "AmazonLinux"
	osAmazonLinux2 = "AmazonLinux2"
	osUbuntu       = "Ubuntu"
)

// imageIDs maps the OperatingSystem property to the Cloud9 image alias.
var imageIDs = map[string]string{
	osAmazonLinux:  "amazonlinux-1-x86_64",
	osAmazonLinux2: "amazonlinux-2-x86_64",
	osUbuntu:       "ubuntu-18.04-x86_64",
}

var (
	errEnvironmentCreate      = errors.New("failed to create Cloud9 environment")
	errEnvironmentCreateIDNil = errors.New("environment create call produced " +
		"no errors, but the returned environment ID was nil")
	errEnvironmentDelete = errors.New("failed to delete Cloud9 environment")
)

// imageIDForOS resolves the Cloud9 image alias for an operating system name.
func imageIDForOS(name string) (string, error) {
	id, ok := imageIDs[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperatingSystem, name)
	}
	return id, nil
}

func environmentCreate(ctx context.Context, client Cloud9Client, m *model.ResourceModel, imageID string) (string, error) {
	log := clog.FromContext(ctx)

	input := &cloud9.CreateEnvironmentEC2Input{
		Name:                     aws.String(m.EnvironmentName),
		InstanceType:             aws.String(m.InstanceType),
		ImageId:                  aws.String(imageID),
		AutomaticStopTimeMinutes: aws.Int32(environmentAutoStopMinutes),
		ConnectionType:           cloud9types.ConnectionTypeConnectSsm,
		Tags:                     cloud9Tags(m.Tags),
	}
	if m.OwnerArn != "" {
		input.OwnerArn = aws.String(m.OwnerArn)
	}
	if m.SubnetId != "" {
		input.SubnetId = aws.String(m.SubnetId)
	}

	log.Info("creating Cloud9 environment",
		"name", m.EnvironmentName,
		"instance_type", m.InstanceType,
		"image_id", imageID,
	)
	result, err := client.CreateEnvironmentEC2(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errEnvironmentCreate, err)
	}
	if result.EnvironmentId == nil {
		return "", errEnvironmentCreateIDNil
	}
	return *result.EnvironmentId, nil
}

func cloud9Tags(tags []model.Tag) []cloud9types.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]cloud9types.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, cloud9types.Tag{
			Key:   aws.String(t.Key),
			Value: aws.String(t.Value),
		})
	}
	return out
}

// DeleteEnvironment deletes a Cloud9 environment. Cloud9 terminates the
// backing instance itself. An environment that no longer exists is reported
// through an error IsNotFound recognizes.
func DeleteEnvironment(ctx context.Context, client Cloud9Client, environmentID string) error {
	if environmentID == "" {
		return ErrNoEnvironmentID
	}

	clog.FromContext(ctx).Info("deleting Cloud9 environment", "environment_id", environmentID)
	_, err := client.DeleteEnvironment(ctx, &cloud9.DeleteEnvironmentInput{
		EnvironmentId: aws.String(environmentID),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errEnvironmentDelete, err)
	}
	return nil
}
