package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/chainguard-dev/clog"
)

const (
	documentRunShellScript = "AWS-RunShellScript"

	// noCommandID is recorded when there were no bootstrap commands to run.
	noCommandID = "000000000000"
)

var (
	errCommandSend      = errors.New("failed to send SSM command")
	errCommandSendIDNil = errors.New("send command call produced no errors, " +
		"but the returned command ID was nil")
	errCommandStatus = errors.New("failed to fetch SSM command status")
)

// commandSend runs commands on the instance through AWS-RunShellScript.
func commandSend(ctx context.Context, client SSMClient, instanceID string, commands []string) (string, error) {
	log := clog.FromContext(ctx)

	log.Info("sending SSM command", "instance_id", instanceID, "commands", len(commands))
	result, err := client.SendCommand(ctx, &ssm.SendCommandInput{
		DocumentName: aws.String(documentRunShellScript),
		InstanceIds:  []string{instanceID},
		Parameters: map[string][]string{
			"commands": commands,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", errCommandSend, err)
	}
	if result.Command == nil || result.Command.CommandId == nil {
		return "", errCommandSendIDNil
	}
	return *result.Command.CommandId, nil
}

// commandStatus fetches the status of a command invocation on one instance.
// An invocation SSM has not registered yet reads as pending.
func commandStatus(ctx context.Context, client SSMClient, commandID, instanceID string) (ssmtypes.CommandInvocationStatus, error) {
	result, err := client.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(commandID),
		InstanceId: aws.String(instanceID),
	})
	if apiErrorIs(err, codeSSMInvocationDoesNotExist) {
		return ssmtypes.CommandInvocationStatusPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", errCommandStatus, err)
	}
	return result.Status, nil
}
