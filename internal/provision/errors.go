package provision

import (
	"errors"
	"slices"

	"github.com/aws/smithy-go"
)

var (
	errNoDesiredState           = errors.New("request has no desired resource state")
	ErrUnknownOperatingSystem   = errors.New("unknown operating system")
	ErrUnsupportedInstanceState = errors.New("unsupported instance state")
	ErrInstanceNoRootVolume     = errors.New("instance has no EBS root volume")
	ErrNoEnvironmentID          = errors.New("environment id has not been recorded")
)

// apiErrorIs reports whether err carries one of the given AWS API error codes.
func apiErrorIs(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return slices.Contains(codes, apiErr.ErrorCode())
}

// AWS API error codes the workflow treats as normal states.
const (
	codeIAMNoSuchEntity           = "NoSuchEntity"
	codeIAMEntityAlreadyExists    = "EntityAlreadyExists"
	codeCloud9NotFound            = "NotFoundException"
	codeSSMInvalidInstanceID      = "InvalidInstanceId"
	codeSSMInvocationDoesNotExist = "InvocationDoesNotExist"
)

// IsNotFound reports whether err is an AWS "resource does not exist" error.
func IsNotFound(err error) bool {
	return apiErrorIs(err, codeIAMNoSuchEntity, codeCloud9NotFound)
}
