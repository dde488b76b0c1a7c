package handler

import (
	"errors"

	"github.com/aws/smithy-go"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/cfn"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/provision"
)

var (
	accessDeniedCodes = map[string]bool{
		"AccessDenied":          true,
		"AccessDeniedException": true,
		"UnauthorizedOperation": true,
	}
	throttlingCodes = map[string]bool{
		"Throttling":                true,
		"ThrottlingException":       true,
		"RequestLimitExceeded":      true,
		"TooManyRequestsException":  true,
		"RequestThrottledException": true,
	}
)

// errorCode classifies err for a FAILED event.
func errorCode(err error) cfn.HandlerErrorCode {
	if provision.IsNotFound(err) {
		return cfn.ErrorCodeNotFound
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); {
		case accessDeniedCodes[code]:
			return cfn.ErrorCodeAccessDenied
		case throttlingCodes[code]:
			return cfn.ErrorCodeThrottling
		}
	}
	return cfn.ErrorCodeInternalFailure
}

func failed(err error) *cfn.ProgressEvent {
	return cfn.Failed(errorCode(err), err.Error())
}
