package cfn

import (
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/model"
)

// OperationStatus is the state of an operation as reported back to
// CloudFormation.
type OperationStatus string

const (
	StatusInProgress OperationStatus = "IN_PROGRESS"
	StatusSuccess    OperationStatus = "SUCCESS"
	StatusFailed     OperationStatus = "FAILED"
)

// HandlerErrorCode classifies a FAILED progress event.
type HandlerErrorCode string

const (
	ErrorCodeInvalidRequest          HandlerErrorCode = "InvalidRequest"
	ErrorCodeAccessDenied            HandlerErrorCode = "AccessDenied"
	ErrorCodeNotFound                HandlerErrorCode = "NotFound"
	ErrorCodeThrottling              HandlerErrorCode = "Throttling"
	ErrorCodeServiceInternalError    HandlerErrorCode = "ServiceInternalError"
	ErrorCodeInternalFailure         HandlerErrorCode = "InternalFailure"
	ErrorCodeGeneralServiceException HandlerErrorCode = "GeneralServiceException"
	ErrorCodeNotStabilized           HandlerErrorCode = "NotStabilized"
)

// ProgressEvent is the unit of response for every handler invocation.
//
// An IN_PROGRESS event asks CloudFormation to invoke the handler again after
// CallbackDelaySeconds, passing CallbackContext back verbatim. SUCCESS and
// FAILED are terminal.
type ProgressEvent struct {
	Status               OperationStatus        `json:"status"`
	ErrorCode            HandlerErrorCode       `json:"errorCode,omitempty"`
	Message              string                 `json:"message,omitempty"`
	CallbackContext      CallbackContext        `json:"callbackContext,omitempty"`
	CallbackDelaySeconds int                    `json:"callbackDelaySeconds,omitempty"`
	ResourceModel        *model.ResourceModel   `json:"resourceModel,omitempty"`
	ResourceModels       []*model.ResourceModel `json:"resourceModels,omitzero"`
	NextToken            string                 `json:"nextToken,omitempty"`
}

// InProgress returns an event that keeps the operation running, carrying the
// model snapshot and callback context forward.
func InProgress(m *model.ResourceModel, cbctx CallbackContext) *ProgressEvent {
	return &ProgressEvent{
		Status:          StatusInProgress,
		ResourceModel:   m,
		CallbackContext: cbctx,
	}
}

// Success returns a terminal SUCCESS event for the given model.
func Success(m *model.ResourceModel) *ProgressEvent {
	return &ProgressEvent{
		Status:        StatusSuccess,
		ResourceModel: m,
	}
}

// Failed returns a terminal FAILED event.
func Failed(code HandlerErrorCode, message string) *ProgressEvent {
	return &ProgressEvent{
		Status:    StatusFailed,
		ErrorCode: code,
		Message:   message,
	}
}

// Done reports whether the event is terminal.
func (e *ProgressEvent) Done() bool {
	return e.Status != StatusInProgress
}
