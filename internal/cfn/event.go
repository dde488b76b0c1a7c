// Package cfn implements the CloudFormation resource provider wire contract:
// the handler request envelope, the callback context and progress events.
package cfn

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/cloud9-environment-ssm/internal/model"
)

// Action is the lifecycle verb CloudFormation invokes the provider with.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionRead   Action = "READ"
	ActionList   Action = "LIST"
)

var ErrInvalidRequest = errors.New("invalid handler request")

// Credentials are the temporary credentials CloudFormation passes for calling
// AWS on the caller's behalf.
type Credentials struct {
	AccessKeyID     string `json:"accessKeyId" yaml:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey" yaml:"secretAccessKey"`
	SessionToken    string `json:"sessionToken" yaml:"sessionToken"`
}

// Valid reports whether the credentials are usable.
func (c *Credentials) Valid() bool {
	return c != nil && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// HandlerRequest is the raw invocation payload.
type HandlerRequest struct {
	Action          Action          `json:"action" yaml:"action"`
	AWSAccountID    string          `json:"awsAccountId" yaml:"awsAccountId"`
	BearerToken     string          `json:"bearerToken" yaml:"bearerToken"`
	Region          string          `json:"region" yaml:"region"`
	ResourceType    string          `json:"resourceType" yaml:"resourceType"`
	StackID         string          `json:"stackId" yaml:"stackId"`
	NextToken       string          `json:"nextToken,omitempty" yaml:"nextToken"`
	RequestData     RequestData     `json:"requestData" yaml:"requestData"`
	CallbackContext CallbackContext `json:"callbackContext,omitempty" yaml:"callbackContext"`
}

// RequestData carries the resource properties and credentials.
type RequestData struct {
	CallerCredentials          *Credentials      `json:"callerCredentials,omitempty" yaml:"callerCredentials"`
	ProviderCredentials        *Credentials      `json:"providerCredentials,omitempty" yaml:"providerCredentials"`
	ProviderLogGroupName       string            `json:"providerLogGroupName,omitempty" yaml:"providerLogGroupName"`
	LogicalResourceID          string            `json:"logicalResourceId" yaml:"logicalResourceId"`
	ResourceProperties         map[string]any    `json:"resourceProperties" yaml:"resourceProperties"`
	PreviousResourceProperties map[string]any    `json:"previousResourceProperties,omitempty" yaml:"previousResourceProperties"`
	SystemTags                 map[string]string `json:"systemTags,omitempty" yaml:"systemTags"`
	StackTags                  map[string]string `json:"stackTags,omitempty" yaml:"stackTags"`
}

// Request is the typed view of a handler request that handlers consume.
type Request struct {
	ClientRequestToken string
	LogicalResourceID  string
	Region             string
	AccountID          string
	StackID            string
	NextToken          string
	Desired            *model.ResourceModel
	Previous           *model.ResourceModel
	SystemTags         map[string]string
	StackTags          map[string]string
}

// Invocation is a decoded handler request.
type Invocation struct {
	Action      Action
	Request     *Request
	Context     CallbackContext
	Credentials *Credentials
}

// Decode parses a raw invocation payload. Any malformed input is reported as
// ErrInvalidRequest.
func Decode(raw []byte) (*Invocation, error) {
	var hr HandlerRequest
	if err := json.Unmarshal(raw, &hr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return hr.Invocation()
}

// Invocation validates the envelope and parses its resource models.
func (hr *HandlerRequest) Invocation() (*Invocation, error) {
	action := Action(strings.ToUpper(string(hr.Action)))
	switch action {
	case ActionCreate, ActionUpdate, ActionDelete, ActionRead, ActionList:
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, hr.Action)
	}
	if hr.ResourceType != "" && hr.ResourceType != model.TypeName {
		return nil, fmt.Errorf("%w: unsupported resource type %q", ErrInvalidRequest, hr.ResourceType)
	}

	desired, err := model.Parse(hr.RequestData.ResourceProperties)
	if err != nil {
		return nil, fmt.Errorf("%w: desired state: %w", ErrInvalidRequest, err)
	}
	previous, err := model.Parse(hr.RequestData.PreviousResourceProperties)
	if err != nil {
		return nil, fmt.Errorf("%w: previous state: %w", ErrInvalidRequest, err)
	}

	cbctx := hr.CallbackContext
	if cbctx == nil {
		cbctx = CallbackContext{}
	}

	return &Invocation{
		Action: action,
		Request: &Request{
			ClientRequestToken: hr.BearerToken,
			LogicalResourceID:  hr.RequestData.LogicalResourceID,
			Region:             hr.Region,
			AccountID:          hr.AWSAccountID,
			StackID:            hr.StackID,
			NextToken:          hr.NextToken,
			Desired:            desired,
			Previous:           previous,
			SystemTags:         hr.RequestData.SystemTags,
			StackTags:          hr.RequestData.StackTags,
		},
		Context:     cbctx,
		Credentials: hr.RequestData.CallerCredentials,
	}, nil
}
