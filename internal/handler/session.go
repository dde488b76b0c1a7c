package handler

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/cfn"
	"github.com/chainguard-dev/cloud9-environment-ssm/internal/provision"
)

// ClientFactory builds the AWS clients for one invocation.
type ClientFactory func(ctx context.Context, region string, creds *cfn.Credentials) (*provision.Clients, error)

var errLoadAWSConfig = fmt.Errorf("failed to load AWS configuration")

// NewAWSClients builds clients acting with the caller credentials
// CloudFormation passed in the request. Without them the default credential
// chain is used.
func NewAWSClients(ctx context.Context, region string, creds *cfn.Credentials) (*provision.Clients, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if creds.Valid() {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLoadAWSConfig, err)
	}
	return provision.NewClients(cfg), nil
}
