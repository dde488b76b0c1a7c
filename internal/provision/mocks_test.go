package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloud9"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// API operation names to verify which calls a step issued.
const (
	opGetRole                  = "GetRole"
	opCreateRole               = "CreateRole"
	opDeleteRole               = "DeleteRole"
	opAttachRolePolicy         = "AttachRolePolicy"
	opDetachRolePolicy         = "DetachRolePolicy"
	opGetInstanceProfile       = "GetInstanceProfile"
	opCreateInstanceProfile    = "CreateInstanceProfile"
	opDeleteInstanceProfile    = "DeleteInstanceProfile"
	opAddRoleToInstanceProfile = "AddRoleToInstanceProfile"
	opCreateEnvironmentEC2     = "CreateEnvironmentEC2"
	opDeleteEnvironment        = "DeleteEnvironment"
	opDescribeInstances        = "DescribeInstances"
	opModifyVolume             = "ModifyVolume"
	opStartInstances           = "StartInstances"
	opSendCommand              = "SendCommand"
	opGetCommandInvocation     = "GetCommandInvocation"
)

const testAccountID = "123456789012"

// mockIAMClient is a mock implementation of the IAM client for testing. By
// default roles and profiles become visible once they were created.
type mockIAMClient struct {
	getRoleFunc                  func(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	createRoleFunc               func(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	attachRolePolicyFunc         func(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	createInstanceProfileFunc    func(ctx context.Context, params *iam.CreateInstanceProfileInput, optFns ...func(*iam.Options)) (*iam.CreateInstanceProfileOutput, error)
	addRoleToInstanceProfileFunc func(ctx context.Context, params *iam.AddRoleToInstanceProfileInput, optFns ...func(*iam.Options)) (*iam.AddRoleToInstanceProfileOutput, error)

	roleExists    bool
	profileExists bool

	// Track operations and attached policies for testing.
	operations []string
	attached   []string
}

func (m *mockIAMClient) GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	m.operations = append(m.operations, opGetRole)
	if m.getRoleFunc != nil {
		return m.getRoleFunc(ctx, params, optFns...)
	}
	if !m.roleExists {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("role not found")}
	}
	return &iam.GetRoleOutput{
		Role: &iamtypes.Role{
			Arn:      aws.String(fmt.Sprintf("arn:aws:iam::%s:role/%s", testAccountID, *params.RoleName)),
			RoleName: params.RoleName,
		},
	}, nil
}

func (m *mockIAMClient) CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	m.operations = append(m.operations, opCreateRole)
	if m.createRoleFunc != nil {
		return m.createRoleFunc(ctx, params, optFns...)
	}
	m.roleExists = true
	return &iam.CreateRoleOutput{
		Role: &iamtypes.Role{
			Arn:      aws.String(fmt.Sprintf("arn:aws:iam::%s:role/%s", testAccountID, *params.RoleName)),
			RoleName: params.RoleName,
		},
	}, nil
}

func (m *mockIAMClient) DeleteRole(_ context.Context, _ *iam.DeleteRoleInput, _ ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	m.operations = append(m.operations, opDeleteRole)
	m.roleExists = false
	return &iam.DeleteRoleOutput{}, nil
}

func (m *mockIAMClient) AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	m.operations = append(m.operations, opAttachRolePolicy)
	if m.attachRolePolicyFunc != nil {
		return m.attachRolePolicyFunc(ctx, params, optFns...)
	}
	m.attached = append(m.attached, aws.ToString(params.PolicyArn))
	return &iam.AttachRolePolicyOutput{}, nil
}

func (m *mockIAMClient) DetachRolePolicy(_ context.Context, _ *iam.DetachRolePolicyInput, _ ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error) {
	m.operations = append(m.operations, opDetachRolePolicy)
	return &iam.DetachRolePolicyOutput{}, nil
}

func (m *mockIAMClient) GetInstanceProfile(_ context.Context, params *iam.GetInstanceProfileInput, _ ...func(*iam.Options)) (*iam.GetInstanceProfileOutput, error) {
	m.operations = append(m.operations, opGetInstanceProfile)
	if !m.profileExists {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("instance profile not found")}
	}
	return &iam.GetInstanceProfileOutput{
		InstanceProfile: &iamtypes.InstanceProfile{
			Arn:                 aws.String(fmt.Sprintf("arn:aws:iam::%s:instance-profile/%s", testAccountID, *params.InstanceProfileName)),
			InstanceProfileName: params.InstanceProfileName,
		},
	}, nil
}

func (m *mockIAMClient) CreateInstanceProfile(ctx context.Context, params *iam.CreateInstanceProfileInput, optFns ...func(*iam.Options)) (*iam.CreateInstanceProfileOutput, error) {
	m.operations = append(m.operations, opCreateInstanceProfile)
	if m.createInstanceProfileFunc != nil {
		return m.createInstanceProfileFunc(ctx, params, optFns...)
	}
	m.profileExists = true
	return &iam.CreateInstanceProfileOutput{
		InstanceProfile: &iamtypes.InstanceProfile{
			Arn:                 aws.String(fmt.Sprintf("arn:aws:iam::%s:instance-profile/%s", testAccountID, *params.InstanceProfileName)),
			InstanceProfileName: params.InstanceProfileName,
		},
	}, nil
}

func (m *mockIAMClient) DeleteInstanceProfile(_ context.Context, _ *iam.DeleteInstanceProfileInput, _ ...func(*iam.Options)) (*iam.DeleteInstanceProfileOutput, error) {
	m.operations = append(m.operations, opDeleteInstanceProfile)
	m.profileExists = false
	return &iam.DeleteInstanceProfileOutput{}, nil
}

func (m *mockIAMClient) AddRoleToInstanceProfile(ctx context.Context, params *iam.AddRoleToInstanceProfileInput, optFns ...func(*iam.Options)) (*iam.AddRoleToInstanceProfileOutput, error) {
	m.operations = append(m.operations, opAddRoleToInstanceProfile)
	if m.addRoleToInstanceProfileFunc != nil {
		return m.addRoleToInstanceProfileFunc(ctx, params, optFns...)
	}
	return &iam.AddRoleToInstanceProfileOutput{}, nil
}

// mockCloud9Client is a mock implementation of the Cloud9 client for testing.
type mockCloud9Client struct {
	createEnvironmentEC2Func func(ctx context.Context, params *cloud9.CreateEnvironmentEC2Input, optFns ...func(*cloud9.Options)) (*cloud9.CreateEnvironmentEC2Output, error)
	deleteEnvironmentFunc    func(ctx context.Context, params *cloud9.DeleteEnvironmentInput, optFns ...func(*cloud9.Options)) (*cloud9.DeleteEnvironmentOutput, error)

	operations []string
	created    []*cloud9.CreateEnvironmentEC2Input
}

func (m *mockCloud9Client) CreateEnvironmentEC2(ctx context.Context, params *cloud9.CreateEnvironmentEC2Input, optFns ...func(*cloud9.Options)) (*cloud9.CreateEnvironmentEC2Output, error) {
	m.operations = append(m.operations, opCreateEnvironmentEC2)
	m.created = append(m.created, params)
	if m.createEnvironmentEC2Func != nil {
		return m.createEnvironmentEC2Func(ctx, params, optFns...)
	}
	return &cloud9.CreateEnvironmentEC2Output{EnvironmentId: aws.String("env-0123456789")}, nil
}

func (m *mockCloud9Client) DeleteEnvironment(ctx context.Context, params *cloud9.DeleteEnvironmentInput, optFns ...func(*cloud9.Options)) (*cloud9.DeleteEnvironmentOutput, error) {
	m.operations = append(m.operations, opDeleteEnvironment)
	if m.deleteEnvironmentFunc != nil {
		return m.deleteEnvironmentFunc(ctx, params, optFns...)
	}
	return &cloud9.DeleteEnvironmentOutput{}, nil
}

// mockEC2Client is a mock implementation of the EC2 client for testing.
type mockEC2Client struct {
	describeInstancesFunc func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	modifyVolumeFunc      func(ctx context.Context, params *ec2.ModifyVolumeInput, optFns ...func(*ec2.Options)) (*ec2.ModifyVolumeOutput, error)
	startInstancesFunc    func(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)

	operations []string
	modified   []*ec2.ModifyVolumeInput
	started    []string
}

func (m *mockEC2Client) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	m.operations = append(m.operations, opDescribeInstances)
	if m.describeInstancesFunc != nil {
		return m.describeInstancesFunc(ctx, params, optFns...)
	}
	return &ec2.DescribeInstancesOutput{}, nil
}

func (m *mockEC2Client) ModifyVolume(ctx context.Context, params *ec2.ModifyVolumeInput, optFns ...func(*ec2.Options)) (*ec2.ModifyVolumeOutput, error) {
	m.operations = append(m.operations, opModifyVolume)
	m.modified = append(m.modified, params)
	if m.modifyVolumeFunc != nil {
		return m.modifyVolumeFunc(ctx, params, optFns...)
	}
	return &ec2.ModifyVolumeOutput{}, nil
}

func (m *mockEC2Client) StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	m.operations = append(m.operations, opStartInstances)
	m.started = append(m.started, params.InstanceIds...)
	if m.startInstancesFunc != nil {
		return m.startInstancesFunc(ctx, params, optFns...)
	}
	return &ec2.StartInstancesOutput{}, nil
}

// mockSSMClient is a mock implementation of the SSM client for testing.
type mockSSMClient struct {
	sendCommandFunc          func(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
	getCommandInvocationFunc func(ctx context.Context, params *ssm.GetCommandInvocationInput, optFns ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error)

	operations []string
	sent       []*ssm.SendCommandInput
}

func (m *mockSSMClient) SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error) {
	m.operations = append(m.operations, opSendCommand)
	m.sent = append(m.sent, params)
	if m.sendCommandFunc != nil {
		return m.sendCommandFunc(ctx, params, optFns...)
	}
	return &ssm.SendCommandOutput{
		Command: &ssmtypes.Command{CommandId: aws.String("cmd-0123456789")},
	}, nil
}

func (m *mockSSMClient) GetCommandInvocation(ctx context.Context, params *ssm.GetCommandInvocationInput, optFns ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error) {
	m.operations = append(m.operations, opGetCommandInvocation)
	if m.getCommandInvocationFunc != nil {
		return m.getCommandInvocationFunc(ctx, params, optFns...)
	}
	return &ssm.GetCommandInvocationOutput{Status: ssmtypes.CommandInvocationStatusSuccess}, nil
}

// mockClients bundles one mock per service.
type mockClients struct {
	iam    *mockIAMClient
	cloud9 *mockCloud9Client
	ec2    *mockEC2Client
	ssm    *mockSSMClient
}

func newMockClients() *mockClients {
	return &mockClients{
		iam:    &mockIAMClient{},
		cloud9: &mockCloud9Client{},
		ec2:    &mockEC2Client{},
		ssm:    &mockSSMClient{},
	}
}

func (m *mockClients) clients() *Clients {
	return &Clients{IAM: m.iam, Cloud9: m.cloud9, EC2: m.ec2, SSM: m.ssm}
}

// describeInstance returns a DescribeInstances stub reporting a single
// instance in the given state.
func describeInstance(id string, state ec2types.InstanceStateName) func(context.Context, *ec2.DescribeInstancesInput, ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return func(context.Context, *ec2.DescribeInstancesInput, ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
		return &ec2.DescribeInstancesOutput{
			Reservations: []ec2types.Reservation{{
				Instances: []ec2types.Instance{{
					InstanceId:     aws.String(id),
					State:          &ec2types.InstanceState{Name: state},
					RootDeviceName: aws.String("/dev/xvda"),
					BlockDeviceMappings: []ec2types.InstanceBlockDeviceMapping{{
						DeviceName: aws.String("/dev/xvda"),
						Ebs:        &ec2types.EbsInstanceBlockDevice{VolumeId: aws.String("vol-root")},
					}},
				}},
			}},
		}, nil
	}
}
