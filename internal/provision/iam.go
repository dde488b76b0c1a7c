package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/chainguard-dev/clog"
)

const (
	// Cloud9 looks these names up when an environment uses CONNECT_SSM, so
	// they are fixed.
	accessRoleName           = "AWSCloud9SSMAccessRole"
	accessRolePath           = "/service-role/"
	instanceProfileName      = "AWSCloud9SSMInstanceProfile"
	instanceProfilePath      = "/cloud9/"
	cloud9SSMProfilePolicy   = "arn:aws:iam::aws:policy/AWSCloud9SSMInstanceProfile"
	ssmManagedInstancePolicy = "arn:aws:iam::aws:policy/AmazonSSMManagedInstanceCore"

	// AWS IAM policy document values.
	iamPolicyVersion    = "2012-10-17"
	iamEffectAllow      = "Allow"
	awsServiceCloud9    = "cloud9.amazonaws.com"
	awsServiceEC2       = "ec2.amazonaws.com"
	stsActionAssumeRole = "sts:AssumeRole"

	iamRoleDescription = "Service linked role for AWS Cloud9 SSM environments"
)

// managedPolicies are attached to a freshly created access role.
var managedPolicies = []string{cloud9SSMProfilePolicy, ssmManagedInstancePolicy}

var (
	errIAMRoleGet                = errors.New("failed to look up IAM role")
	errIAMRoleCreate             = errors.New("failed to create IAM role")
	errIAMRoleAttachPolicy       = errors.New("failed to attach policy to IAM role")
	errIAMRoleWait               = errors.New("IAM role did not become visible")
	errIAMInstanceProfileCreate  = errors.New("failed to create IAM instance profile")
	errIAMInstanceProfileWait    = errors.New("IAM instance profile did not become visible")
	errIAMInstanceProfileAddRole = errors.New("failed to add role to instance profile")
	errIAMRoleDetachPolicy       = errors.New("failed to detach policy from IAM role")
	errIAMInstanceProfileDelete  = errors.New("failed to delete IAM instance profile")
	errIAMRoleDelete             = errors.New("failed to delete IAM role")
	errTrustPolicyMarshal        = errors.New("failed to marshal trust policy")
)

// trustPolicyDocument allows both Cloud9 and EC2 to assume the access role.
func trustPolicyDocument() (string, error) {
	trustPolicy := map[string]any{
		"Version": iamPolicyVersion,
		"Statement": []map[string]any{
			{
				"Effect": iamEffectAllow,
				"Principal": map[string]any{
					"Service": []string{awsServiceCloud9, awsServiceEC2},
				},
				"Action": []string{stsActionAssumeRole},
			},
		},
	}
	b, err := json.Marshal(trustPolicy)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errTrustPolicyMarshal, err)
	}
	return string(b), nil
}

// iamRoleExists reports whether the named role exists.
func iamRoleExists(ctx context.Context, client IAMClient, roleName string) (bool, error) {
	_, err := client.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(roleName),
	})
	if apiErrorIs(err, codeIAMNoSuchEntity) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", errIAMRoleGet, err)
	}
	return true, nil
}

// iamRoleCreate creates the access role. created is false when the role turned
// out to exist already.
func iamRoleCreate(ctx context.Context, client IAMClient, roleName string) (created bool, err error) {
	log := clog.FromContext(ctx)

	trustPolicy, err := trustPolicyDocument()
	if err != nil {
		return false, err
	}

	log.Info("creating IAM role", "role_name", roleName)
	result, err := client.CreateRole(ctx, &iam.CreateRoleInput{
		Path:                     aws.String(accessRolePath),
		RoleName:                 aws.String(roleName),
		AssumeRolePolicyDocument: aws.String(trustPolicy),
		Description:              aws.String(iamRoleDescription),
	})
	if apiErrorIs(err, codeIAMEntityAlreadyExists) {
		log.Info("IAM role already exists", "role_name", roleName)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", errIAMRoleCreate, err)
	}

	log.Info("successfully created IAM role", "role_name", roleName, "role_arn", aws.ToString(result.Role.Arn))
	return true, nil
}

// iamInstanceProfileCreate creates the instance profile. created is false when
// the profile turned out to exist already.
func iamInstanceProfileCreate(ctx context.Context, client IAMClient, profileName string) (created bool, err error) {
	log := clog.FromContext(ctx)

	log.Info("creating IAM instance profile", "profile_name", profileName)
	result, err := client.CreateInstanceProfile(ctx, &iam.CreateInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
		Path:                aws.String(instanceProfilePath),
	})
	if apiErrorIs(err, codeIAMEntityAlreadyExists) {
		log.Info("IAM instance profile already exists", "profile_name", profileName)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", errIAMInstanceProfileCreate, err)
	}

	log.Info("successfully created IAM instance profile", "profile_name", profileName, "profile_arn", aws.ToString(result.InstanceProfile.Arn))
	return true, nil
}

// iamRoleAttachPolicy attaches a managed policy to a role. IAM treats
// attaching an already attached policy as success.
func iamRoleAttachPolicy(ctx context.Context, client IAMClient, roleName, policyArn string) error {
	log := clog.FromContext(ctx)

	log.Info("attaching policy to IAM role", "role_name", roleName, "policy_arn", policyArn)
	_, err := client.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyArn),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errIAMRoleAttachPolicy, err)
	}

	log.Info("successfully attached policy to IAM role", "role_name", roleName, "policy_arn", policyArn)
	return nil
}

// iamInstanceProfileAddRole adds an IAM role to an instance profile.
func iamInstanceProfileAddRole(ctx context.Context, client IAMClient, profileName, roleName string) error {
	log := clog.FromContext(ctx)

	log.Info("adding role to instance profile", "profile_name", profileName, "role_name", roleName)
	_, err := client.AddRoleToInstanceProfile(ctx, &iam.AddRoleToInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
		RoleName:            aws.String(roleName),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errIAMInstanceProfileAddRole, err)
	}

	log.Info("successfully added role to instance profile", "profile_name", profileName, "role_name", roleName)
	return nil
}

// iamRoleWait blocks until the role is visible to IAM, polling every interval
// for at most attempts tries.
func iamRoleWait(ctx context.Context, client IAMClient, roleName string, attempts int, interval time.Duration) error {
	waiter := iam.NewRoleExistsWaiter(client, func(o *iam.RoleExistsWaiterOptions) {
		o.MinDelay = interval
		o.MaxDelay = interval
	})
	err := waiter.Wait(ctx, &iam.GetRoleInput{
		RoleName: aws.String(roleName),
	}, time.Duration(attempts)*interval)
	if err != nil {
		return fmt.Errorf("%w: %w", errIAMRoleWait, err)
	}
	return nil
}

// iamInstanceProfileWait blocks until the instance profile is visible to IAM.
func iamInstanceProfileWait(ctx context.Context, client IAMClient, profileName string, attempts int, interval time.Duration) error {
	waiter := iam.NewInstanceProfileExistsWaiter(client, func(o *iam.InstanceProfileExistsWaiterOptions) {
		o.MinDelay = interval
		o.MaxDelay = interval
	})
	err := waiter.Wait(ctx, &iam.GetInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
	}, time.Duration(attempts)*interval)
	if err != nil {
		return fmt.Errorf("%w: %w", errIAMInstanceProfileWait, err)
	}
	return nil
}

// Rollback functions.

// iamRoleDetachPolicy detaches a policy from an IAM role.
func iamRoleDetachPolicy(ctx context.Context, client IAMClient, roleName, policyArn string) error {
	log := clog.FromContext(ctx)

	log.Info("detaching policy from IAM role", "role_name", roleName, "policy_arn", policyArn)
	_, err := client.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyArn),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errIAMRoleDetachPolicy, err)
	}
	return nil
}

// iamInstanceProfileDelete deletes an IAM instance profile.
func iamInstanceProfileDelete(ctx context.Context, client IAMClient, profileName string) error {
	log := clog.FromContext(ctx)

	log.Info("deleting IAM instance profile", "profile_name", profileName)
	_, err := client.DeleteInstanceProfile(ctx, &iam.DeleteInstanceProfileInput{
		InstanceProfileName: aws.String(profileName),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errIAMInstanceProfileDelete, err)
	}
	return nil
}

// iamRoleDelete deletes an IAM role.
func iamRoleDelete(ctx context.Context, client IAMClient, roleName string) error {
	log := clog.FromContext(ctx)

	log.Info("deleting IAM role", "role_name", roleName)
	_, err := client.DeleteRole(ctx, &iam.DeleteRoleInput{
		RoleName: aws.String(roleName),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errIAMRoleDelete, err)
	}
	return nil
}

// bootstrapAccessRole creates the access role and its instance profile,
// attaches the managed policies and links the two. If any call fails, the
// resources created by this attempt are removed again so the next attempt's
// existence check sees a clean slate.
func bootstrapAccessRole(ctx context.Context, client IAMClient, opts Options) (err error) {
	log := clog.FromContext(ctx)
	var rb rollback
	defer func() {
		if err == nil {
			return
		}
		if rbErr := rb.Unwind(ctx); rbErr != nil {
			log.Error("failed to roll back partial IAM bootstrap", "error", rbErr)
		}
	}()

	roleCreated, err := iamRoleCreate(ctx, client, accessRoleName)
	if err != nil {
		return err
	}
	if roleCreated {
		rb.Push(func(ctx context.Context) error {
			return iamRoleDelete(ctx, client, accessRoleName)
		})
	}

	profileCreated, err := iamInstanceProfileCreate(ctx, client, instanceProfileName)
	if err != nil {
		return err
	}
	if profileCreated {
		rb.Push(func(ctx context.Context) error {
			return iamInstanceProfileDelete(ctx, client, instanceProfileName)
		})
	}

	// IAM is eventually consistent; the role has to be visible before
	// policies can be attached to it.
	if err := iamRoleWait(ctx, client, accessRoleName, opts.IAMWaitAttempts, opts.IAMWaitInterval); err != nil {
		return err
	}

	for _, policyArn := range managedPolicies {
		if err := iamRoleAttachPolicy(ctx, client, accessRoleName, policyArn); err != nil {
			return err
		}
		if roleCreated {
			rb.Push(func(ctx context.Context) error {
				return iamRoleDetachPolicy(ctx, client, accessRoleName, policyArn)
			})
		}
	}

	if err := iamInstanceProfileWait(ctx, client, instanceProfileName, opts.IAMWaitAttempts, opts.IAMWaitInterval); err != nil {
		return err
	}

	if err := iamInstanceProfileAddRole(ctx, client, instanceProfileName, accessRoleName); err != nil {
		return err
	}
	return nil
}
