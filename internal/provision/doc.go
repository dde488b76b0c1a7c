// Package provision implements the create workflow for
// Richard::Cloud9::EnvironmentSSM resources.
//
// # Overview
//
// Creating an environment takes far longer than a single handler invocation
// may run, so the work is split into steps. Each invocation runs exactly one
// step and returns a progress event. An IN_PROGRESS event names the next step
// in the callback context under STATUS and asks CloudFormation to invoke the
// handler again after a delay. Nothing is kept in process between
// invocations.
//
// Lifecycle: VALIDATE_IAM -> RESIZE_EBS -> RUN_SSM -> CLEAN_UP
//
// # Step: VALIDATE_IAM
//
//  1. Access role - AWSCloud9SSMAccessRole, created with its instance profile
//     and managed policies when missing
//  2. Instance policy - InstancePolicyArn attached to the role, if set
//  3. Environment - created with CONNECT_SSM and a 60 minute auto stop
//
// IAM is eventually consistent, so the role and profile are waited on with
// the bounded IAM waiters. A bootstrap that fails half way removes what it
// created.
//
// # Step: RESIZE_EBS
//
// Skipped when EbsVolumeSize is unset. Otherwise the environment instance is
// looked up by its aws:cloud9:environment tag:
//   - running: the root volume is modified and the workflow moves on
//   - pending, stopping, shutting-down: retried after 180 seconds
//   - stopped: the instance is started and the step retried after 180 seconds
//
// Any other state fails the operation.
//
// # Step: RUN_SSM
//
// BootstrapCommands are sent through AWS-RunShellScript and the command id is
// recorded under CommandId. Without commands the placeholder id 000000000000
// is recorded instead.
//
// # Step: CLEAN_UP
//
// The command invocation is polled every 120 seconds until it reaches a
// terminal status. Cancelled, TimedOut, Failed and Cancelling fail the
// operation; every other terminal status succeeds.
package provision
