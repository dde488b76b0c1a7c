package provision

import (
	"errors"
	"fmt"

	"github.com/chainguard-dev/cloud9-environment-ssm/internal/cfn"
)

// Step is one phase of the create workflow. Steps run in declaration order and
// never move backwards.
type Step string

const (
	StepValidateIAM Step = "VALIDATE_IAM"
	StepResizeEBS   Step = "RESIZE_EBS"
	StepRunSSM      Step = "RUN_SSM"
	StepCleanUp     Step = "CLEAN_UP"
)

// Steps lists every step in execution order.
var Steps = []Step{StepValidateIAM, StepResizeEBS, StepRunSSM, StepCleanUp}

var ErrInvalidStep = errors.New("invalid workflow state")

// ParseStep resolves a step name.
func ParseStep(s string) (Step, error) {
	for _, step := range Steps {
		if string(step) == s {
			return step, nil
		}
	}
	return "", fmt.Errorf("%w: unknown step %q", ErrInvalidStep, s)
}

// ResolveStep picks the step to run from the callback context. A context
// without STATUS starts a fresh operation.
func ResolveStep(cbctx cfn.CallbackContext) (Step, error) {
	s, ok := cbctx.Step()
	if !ok {
		return StepValidateIAM, nil
	}
	return ParseStep(s)
}

func (s Step) String() string { return string(s) }
