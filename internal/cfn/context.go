package cfn

import "fmt"

const (
	// contextKeyStatus holds the name of the step to run on the next invocation.
	contextKeyStatus = "STATUS"
	// contextKeyCommandID holds the SSM command dispatched by the bootstrap step.
	contextKeyCommandID = "CommandId"
)

// CallbackContext is the opaque state bag CloudFormation round-trips between
// invocations of one operation. It is the only state that survives from one
// invocation to the next.
type CallbackContext map[string]any

// Step returns the raw STATUS value and whether one was present.
func (c CallbackContext) Step() (string, bool) {
	return c.stringValue(contextKeyStatus)
}

// SetStep records the step the next invocation should run.
func (c CallbackContext) SetStep(step string) {
	c[contextKeyStatus] = step
}

// CommandID returns the recorded SSM command id and whether one was present.
func (c CallbackContext) CommandID() (string, bool) {
	return c.stringValue(contextKeyCommandID)
}

// SetCommandID records the dispatched SSM command id.
func (c CallbackContext) SetCommandID(id string) {
	c[contextKeyCommandID] = id
}

func (c CallbackContext) stringValue(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c[key]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	// Present but not a string: surface it so callers reject it rather than
	// treating the key as absent.
	return fmt.Sprint(v), true
}

// Clone returns a shallow copy, never nil.
func (c CallbackContext) Clone() CallbackContext {
	out := make(CallbackContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
