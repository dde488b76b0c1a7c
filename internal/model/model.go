// Package model holds the Richard::Cloud9::EnvironmentSSM resource model and
// its explicit, validating decoder.
package model

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// TypeName is the CloudFormation resource type this provider serves.
const TypeName = "Richard::Cloud9::EnvironmentSSM"

// ResourceModel is the desired, previous or current state of one environment.
//
// EnvironmentId and InstanceId are output-only: they are empty until the
// workflow discovers them and never change afterwards.
type ResourceModel struct {
	EnvironmentId     string   `json:"EnvironmentId,omitempty"`
	EnvironmentName   string   `json:"EnvironmentName,omitempty"`
	InstanceType      string   `json:"InstanceType,omitempty"`
	SubnetId          string   `json:"SubnetId,omitempty"`
	InstanceId        string   `json:"InstanceId,omitempty"`
	OwnerArn          string   `json:"OwnerArn,omitempty"`
	OperatingSystem   string   `json:"OperatingSystem,omitempty"`
	EbsVolumeSize     int32    `json:"EbsVolumeSize,omitempty"`
	BootstrapCommands []string `json:"BootstrapCommands,omitempty"`
	InstancePolicyArn string   `json:"InstancePolicyArn,omitempty"`
	Tags              []Tag    `json:"Tags,omitempty"`
}

// Tag is a key/value pair applied to the environment.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

var (
	ErrInvalidProperty = errors.New("invalid resource property")
	errNotString       = errors.New("expected a string")
	errNotList         = errors.New("expected a list")
	errNotObject       = errors.New("expected an object")
	errNotSize         = errors.New("expected a non-negative whole number")
	errEmptyTagKey     = errors.New("tag key must not be empty")
)

// Parse decodes the raw resource properties CloudFormation sends. A nil or
// empty map yields a nil model. Unknown properties are ignored.
func Parse(props map[string]any) (*ResourceModel, error) {
	if len(props) == 0 {
		return nil, nil
	}

	m := &ResourceModel{}
	strs := []struct {
		key string
		dst *string
	}{
		{"EnvironmentId", &m.EnvironmentId},
		{"EnvironmentName", &m.EnvironmentName},
		{"InstanceType", &m.InstanceType},
		{"SubnetId", &m.SubnetId},
		{"InstanceId", &m.InstanceId},
		{"OwnerArn", &m.OwnerArn},
		{"OperatingSystem", &m.OperatingSystem},
		{"InstancePolicyArn", &m.InstancePolicyArn},
	}
	for _, f := range strs {
		v, err := stringProp(props, f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	size, err := volumeSizeProp(props, "EbsVolumeSize")
	if err != nil {
		return nil, err
	}
	m.EbsVolumeSize = size

	if m.BootstrapCommands, err = commandsProp(props, "BootstrapCommands"); err != nil {
		return nil, err
	}
	if m.Tags, err = tagsProp(props, "Tags"); err != nil {
		return nil, err
	}
	return m, nil
}

// Clone returns a deep copy of the model.
func (m *ResourceModel) Clone() *ResourceModel {
	if m == nil {
		return nil
	}
	out := *m
	out.BootstrapCommands = slices.Clone(m.BootstrapCommands)
	out.Tags = slices.Clone(m.Tags)
	return &out
}

func propError(key string, err error) error {
	return fmt.Errorf("%w %q: %w", ErrInvalidProperty, key, err)
}

func stringProp(props map[string]any, key string) (string, error) {
	v, ok := props[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", propError(key, errNotString)
	}
	return s, nil
}

// volumeSizeProp accepts JSON numbers as well as numeric strings, since
// CloudFormation hands template integers to providers as strings. Zero means
// no resize.
func volumeSizeProp(props map[string]any, key string) (int32, error) {
	v, ok := props[key]
	if !ok || v == nil {
		return 0, nil
	}

	var n int64
	switch t := v.(type) {
	case float64:
		if t != float64(int64(t)) {
			return 0, propError(key, errNotSize)
		}
		n = int64(t)
	case int:
		n = int64(t)
	case int64:
		n = t
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 32)
		if err != nil {
			return 0, propError(key, errNotSize)
		}
		n = parsed
	default:
		return 0, propError(key, errNotSize)
	}

	if n < 0 || n > 1<<31-1 {
		return 0, propError(key, errNotSize)
	}
	return int32(n), nil
}

func commandsProp(props map[string]any, key string) ([]string, error) {
	v, ok := props[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, propError(key, errNotList)
	}

	cmds := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, propError(fmt.Sprintf("%s[%d]", key, i), errNotString)
		}
		cmds = append(cmds, s)
	}
	if len(cmds) == 0 {
		return nil, nil
	}
	return cmds, nil
}

func tagsProp(props map[string]any, key string) ([]Tag, error) {
	v, ok := props[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, propError(key, errNotList)
	}

	var tags []Tag
	for i, item := range list {
		name := fmt.Sprintf("%s[%d]", key, i)
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, propError(name, errNotObject)
		}
		k, err := stringProp(obj, "Key")
		if err != nil {
			return nil, propError(name, err)
		}
		if k == "" {
			return nil, propError(name, errEmptyTagKey)
		}
		val, err := stringProp(obj, "Value")
		if err != nil {
			return nil, propError(name, err)
		}
		// Tags are a set; the last value for a key wins.
		if idx := slices.IndexFunc(tags, func(t Tag) bool { return t.Key == k }); idx >= 0 {
			tags[idx].Value = val
			continue
		}
		tags = append(tags, Tag{Key: k, Value: val})
	}
	return tags, nil
}
