package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		props   map[string]any
		want    *ResourceModel
		wantErr error
	}{
		{
			name:  "empty properties",
			props: map[string]any{},
			want:  nil,
		},
		{
			name: "full model",
			props: map[string]any{
				"EnvironmentName":   "dev",
				"InstanceType":      "t3.small",
				"SubnetId":          "subnet-123",
				"OwnerArn":          "arn:aws:iam::123456789012:user/dev",
				"OperatingSystem":   "AmazonLinux2",
				"EbsVolumeSize":     float64(40),
				"BootstrapCommands": []any{"yum update -y", "echo 'hello world'"},
				"InstancePolicyArn": "arn:aws:iam::aws:policy/ReadOnlyAccess",
				"Tags": []any{
					map[string]any{"Key": "team", "Value": "platform"},
				},
			},
			want: &ResourceModel{
				EnvironmentName:   "dev",
				InstanceType:      "t3.small",
				SubnetId:          "subnet-123",
				OwnerArn:          "arn:aws:iam::123456789012:user/dev",
				OperatingSystem:   "AmazonLinux2",
				EbsVolumeSize:     40,
				BootstrapCommands: []string{"yum update -y", "echo 'hello world'"},
				InstancePolicyArn: "arn:aws:iam::aws:policy/ReadOnlyAccess",
				Tags:              []Tag{{Key: "team", Value: "platform"}},
			},
		},
		{
			name: "volume size as string",
			props: map[string]any{
				"EnvironmentName": "dev",
				"EbsVolumeSize":   "100",
			},
			want: &ResourceModel{EnvironmentName: "dev", EbsVolumeSize: 100},
		},
		{
			name: "blank volume size is absent",
			props: map[string]any{
				"EnvironmentName": "dev",
				"EbsVolumeSize":   "",
			},
			want: &ResourceModel{EnvironmentName: "dev"},
		},
		{
			name: "zero volume size",
			props: map[string]any{
				"EnvironmentName": "dev",
				"EbsVolumeSize":   float64(0),
			},
			want: &ResourceModel{EnvironmentName: "dev"},
		},
		{
			name: "zero volume size as string",
			props: map[string]any{
				"EnvironmentName": "dev",
				"EbsVolumeSize":   "0",
			},
			want: &ResourceModel{EnvironmentName: "dev"},
		},
		{
			name: "output identifiers round-trip",
			props: map[string]any{
				"EnvironmentId": "env-1",
				"InstanceId":    "i-1",
			},
			want: &ResourceModel{EnvironmentId: "env-1", InstanceId: "i-1"},
		},
		{
			name:    "negative volume size",
			props:   map[string]any{"EbsVolumeSize": float64(-1)},
			wantErr: ErrInvalidProperty,
		},
		{
			name:    "fractional volume size",
			props:   map[string]any{"EbsVolumeSize": 1.5},
			wantErr: ErrInvalidProperty,
		},
		{
			name:    "non numeric volume size",
			props:   map[string]any{"EbsVolumeSize": "big"},
			wantErr: ErrInvalidProperty,
		},
		{
			name:    "name is not a string",
			props:   map[string]any{"EnvironmentName": 7.0},
			wantErr: ErrInvalidProperty,
		},
		{
			name:    "commands not a list",
			props:   map[string]any{"BootstrapCommands": "echo hi"},
			wantErr: ErrInvalidProperty,
		},
		{
			name: "commands pass through verbatim",
			props: map[string]any{
				"BootstrapCommands": []any{
					"# don't skip the update",
					"echo hello # it's fine",
					"It's a heredoc body line",
				},
			},
			want: &ResourceModel{BootstrapCommands: []string{
				"# don't skip the update",
				"echo hello # it's fine",
				"It's a heredoc body line",
			}},
		},
		{
			name:    "tag without key",
			props:   map[string]any{"Tags": []any{map[string]any{"Value": "x"}}},
			wantErr: ErrInvalidProperty,
		},
		{
			name:    "tag not an object",
			props:   map[string]any{"Tags": []any{"team=platform"}},
			wantErr: ErrInvalidProperty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.props)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDuplicateTags(t *testing.T) {
	m, err := Parse(map[string]any{
		"Tags": []any{
			map[string]any{"Key": "env", "Value": "dev"},
			map[string]any{"Key": "env", "Value": "prod"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []Tag{{Key: "env", Value: "prod"}}, m.Tags)
}

func TestClone(t *testing.T) {
	orig := &ResourceModel{
		EnvironmentName:   "dev",
		BootstrapCommands: []string{"echo one"},
		Tags:              []Tag{{Key: "a", Value: "b"}},
	}
	cp := orig.Clone()
	cp.BootstrapCommands[0] = "echo two"
	cp.Tags[0].Value = "c"
	cp.EnvironmentId = "env-1"

	assert.Equal(t, "echo one", orig.BootstrapCommands[0])
	assert.Equal(t, "b", orig.Tags[0].Value)
	assert.Empty(t, orig.EnvironmentId)
	assert.Nil(t, (*ResourceModel)(nil).Clone())
}
