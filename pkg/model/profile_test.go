package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validProfileJSON = `{
	"profile_id": "example",
	"profile_version": "1.0.0",
	"default": "DENY",
	"allowed_tools": [
		{
			"name": "email.send",
			"required_controls": {"approval_token": false},
			"constraints": {
				"arg_rules": [
					{"path": "$.to", "type": "string", "pattern": "^[^@]+@example\\.com$"},
					{"path": "$.subject", "type": "string", "max_len": 128}
				]
			}
		},
		{
			"name": "storage.put",
			"required_controls": {"approval_token": true}
		}
	]
}`

func TestParseExecutionProfile_Valid(t *testing.T) {
	p, err := ParseExecutionProfile([]byte(validProfileJSON))
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.True(t, p.DefaultIsDeny())

	permit, ok := p.FindPermit("email.send")
	require.True(t, ok)
	assert.False(t, permit.RequiredControls.ApprovalToken)

	_, ok = p.FindPermit("db.drop_all")
	assert.False(t, ok)
}

func TestExecutionProfile_DefaultMustBeDeny(t *testing.T) {
	p, err := ParseExecutionProfile([]byte(`{"profile_id":"p","profile_version":"1","default":"ALLOW","allowed_tools":[]}`))
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.False(t, p.DefaultIsDeny())
}

func TestExecutionProfile_Validate_RejectsUnknownArgRuleType(t *testing.T) {
	p, err := ParseExecutionProfile([]byte(`{"profile_id":"p","profile_version":"1","default":"DENY","allowed_tools":[{"name":"t","required_controls":{"approval_token":false},"constraints":{"arg_rules":[{"path":"$.x","type":"weird"}]}}]}`))
	require.NoError(t, err)
	assert.Error(t, p.Validate())
}

func TestParseExecutionProfile_RejectsUnknownField(t *testing.T) {
	_, err := ParseExecutionProfile([]byte(`{"profile_id":"p","profile_version":"1","default":"DENY","allowed_tools":[],"unexpected":true}`))
	assert.Error(t, err)
}
