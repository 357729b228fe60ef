package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAllowDecision_CarriesApprovedCall(t *testing.T) {
	d := NewAllowDecision("sha256:req", "sha256:prov",
		DecisionProfileInfo{ID: "p", Version: "1", ProfileRefHash: "sha256:pr"},
		RuntimeMeta{Name: "gate", Version: "1.0.0", Build: "abc"},
		ApprovedCall{ToolName: "email.send", ToolArgs: []byte(`{"to":"bob@example.com"}`)},
	)
	assert.Equal(t, DecisionAllow, d.DecisionType)
	assert.Equal(t, ReasonOK, d.ReasonCode)
	require.NotNil(t, d.ApprovedCall)
	assert.Equal(t, "email.send", d.ApprovedCall.ToolName)
}

func TestNewDenyDecision_OmitsApprovedCall(t *testing.T) {
	d, err := NewDenyDecision(ReasonToolNotAllowed, "sha256:req", "sha256:prov",
		DecisionProfileInfo{ID: "p", Version: "1", ProfileRefHash: "sha256:pr"},
		RuntimeMeta{Name: "gate", Version: "1.0.0", Build: "abc"},
	)
	require.NoError(t, err)
	assert.Equal(t, DecisionDeny, d.DecisionType)
	assert.Nil(t, d.ApprovedCall)
}

func TestNewDenyDecision_RejectsOKReason(t *testing.T) {
	_, err := NewDenyDecision(ReasonOK, "sha256:req", "sha256:prov",
		DecisionProfileInfo{}, RuntimeMeta{},
	)
	assert.Error(t, err)
}
