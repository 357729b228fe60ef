package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindburn-labs/execgate/pkg/model"
)

func TestProvenanceID_Deterministic(t *testing.T) {
	id1, err := ProvenanceID("sha256:req", "sha256:prof", "1.0.0")
	require.NoError(t, err)
	id2, err := ProvenanceID("sha256:req", "sha256:prof", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestProvenanceID_VariesWithInputs(t *testing.T) {
	base, err := ProvenanceID("sha256:req", "sha256:prof", "1.0.0")
	require.NoError(t, err)

	diffReq, err := ProvenanceID("sha256:other", "sha256:prof", "1.0.0")
	require.NoError(t, err)
	assert.NotEqual(t, base, diffReq)

	diffRuntime, err := ProvenanceID("sha256:req", "sha256:prof", "2.0.0")
	require.NoError(t, err)
	assert.NotEqual(t, base, diffRuntime)
}

func TestAssembler_Allow(t *testing.T) {
	a := NewAssembler(model.RuntimeMeta{Name: "gate", Version: "1.0.0", Build: "abc"})
	profile := model.DecisionProfileInfo{ID: "example", Version: "1.0.0", ProfileRefHash: "sha256:pr"}

	d, err := a.Allow("sha256:req", profile, "email.send", []byte(`{"to":"bob@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, model.DecisionAllow, d.DecisionType)
	assert.Equal(t, model.ReasonOK, d.ReasonCode)
	require.NotNil(t, d.ApprovedCall)
	assert.Equal(t, "email.send", d.ApprovedCall.ToolName)
}

func TestAssembler_Deny(t *testing.T) {
	a := NewAssembler(model.RuntimeMeta{Name: "gate", Version: "1.0.0", Build: "abc"})
	profile := model.DecisionProfileInfo{ID: "example", Version: "1.0.0", ProfileRefHash: "sha256:pr"}

	d, err := a.Deny(model.ReasonToolNotAllowed, "sha256:req", profile)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionDeny, d.DecisionType)
	assert.Nil(t, d.ApprovedCall)
}

func TestFallbackProfileRefHash_Stable(t *testing.T) {
	h1, err := FallbackProfileRefHash()
	require.NoError(t, err)
	h2, err := FallbackProfileRefHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
