package controlverify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindburn-labs/execgate/pkg/model"
)

func TestReference_NotRequired(t *testing.T) {
	v := NewReference()
	permit := &model.ToolPermit{RequiredControls: model.RequiredControls{ApprovalToken: false}}
	assert.True(t, v.Satisfied(permit, nil))
}

func TestReference_RequiredMissing(t *testing.T) {
	v := NewReference()
	permit := &model.ToolPermit{RequiredControls: model.RequiredControls{ApprovalToken: true}}
	assert.False(t, v.Satisfied(permit, nil))
	assert.False(t, v.Satisfied(permit, &model.Controls{}))
}

func TestReference_RequiredMatches(t *testing.T) {
	v := NewReference()
	permit := &model.ToolPermit{RequiredControls: model.RequiredControls{ApprovalToken: true}}
	assert.True(t, v.Satisfied(permit, &model.Controls{ApprovalToken: "APPROVED"}))
	assert.False(t, v.Satisfied(permit, &model.Controls{ApprovalToken: "approved"}))
}
