package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"montage-orchestrator/internal/montage"
)

func runPlan(t *testing.T, args ...string) (montage.Plan, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"plan"}, args...))
	if err := cmd.Execute(); err != nil {
		return montage.Plan{}, err
	}
	var plan montage.Plan
	require.NoError(t, json.Unmarshal(out.Bytes(), &plan))
	return plan, nil
}

func TestPlanCmd(t *testing.T) {
	plan, err := runPlan(t, "--duration", "12.8", "--bpm", "128", "--mode", "high", "--prompt", "neon city")
	require.NoError(t, err)

	assert.Equal(t, montage.ModeHigh, plan.Mode)
	assert.Equal(t, "neon city", plan.StyleAnchor)
	require.NotEmpty(t, plan.Segments)
	assert.Equal(t, 0.0, plan.Segments[0].Start)
	assert.InDelta(t, 12.8, plan.Segments[len(plan.Segments)-1].End, 1e-9)
	for i, seg := range plan.Segments {
		assert.Equal(t, i, seg.Index)
	}
}

func TestPlanCmd_rejects_bad_input(t *testing.T) {
	_, err := runPlan(t, "--mode", "ultra")
	assert.Error(t, err)

	_, err = runPlan(t, "--duration", "0")
	assert.Error(t, err)
}
