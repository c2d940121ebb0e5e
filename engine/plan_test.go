package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SawyerHood/codex/protocol"
)

func TestPlanTracker_LastWriterWins(t *testing.T) {
	p := NewPlanTracker()

	_, ok := p.Current()
	assert.False(t, ok, "no plan before the first update")

	p.Update("first pass", []protocol.PlanItem{
		{Step: "read the code", Status: protocol.StepInProgress},
		{Step: "fix the bug", Status: protocol.StepPending},
	}, base)

	p.Update("narrowed it down", []protocol.PlanItem{
		{Step: "read the code", Status: protocol.StepCompleted},
		{Step: "fix the bug", Status: protocol.StepInProgress},
	}, base.Add(time.Minute))

	snap, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "narrowed it down", snap.Explanation)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, protocol.StepCompleted, snap.Items[0].Status)
	assert.Empty(t, snap.Issues)
	assert.Equal(t, base.Add(time.Minute), snap.UpdatedAt)
}

func TestPlanTracker_AdvisoryValidation(t *testing.T) {
	p := NewPlanTracker()

	snap := p.Update("", []protocol.PlanItem{
		{Step: "", Status: protocol.StepPending},
		{Step: "a", Status: protocol.StepInProgress},
		{Step: "b", Status: protocol.StepInProgress},
		{Step: "c", Status: "paused"},
	}, base)

	require.Len(t, snap.Issues, 3)
	assert.Contains(t, snap.Issues[0], "step 0 has no text")
	assert.Contains(t, snap.Issues[1], `step 3 has unknown status "paused"`)
	assert.Contains(t, snap.Issues[2], "2 steps marked in_progress")

	// A questionable plan is still stored in full.
	stored, ok := p.Current()
	require.True(t, ok)
	assert.Len(t, stored.Items, 4)
}

func TestPlanTracker_ReplayIsIdempotent(t *testing.T) {
	p := NewPlanTracker()

	items := []protocol.PlanItem{{Step: "only step", Status: protocol.StepInProgress}}
	first := p.Update("plan", items, base)
	second := p.Update("plan", items, base)

	assert.Equal(t, first, second)
	snap, _ := p.Current()
	assert.Equal(t, first, snap)
}

func TestPlanTracker_SnapshotIsDetached(t *testing.T) {
	p := NewPlanTracker()

	items := []protocol.PlanItem{{Step: "original", Status: protocol.StepPending}}
	p.Update("plan", items, base)

	// Mutating the caller's slice must not reach the stored plan.
	items[0].Step = "mutated"
	snap, _ := p.Current()
	assert.Equal(t, "original", snap.Items[0].Step)
}
