package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/SawyerHood/codex/protocol"
)

// PlanSnapshot is the agent's latest presented plan. Issues holds
// advisory validation findings; a questionable plan is still stored.
type PlanSnapshot struct {
	Explanation string
	Items       []protocol.PlanItem
	Issues      []string
	UpdatedAt   time.Time
}

// PlanTracker keeps the most recent plan. Updates are last-writer-wins
// whole replacements with no diffing, so replaying an update is
// idempotent.
type PlanTracker struct {
	mu      sync.RWMutex
	current PlanSnapshot
	has     bool
}

func NewPlanTracker() *PlanTracker {
	return &PlanTracker{}
}

// Update replaces the plan and returns the stored snapshot.
func (p *PlanTracker) Update(explanation string, items []protocol.PlanItem, now time.Time) PlanSnapshot {
	snap := PlanSnapshot{
		Explanation: explanation,
		Items:       append([]protocol.PlanItem(nil), items...),
		Issues:      validatePlan(items),
		UpdatedAt:   now,
	}
	p.mu.Lock()
	p.current = snap
	p.has = true
	p.mu.Unlock()
	return snap
}

// Current returns the last plan presented, if any.
func (p *PlanTracker) Current() (PlanSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.has
}

func validatePlan(items []protocol.PlanItem) []string {
	var issues []string
	inProgress := 0
	for i, item := range items {
		if item.Step == "" {
			issues = append(issues, fmt.Sprintf("step %d has no text", i))
		}
		switch item.Status {
		case protocol.StepPending, protocol.StepCompleted:
		case protocol.StepInProgress:
			inProgress++
		default:
			issues = append(issues, fmt.Sprintf("step %d has unknown status %q", i, item.Status))
		}
	}
	if inProgress > 1 {
		issues = append(issues, fmt.Sprintf("%d steps marked in_progress, want at most 1", inProgress))
	}
	return issues
}
