package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/SawyerHood/codex/protocol"
)

// ApprovalKind distinguishes what the backend is asking permission for.
type ApprovalKind string

const (
	ApprovalExec  ApprovalKind = "exec"
	ApprovalPatch ApprovalKind = "patch"
)

// ApprovalStatus is the resolution of one approval request.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalDenied    ApprovalStatus = "denied"
	ApprovalTimedOut  ApprovalStatus = "timed_out"
	ApprovalCancelled ApprovalStatus = "cancelled"
)

// Decision is delivered exactly once on a request's channel when it
// resolves. Review is zero unless a reviewer actually decided.
type Decision struct {
	Status ApprovalStatus
	Review protocol.ReviewDecision
}

// ApprovalRequest describes one suspended call awaiting a decision.
type ApprovalRequest struct {
	TurnID string
	CallID string
	Kind   ApprovalKind

	// Exec approvals.
	Command []string
	Cwd     string

	// Patch approvals.
	Changes   map[string]protocol.FileChange
	GrantRoot string

	Reason      string
	RequestedAt time.Time
}

type approvalRecord struct {
	req ApprovalRequest
	ch  chan Decision
}

// ApprovalGate holds suspended calls. Suspension is a record plus a
// resumption channel per call_id, never a blocked goroutine: the engine
// keeps consuming events for every turn while a request is pending, and
// only the issuing turn's forward progress stalls on the backend side.
type ApprovalGate struct {
	mu      sync.Mutex
	pending map[string]*approvalRecord
}

func NewApprovalGate() *ApprovalGate {
	return &ApprovalGate{
		pending: make(map[string]*approvalRecord),
	}
}

// Request registers an approval request. The returned channel receives
// exactly one Decision and is then closed. A second request for a
// call_id that is already pending returns ErrDuplicateApproval and the
// first request stays authoritative.
func (g *ApprovalGate) Request(req ApprovalRequest) (<-chan Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, dup := g.pending[req.CallID]; dup {
		return nil, ErrDuplicateApproval
	}
	rec := &approvalRecord{
		req: req,
		ch:  make(chan Decision, 1),
	}
	g.pending[req.CallID] = rec
	return rec.ch, nil
}

// Resolve delivers a reviewer's decision to the pending request matched
// by call_id.
func (g *ApprovalGate) Resolve(callID string, review protocol.ReviewDecision) (ApprovalRequest, ApprovalStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.pending[callID]
	if !ok {
		return ApprovalRequest{}, "", ErrUnknownApproval
	}
	delete(g.pending, callID)
	status := statusFor(review)
	rec.deliver(Decision{Status: status, Review: review})
	return rec.req, status, nil
}

// CancelTurn resolves every pending request of the turn as cancelled.
// Turn termination runs this so no request outlives its turn.
func (g *ApprovalGate) CancelTurn(turnID string) []ApprovalRequest {
	g.mu.Lock()
	defer g.mu.Unlock()

	var cancelled []ApprovalRequest
	for callID, rec := range g.pending {
		if rec.req.TurnID != turnID {
			continue
		}
		delete(g.pending, callID)
		rec.deliver(Decision{Status: ApprovalCancelled})
		cancelled = append(cancelled, rec.req)
	}
	sortRequests(cancelled)
	return cancelled
}

// Expire resolves every request older than maxAge as timed out.
func (g *ApprovalGate) Expire(now time.Time, maxAge time.Duration) []ApprovalRequest {
	g.mu.Lock()
	defer g.mu.Unlock()

	var expired []ApprovalRequest
	for callID, rec := range g.pending {
		if now.Sub(rec.req.RequestedAt) <= maxAge {
			continue
		}
		delete(g.pending, callID)
		rec.deliver(Decision{Status: ApprovalTimedOut})
		expired = append(expired, rec.req)
	}
	sortRequests(expired)
	return expired
}

// Pending returns snapshots of all outstanding requests, oldest first.
func (g *ApprovalGate) Pending() []ApprovalRequest {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]ApprovalRequest, 0, len(g.pending))
	for _, rec := range g.pending {
		out = append(out, rec.req)
	}
	sortRequests(out)
	return out
}

// PendingForTurn returns the turn's outstanding requests, oldest first.
func (g *ApprovalGate) PendingForTurn(turnID string) []ApprovalRequest {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []ApprovalRequest
	for _, rec := range g.pending {
		if rec.req.TurnID == turnID {
			out = append(out, rec.req)
		}
	}
	sortRequests(out)
	return out
}

func (r *approvalRecord) deliver(d Decision) {
	r.ch <- d
	close(r.ch)
}

func statusFor(review protocol.ReviewDecision) ApprovalStatus {
	switch review {
	case protocol.ReviewApproved, protocol.ReviewApprovedForSession:
		return ApprovalApproved
	default:
		return ApprovalDenied
	}
}

func sortRequests(reqs []ApprovalRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].RequestedAt.Equal(reqs[j].RequestedAt) {
			return reqs[i].CallID < reqs[j].CallID
		}
		return reqs[i].RequestedAt.Before(reqs[j].RequestedAt)
	})
}
