package client

import (
	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/protocol"
)

// ApprovalHandler decides command and patch approval requests. The
// client invokes it on its own goroutine, so a handler may block on user
// interaction without stalling event processing.
type ApprovalHandler interface {
	HandleApproval(req engine.ApprovalRequest) protocol.ReviewDecision
}

// ApprovalHandlerFunc adapts a function to the ApprovalHandler interface.
type ApprovalHandlerFunc func(req engine.ApprovalRequest) protocol.ReviewDecision

func (f ApprovalHandlerFunc) HandleApproval(req engine.ApprovalRequest) protocol.ReviewDecision {
	return f(req)
}

// AutoApprove approves every request. For sandboxed or trusted runs only.
var AutoApprove ApprovalHandler = ApprovalHandlerFunc(func(engine.ApprovalRequest) protocol.ReviewDecision {
	return protocol.ReviewApproved
})

// DenyAll denies every request.
var DenyAll ApprovalHandler = ApprovalHandlerFunc(func(engine.ApprovalRequest) protocol.ReviewDecision {
	return protocol.ReviewDenied
})
