package history

import (
	"sync"

	"github.com/SawyerHood/codex/protocol"
)

// Transcript is the ordered conversation record for one conversation.
// Items are kept exactly in the order received; that order is the
// canonical transcript ordering.
type Transcript struct {
	mu             sync.RWMutex
	conversationID string
	items          []protocol.ResponseItem
	awaiting       map[string]struct{} // function_call ids with no output yet
	awaitingOrder  []string
	orphanOutputs  []string // function_call_output ids with no prior call
}

// NewTranscript creates an empty transcript for conversationID.
func NewTranscript(conversationID string) *Transcript {
	return &Transcript{
		conversationID: conversationID,
		awaiting:       make(map[string]struct{}),
	}
}

// ConversationID returns the owning conversation id.
func (t *Transcript) ConversationID() string {
	return t.conversationID
}

// Add appends an item, tracking function_call / function_call_output
// pairing by call id. Unmatched pairs are recorded for reporting, never
// rejected.
func (t *Transcript) Add(item protocol.ResponseItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, item)

	switch it := item.(type) {
	case *protocol.FunctionCallItem:
		t.trackCallLocked(it.CallID)
	case protocol.FunctionCallItem:
		t.trackCallLocked(it.CallID)
	case *protocol.FunctionCallOutputItem:
		t.matchOutputLocked(it.CallID)
	case protocol.FunctionCallOutputItem:
		t.matchOutputLocked(it.CallID)
	}
}

func (t *Transcript) trackCallLocked(callID string) {
	if _, dup := t.awaiting[callID]; dup {
		return
	}
	t.awaiting[callID] = struct{}{}
	t.awaitingOrder = append(t.awaitingOrder, callID)
}

func (t *Transcript) matchOutputLocked(callID string) {
	if _, ok := t.awaiting[callID]; ok {
		delete(t.awaiting, callID)
		for i, id := range t.awaitingOrder {
			if id == callID {
				t.awaitingOrder = append(t.awaitingOrder[:i], t.awaitingOrder[i+1:]...)
				break
			}
		}
		return
	}
	t.orphanOutputs = append(t.orphanOutputs, callID)
}

// Items returns the transcript in received order.
func (t *Transcript) Items() []protocol.ResponseItem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]protocol.ResponseItem, len(t.items))
	copy(out, t.items)
	return out
}

// Len returns the number of items.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// UnmatchedCalls lists function_call ids still awaiting an output, in
// call order. A non-empty result is a reportable inconsistency for a
// finished conversation.
func (t *Transcript) UnmatchedCalls() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.awaitingOrder))
	copy(out, t.awaitingOrder)
	return out
}

// OrphanOutputs lists function_call_output ids that had no prior call.
func (t *Transcript) OrphanOutputs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.orphanOutputs))
	copy(out, t.orphanOutputs)
	return out
}

// Archive holds transcripts for all known conversations.
type Archive struct {
	mu            sync.RWMutex
	conversations map[string]*Transcript
}

// NewArchive creates an empty archive.
func NewArchive() *Archive {
	return &Archive{conversations: make(map[string]*Transcript)}
}

// Transcript returns the transcript for conversationID, creating it on
// first use.
func (a *Archive) Transcript(conversationID string) *Transcript {
	a.mu.Lock()
	defer a.mu.Unlock()
	tr, ok := a.conversations[conversationID]
	if !ok {
		tr = NewTranscript(conversationID)
		a.conversations[conversationID] = tr
	}
	return tr
}

// Reconstruct returns the ordered items for conversationID, or false if
// the conversation is unknown.
func (a *Archive) Reconstruct(conversationID string) ([]protocol.ResponseItem, bool) {
	a.mu.RLock()
	tr, ok := a.conversations[conversationID]
	a.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return tr.Items(), true
}
