package engine

import (
	"strings"
	"sync"
)

// StreamKind identifies one of the three text streams a turn carries.
// All three can be active concurrently.
type StreamKind string

const (
	StreamAgentMessage      StreamKind = "agent_message"
	StreamAgentReasoning    StreamKind = "agent_reasoning"
	StreamAgentReasoningRaw StreamKind = "agent_reasoning_raw"
)

// FinalText is one canonical finalized stream produced by a flush.
type FinalText struct {
	TurnID string
	Kind   StreamKind
	Text   string
}

type streamKey struct {
	turnID string
	kind   StreamKind
}

// StreamAssembler accumulates text deltas per (turn, stream). Deltas are
// concatenated in arrival order with no deduplication, reordering, or
// buffering delay; the caller renders each delta as it lands and reads
// the canonical value at finalization.
type StreamAssembler struct {
	mu   sync.Mutex
	bufs map[streamKey]*strings.Builder
}

func NewStreamAssembler() *StreamAssembler {
	return &StreamAssembler{
		bufs: make(map[streamKey]*strings.Builder),
	}
}

// Append concatenates a delta onto the stream's buffer.
func (a *StreamAssembler) Append(turnID string, kind StreamKind, delta string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := streamKey{turnID: turnID, kind: kind}
	buf, ok := a.bufs[key]
	if !ok {
		buf = &strings.Builder{}
		a.bufs[key] = buf
	}
	buf.WriteString(delta)
}

// Finalize ends a stream with the terminating event's full text. The
// accumulated buffer is the canonical final value; a full event with no
// prior deltas stands alone as a length-one stream. mismatch reports
// when both exist and disagree (the buffer still wins).
func (a *StreamAssembler) Finalize(turnID string, kind StreamKind, full string) (text string, mismatch bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := streamKey{turnID: turnID, kind: kind}
	buf, ok := a.bufs[key]
	if !ok || buf.Len() == 0 {
		delete(a.bufs, key)
		return full, false
	}
	text = buf.String()
	delete(a.bufs, key)
	return text, full != "" && full != text
}

// SectionBreak finalizes the turn's reasoning buffer into a completed
// section. ok reports whether there was accumulated reasoning.
func (a *StreamAssembler) SectionBreak(turnID string) (FinalText, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := streamKey{turnID: turnID, kind: StreamAgentReasoning}
	buf, exists := a.bufs[key]
	if !exists || buf.Len() == 0 {
		delete(a.bufs, key)
		return FinalText{}, false
	}
	text := buf.String()
	delete(a.bufs, key)
	return FinalText{TurnID: turnID, Kind: StreamAgentReasoning, Text: text}, true
}

// FlushTurn finalizes every non-empty buffer the turn still holds, in
// message, reasoning, raw order. No residual buffer survives the turn.
func (a *StreamAssembler) FlushTurn(turnID string) []FinalText {
	a.mu.Lock()
	defer a.mu.Unlock()

	var finals []FinalText
	for _, kind := range []StreamKind{StreamAgentMessage, StreamAgentReasoning, StreamAgentReasoningRaw} {
		key := streamKey{turnID: turnID, kind: kind}
		buf, ok := a.bufs[key]
		if !ok {
			continue
		}
		if buf.Len() > 0 {
			finals = append(finals, FinalText{TurnID: turnID, Kind: kind, Text: buf.String()})
		}
		delete(a.bufs, key)
	}
	return finals
}

// Partial returns the text accumulated so far for a stream.
func (a *StreamAssembler) Partial(turnID string, kind StreamKind) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if buf, ok := a.bufs[streamKey{turnID: turnID, kind: kind}]; ok {
		return buf.String()
	}
	return ""
}
