package engine

import (
	"fmt"

	"github.com/SawyerHood/codex/protocol"
)

// foldUsage replaces prev with the next cumulative token_count snapshot.
// The backend's figures are authoritative and stored as received; any
// per-field regression or total/parts disagreement is reported as an
// advisory issue, never rejected.
func foldUsage(prev, next protocol.TokenUsage) (protocol.TokenUsage, []string) {
	var issues []string
	check := func(name string, before, after int64) {
		if after < before {
			issues = append(issues, fmt.Sprintf("%s regressed from %d to %d", name, before, after))
		}
	}
	check("input_tokens", prev.InputTokens, next.InputTokens)
	check("cached_input_tokens", prev.CachedInputTokens, next.CachedInputTokens)
	check("output_tokens", prev.OutputTokens, next.OutputTokens)
	check("reasoning_output_tokens", prev.ReasoningOutputTokens, next.ReasoningOutputTokens)
	check("total_tokens", prev.TotalTokens, next.TotalTokens)
	if next.TotalTokens != 0 && next.TotalTokens != next.InputTokens+next.OutputTokens {
		issues = append(issues, fmt.Sprintf(
			"total_tokens %d != input_tokens %d + output_tokens %d",
			next.TotalTokens, next.InputTokens, next.OutputTokens))
	}
	return next, issues
}
