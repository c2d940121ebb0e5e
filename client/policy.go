package client

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/SawyerHood/codex/engine"
	"github.com/SawyerHood/codex/protocol"
)

// Policy holds file-driven approval rules. Exec requests whose command
// starts with an allow-listed prefix are approved; everything else falls
// through to the default decision.
type Policy struct {
	AllowedCommands    []string                `yaml:"allowed_commands"`
	AutoApprovePatches bool                    `yaml:"auto_approve_patches"`
	DefaultDecision    protocol.ReviewDecision `yaml:"default_decision"`
}

// DefaultPolicy denies everything.
func DefaultPolicy() *Policy {
	return &Policy{DefaultDecision: protocol.ReviewDenied}
}

// LoadPolicy loads an approval policy from a YAML file.
// Returns the default policy if the file doesn't exist.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultPolicy(), nil
	}
	if err != nil {
		return nil, err
	}

	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	if policy.DefaultDecision == "" {
		policy.DefaultDecision = protocol.ReviewDenied
	}
	switch policy.DefaultDecision {
	case protocol.ReviewApproved, protocol.ReviewApprovedForSession,
		protocol.ReviewDenied, protocol.ReviewAbort:
	default:
		return nil, fmt.Errorf("policy file %s: unknown default_decision %q", path, policy.DefaultDecision)
	}

	return &policy, nil
}

// Handler compiles the policy into an approval handler.
func (p *Policy) Handler() ApprovalHandler {
	return ApprovalHandlerFunc(func(req engine.ApprovalRequest) protocol.ReviewDecision {
		switch req.Kind {
		case engine.ApprovalExec:
			if p.allowsCommand(req.Command) {
				return protocol.ReviewApproved
			}
		case engine.ApprovalPatch:
			if p.AutoApprovePatches {
				return protocol.ReviewApproved
			}
		}
		if p.DefaultDecision == "" {
			return protocol.ReviewDenied
		}
		return p.DefaultDecision
	})
}

// allowsCommand reports whether the command's leading argv elements match
// an allow-listed prefix. Prefixes are whitespace-split, so "git status"
// allows ["git", "status", "-s"] but not ["git", "push"].
func (p *Policy) allowsCommand(command []string) bool {
	for _, allowed := range p.AllowedCommands {
		prefix := strings.Fields(allowed)
		if len(prefix) == 0 || len(command) < len(prefix) {
			continue
		}
		match := true
		for i, word := range prefix {
			if command[i] != word {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
