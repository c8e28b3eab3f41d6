package permission

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/corvyn/toolcore/pkg/tool"
)

// Checker evaluates a RuleSet against concrete calls, honoring the fixed
// decision priority and the PermissionMode tuning rules from spec.md §4.3.
type Checker struct {
	rules RuleSet
}

// NewChecker builds a Checker over a fixed RuleSet. Rules are not mutated
// after construction; swap in a new Checker to change policy.
func NewChecker(rules RuleSet) *Checker {
	return &Checker{rules: rules}
}

// Decide evaluates call under mode and returns the resolved Decision.
//
// Priority: deny > allow > ask > implicit default. The implicit default is
// `ask` if any rule matched the tool name (regardless of the matched
// decision class — handled by the matched-any bookkeeping below), otherwise
// `allow` for Read-kind tools and `ask` otherwise.
//
// Mode tuning: Yolo promotes an otherwise-resolved `ask` to `allow`, but a
// `deny` always binds. Plan forces Edit-kind and Execute-kind tools to
// `deny` regardless of any rule.
func (c *Checker) Decide(call Call, mode tool.PermissionMode) Decision {
	if mode == tool.ModePlan && (call.Kind == tool.KindEdit || call.Kind == tool.KindExecute) {
		return Deny
	}

	matchedAny := false
	best := Decision("")

	for _, rule := range c.rules.Rules {
		if !matches(rule.Pattern, call) {
			continue
		}
		matchedAny = true
		if best == "" {
			best = rule.Decision
			continue
		}
		best = MostRestrictive(best, rule.Decision)
	}

	if best == "" {
		if matchedAny {
			best = Ask
		} else if call.Kind == tool.KindRead {
			best = Allow
		} else {
			best = Ask
		}
	}

	if mode == tool.ModeYolo && best == Ask {
		best = Allow
	}

	return best
}

// matches applies the three matching modes in order: exact string equality
// against the call's tool name or signature, a bare "*" wildcard, then a
// doublestar glob (supporting "**" and "{a,b}") against the signature.
func matches(pattern string, call Call) bool {
	if pattern == "*" {
		return true
	}
	if pattern == call.ToolName || pattern == call.Signature {
		return true
	}
	if matched, err := doublestar.Match(pattern, call.Signature); err == nil && matched {
		return true
	}
	if matched, err := doublestar.Match(pattern, call.ToolName); err == nil && matched {
		return true
	}
	return false
}
