// Package permission implements the Permission Checker and Pattern
// Abstractor: rule-based allow/ask/deny decisions over concrete tool calls,
// and the derivation of human-readable rule signatures from those calls.
package permission

import "github.com/corvyn/toolcore/pkg/tool"

// Decision is the outcome of evaluating a call against a RuleSet.
type Decision string

const (
	Allow Decision = "allow"
	Ask   Decision = "ask"
	Deny  Decision = "deny"
)

// rank orders decisions by the Permission Checker's own fixed priority,
// deny > allow > ask (spec.md §4.3) — distinct from the Hook Lifecycle
// Engine's deny > ask > allow aggregation order in pkg/hook, which has its
// own ranking local to that package.
func rank(d Decision) int {
	switch d {
	case Deny:
		return 3
	case Allow:
		return 2
	case Ask:
		return 1
	default:
		return 0
	}
}

// MostRestrictive returns whichever of a, b ranks higher under the
// Permission Checker's deny > allow > ask priority, used to resolve
// multiple rules matching the same call.
func MostRestrictive(a, b Decision) Decision {
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

// Rule is one line of permission configuration: a pattern to match against
// a call's signature, and the decision it carries.
type Rule struct {
	Pattern  string
	Decision Decision
}

// RuleSet is an ordered collection of rules evaluated per spec.md §4.3's
// fixed priority (deny > allow > ask), independent of rule order within a
// single decision class.
type RuleSet struct {
	Rules []Rule
}

// Call is the concrete, bound invocation the checker evaluates: enough
// information to match against rule patterns without depending on the
// pipeline's richer ToolCallRequest type.
type Call struct {
	ToolName      string
	Kind          tool.Kind
	AffectedPaths []string
	// Signature is the concrete call signature used for pattern matching,
	// e.g. `Bash(command:git push origin main)` or `Read(file_path:/ws/a.go)`.
	Signature string
}
