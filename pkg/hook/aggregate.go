package hook

import "fmt"

// Aggregated is the combined effect of every hook outcome for one event
// firing, after applying the aggregation rules from spec.md §4.4.
type Aggregated struct {
	Decision          PermissionDecision
	Reason            string
	UpdatedInput      map[string]any
	AdditionalContext string
	UpdatedOutput     string
	ShouldContinue    bool
	ContinueReason    string
	Warnings          []string

	// Denied is true if any hook exited 2 (blocking) or a failure/timeout
	// behavior of "block" applied; Decision is then always DecisionDeny.
	Denied bool

	// DecisionSet is true if at least one hook actually set
	// hookSpecificOutput.permissionDecision. Callers combining this with an
	// independent rule-based decision should only apply Decision when this
	// is true; otherwise Decision is just the zero-opinion default and
	// carries no information.
	DecisionSet bool
}

// Aggregate combines outcomes (in matcher/selection order) per the rules:
// a blocking exit (2) short-circuits with deny; otherwise the most
// restrictive hookSpecificOutput.permissionDecision across all outcomes
// wins (deny > ask > allow); updatedInput/updatedOutput/additionalContext
// are applied in order with last-writer-wins, recording a warning whenever
// a later hook overwrites an earlier one's rewrite.
func Aggregate(outcomes []Outcome) Aggregated {
	agg := Aggregated{Decision: DecisionAllow, ShouldContinue: true}

	var sawInput, sawOutput bool

	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		if o.ExitCode == 2 {
			agg.Denied = true
			agg.Decision = DecisionDeny
			agg.Reason = o.Stderr
			return agg
		}
		if o.TimedOut {
			switch o.Entry.TimeoutBehavior {
			case TimeoutBlock:
				agg.Denied = true
				agg.Decision = DecisionDeny
				agg.Reason = fmt.Sprintf("hook %q timed out", o.Entry.Command)
				return agg
			default:
				agg.Warnings = append(agg.Warnings, fmt.Sprintf("hook %q timed out, ignored", o.Entry.Command))
				continue
			}
		}
		if o.ExitCode != 0 {
			switch o.Entry.FailureBehavior {
			case FailureBlock:
				agg.Denied = true
				agg.Decision = DecisionDeny
				agg.Reason = fmt.Sprintf("hook %q failed: %s", o.Entry.Command, o.Stderr)
				return agg
			case FailureWarn:
				agg.Warnings = append(agg.Warnings, fmt.Sprintf("hook %q failed: %s", o.Entry.Command, o.Stderr))
			}
			continue
		}

		if o.Output == nil || o.Output.HookSpecificOutput == nil {
			continue
		}
		hso := o.Output.HookSpecificOutput

		if hso.PermissionDecision != "" {
			if !agg.DecisionSet {
				agg.Decision = hso.PermissionDecision
				agg.DecisionSet = true
			} else {
				agg.Decision = mostRestrictiveDecision(agg.Decision, hso.PermissionDecision)
			}
			if hso.PermissionDecisionReason != "" {
				agg.Reason = hso.PermissionDecisionReason
			}
		}

		if hso.UpdatedInput != nil {
			if sawInput {
				agg.Warnings = append(agg.Warnings, fmt.Sprintf("hook %q overwrote a prior updatedInput", o.Entry.Command))
			}
			agg.UpdatedInput = hso.UpdatedInput
			sawInput = true
		}

		if hso.UpdatedOutput != "" {
			if sawOutput {
				agg.Warnings = append(agg.Warnings, fmt.Sprintf("hook %q overwrote a prior updatedOutput", o.Entry.Command))
			}
			agg.UpdatedOutput = hso.UpdatedOutput
			sawOutput = true
		}

		if hso.AdditionalContext != "" {
			if agg.AdditionalContext != "" {
				agg.AdditionalContext += "\n" + hso.AdditionalContext
			} else {
				agg.AdditionalContext = hso.AdditionalContext
			}
		}

		if hso.Continue != nil && !*hso.Continue {
			agg.ShouldContinue = false
			agg.ContinueReason = hso.Reason
		}
	}

	if agg.Decision == DecisionDeny {
		agg.Denied = true
	}

	return agg
}

func mostRestrictiveDecision(a, b PermissionDecision) PermissionDecision {
	rank := func(d PermissionDecision) int {
		switch d {
		case DecisionDeny:
			return 3
		case DecisionAsk:
			return 2
		case DecisionAllow:
			return 1
		default:
			return 0
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}
