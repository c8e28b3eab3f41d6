// Package loopdetect implements the Loop Detector: it watches the sequence
// of tool calls and assistant turns a session produces and raises a stop
// signal when that sequence stops making progress.
package loopdetect

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
)

// Call is one (toolName, argsHash) observation.
type Call struct {
	ToolName string
	ArgsHash string
}

// HashArgs produces a stable hash of a tool call's arguments, independent
// of map key iteration order, for identical-call comparison.
func HashArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		ordered = append(ordered, k, args[k])
	}
	b, _ := json.Marshal(ordered)
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum)
}

// Signal is the Loop Detector's verdict after observing one turn.
type Signal struct {
	ShouldStop bool
	Reason     string
	// Warning is true when the turn tripped a detector but the warning
	// budget hasn't yet been exhausted, so the orchestrator should surface
	// a warning without stopping.
	Warning bool
}

// Thresholds configures the adaptive identical-call window and the
// message-fingerprint similarity window, per spec.md §4.10.
type Thresholds struct {
	// ShortSessionCalls/LongSessionCalls are the identical-call window N:
	// 3 for short sessions, 5-7 for long ones.
	ShortSessionCalls int
	LongSessionCalls  int
	// LongSessionTurnCutoff marks the turn count at which a session is
	// considered "long" for the purpose of the identical-call window.
	LongSessionTurnCutoff int

	// MessageWindow is M, the sliding window of recent message fingerprints.
	MessageWindow int
	// SimilarityRatio is the unique/window ratio at or below which the
	// message window is considered a loop.
	SimilarityRatio float64

	// EmptyTurnHardStop is the number of consecutive content-free,
	// tool-call-free turns that force a stop regardless of warning budget.
	EmptyTurnHardStop int

	// WarningBudget is how many non-hard-stop detections are tolerated
	// before the detector escalates to ShouldStop.
	WarningBudget int
}

// DefaultThresholds matches spec.md §4.10 literally.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShortSessionCalls:     3,
		LongSessionCalls:      6,
		LongSessionTurnCutoff: 20,
		MessageWindow:         6,
		SimilarityRatio:       0.5,
		EmptyTurnHardStop:     5,
		WarningBudget:         2,
	}
}

// Detector accumulates a session's tool-call and message history and
// evaluates the three detection rules from spec.md §4.10.
type Detector struct {
	thresholds Thresholds

	turns               int
	calls               []Call
	messageFingerprints []string
	emptyTurnStreak     int
	warningsUsed        int
}

// NewDetector returns a Detector with t's thresholds.
func NewDetector(t Thresholds) *Detector {
	return &Detector{thresholds: t}
}

func (d *Detector) identicalCallWindow() int {
	if d.turns >= d.thresholds.LongSessionTurnCutoff {
		return d.thresholds.LongSessionCalls
	}
	return d.thresholds.ShortSessionCalls
}

// RecordToolCall appends one observed call to the history.
func (d *Detector) RecordToolCall(toolName, argsHash string) {
	d.calls = append(d.calls, Call{ToolName: toolName, ArgsHash: argsHash})
}

// RecordMessage appends one assistant message fingerprint to the history.
// An empty fingerprint with hadToolCalls=false represents a fully empty
// turn for the hard-stop rule.
func (d *Detector) RecordMessage(fingerprint string, hadToolCalls bool) {
	if fingerprint == "" && !hadToolCalls {
		d.emptyTurnStreak++
	} else {
		d.emptyTurnStreak = 0
	}
	if fingerprint != "" {
		d.messageFingerprints = append(d.messageFingerprints, fingerprint)
	}
}

// EndTurn advances the turn counter and evaluates every detection rule in
// priority order: hard stop first (bypasses the warning budget), then
// identical-calls, then message-similarity.
func (d *Detector) EndTurn() Signal {
	d.turns++

	if d.emptyTurnStreak >= d.thresholds.EmptyTurnHardStop {
		return Signal{ShouldStop: true, Reason: "silent"}
	}

	if d.identicalTail() {
		return d.detection("identical_calls")
	}

	if d.similarMessages() {
		return d.detection("message_similarity")
	}

	return Signal{}
}

func (d *Detector) detection(reason string) Signal {
	d.warningsUsed++
	if d.warningsUsed > d.thresholds.WarningBudget {
		return Signal{ShouldStop: true, Reason: reason}
	}
	return Signal{Warning: true, Reason: reason}
}

func (d *Detector) identicalTail() bool {
	n := d.identicalCallWindow()
	if n <= 0 || len(d.calls) < n {
		return false
	}
	tail := d.calls[len(d.calls)-n:]
	first := tail[0]
	for _, c := range tail[1:] {
		if c != first {
			return false
		}
	}
	return true
}

func (d *Detector) similarMessages() bool {
	window := d.thresholds.MessageWindow
	if window <= 0 || len(d.messageFingerprints) < window {
		return false
	}
	recent := d.messageFingerprints[len(d.messageFingerprints)-window:]
	unique := make(map[string]bool, window)
	for _, fp := range recent {
		unique[fp] = true
	}
	ratio := float64(len(unique)) / float64(window)
	return ratio <= d.thresholds.SimilarityRatio
}
