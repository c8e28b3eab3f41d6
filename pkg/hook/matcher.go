package hook

import (
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// CallInfo is the subset of a concrete call the Matcher needs. It is
// intentionally narrower than tool.ToolCallRequest so this package doesn't
// import the pipeline's full request shape.
type CallInfo struct {
	ToolName      string
	AffectedPaths []string
	Command       string // extracted shell command, empty for non-shell tools
}

// Matches reports whether every non-empty predicate on m holds for call.
// An entirely empty Matcher matches everything (a hook with no matcher
// fires for every call of the subscribed events).
func (m Matcher) Matches(call CallInfo) bool {
	if len(m.ToolNames) > 0 && !containsString(m.ToolNames, call.ToolName) {
		return false
	}
	if m.ToolNameRegex != "" {
		re, err := regexp.Compile(m.ToolNameRegex)
		if err != nil || !re.MatchString(call.ToolName) {
			return false
		}
	}
	if len(m.PathGlobs) > 0 {
		if !anyPathMatches(m.PathGlobs, call.AffectedPaths) {
			return false
		}
	}
	if m.CommandRegex != "" {
		re, err := regexp.Compile(m.CommandRegex)
		if err != nil || !re.MatchString(call.Command) {
			return false
		}
	}
	return true
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}

func anyPathMatches(globs, paths []string) bool {
	for _, path := range paths {
		for _, glob := range globs {
			if matched, err := doublestar.Match(glob, path); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// Selected returns every entry in cfg subscribed to event whose matcher
// matches call, in configuration order (the order Selection/Aggregation
// rules apply matcher-order rewrites).
func (cfg Config) Selected(event Event, call CallInfo) []Entry {
	var out []Entry
	for _, entry := range cfg.Entries {
		if !entrySubscribesTo(entry, event) {
			continue
		}
		if entry.Matcher.Matches(call) {
			out = append(out, entry)
		}
	}
	return out
}

func entrySubscribesTo(entry Entry, event Event) bool {
	for _, e := range entry.Events {
		if e == event {
			return true
		}
	}
	return false
}
