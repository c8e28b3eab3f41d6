package permission

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// npmFamily matches the package-manager commands that collapse to a single
// broad pattern instead of leaking their full argument list into a rule.
var npmFamily = regexp.MustCompile(`^(npm|pnpm|yarn)\b`)

// gitSubcommand captures `git <sub>` so the abstraction can keep the
// subcommand but drop everything after it.
var gitSubcommand = regexp.MustCompile(`^git\s+(\S+)`)

// AbstractCommand derives a rule pattern from a shell command the way an
// operator would want to approve a whole class of invocations at once,
// rather than one exact command line.
//
//	"npm install lodash"     -> "Bash(command:*npm*)"
//	"pnpm run build"         -> "Bash(command:*npm*)"
//	"git push origin main"   -> "Bash(command:git push*)"
//	"ls -la /tmp"            -> "Bash(command:ls*)"
func AbstractCommand(command string) string {
	trimmed := strings.TrimSpace(command)
	if npmFamily.MatchString(trimmed) {
		return "Bash(command:*npm*)"
	}
	if m := gitSubcommand.FindStringSubmatch(trimmed); m != nil {
		return "Bash(command:git " + m[1] + "*)"
	}

	head := trimmed
	if idx := strings.IndexByte(trimmed, ' '); idx >= 0 {
		head = trimmed[:idx]
	}
	return "Bash(command:" + head + "*)"
}

// AbstractFilePath derives a rule pattern from a tool name and a file path,
// collapsing to the file's extension under a recursive glob so a single
// rule covers every file of that type anywhere in the tree.
//
//	("Read", "/ws/src/main.go") -> "Read(file_path:**/*.go)"
//	("Edit", "/ws/README")      -> "Edit(file_path:**/*)"
func AbstractFilePath(toolName, path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return toolName + "(file_path:**/*)"
	}
	return toolName + "(file_path:**/*" + ext + ")"
}

// AbstractWebFetch derives a rule pattern from a fetch URL, collapsing to
// just the host so a single rule covers every path on that domain.
//
//	"https://api.github.com/repos/x/y" -> "WebFetch(domain:api.github.com)"
func AbstractWebFetch(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "WebFetch(domain:" + rawURL + ")"
	}
	return "WebFetch(domain:" + parsed.Hostname() + ")"
}

// Abstract is the general entry point: given a concrete Call, it dispatches
// to the matching abstraction based on the call's declared signature shape.
// Callers that already know which abstraction applies should call the
// specific function directly; this exists for rule-suggestion UIs that
// operate over arbitrary recorded calls.
func Abstract(call Call) string {
	switch {
	case strings.HasPrefix(call.Signature, "Bash(command:"):
		cmd := strings.TrimSuffix(strings.TrimPrefix(call.Signature, "Bash(command:"), ")")
		cmd = strings.TrimSuffix(strings.TrimPrefix(cmd, `"`), `"`)
		return AbstractCommand(cmd)
	case strings.HasPrefix(call.Signature, "WebFetch(url:"):
		u := strings.TrimSuffix(strings.TrimPrefix(call.Signature, "WebFetch(url:"), ")")
		u = strings.TrimSuffix(strings.TrimPrefix(u, `"`), `"`)
		return AbstractWebFetch(u)
	case len(call.AffectedPaths) > 0:
		return AbstractFilePath(call.ToolName, call.AffectedPaths[0])
	default:
		return call.ToolName
	}
}
